package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	_, err := Load("/nonexistent/path/reactor.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
	// Load with empty path uses default search (may use defaults if no config file)
	cfg, _ := Load("")
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr: got %s", cfg.Server.Addr)
	}
	if cfg.Server.TCPAddr != ":9090" {
		t.Errorf("default tcp_addr: got %s", cfg.Server.TCPAddr)
	}
	if cfg.Reactor.InitRadius != 50 {
		t.Errorf("default init_radius: got %d", cfg.Reactor.InitRadius)
	}
	if cfg.Storage.CheckpointEvery != 1000 {
		t.Errorf("default checkpoint_every: got %d", cfg.Storage.CheckpointEvery)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := `
server:
  addr: ":9000"
  tcp_addr: ":9001"
storage:
  path: "test_data"
  journal_batch_size: 16
  checkpoint_every: 0
reactor:
  init_radius: 10
  btree_degree: 1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr: got %s", cfg.Server.Addr)
	}
	if cfg.Storage.Path != "test_data" {
		t.Errorf("path: got %s", cfg.Storage.Path)
	}
	if cfg.Storage.JournalBatchSize != 16 {
		t.Errorf("journal_batch_size: got %d", cfg.Storage.JournalBatchSize)
	}
	if cfg.Storage.JournalBufferSize != 1024 {
		t.Errorf("journal_buffer_size should keep default, got %d", cfg.Storage.JournalBufferSize)
	}
	if cfg.Storage.CheckpointEvery != 0 {
		t.Errorf("checkpoint_every: got %d", cfg.Storage.CheckpointEvery)
	}
	if cfg.Reactor.InitRadius != 10 {
		t.Errorf("init_radius: got %d", cfg.Reactor.InitRadius)
	}
	if cfg.Reactor.BTreeDegree != 32 {
		t.Errorf("btree_degree below 2 should fall back to 32, got %d", cfg.Reactor.BTreeDegree)
	}
}

package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Reactor ReactorConfig `yaml:"reactor"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`     // HTTP Listen Address (e.g. :8080)
	TCPAddr string `yaml:"tcp_addr"` // TCP Listen Address (e.g. :9090)
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	JournalBufferSize int    `yaml:"journal_buffer_size"`
	JournalBatchSize  int    `yaml:"journal_batch_size"`
	CheckpointEvery   int    `yaml:"checkpoint_every"` // steps between snapshots, 0 disables
}

type ReactorConfig struct {
	InitRadius  int64 `yaml:"init_radius"`
	BTreeDegree int   `yaml:"btree_degree"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    ":8080",
			TCPAddr: ":9090",
		},
		Storage: StorageConfig{
			Path:              "reactor_data",
			JournalBufferSize: 1024,
			JournalBatchSize:  128,
			CheckpointEvery:   1000,
		},
		Reactor: ReactorConfig{
			InitRadius:  50,
			BTreeDegree: 32,
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath == "" {
		for _, p := range []string{"configs/reactor.yaml", "reactor.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, err
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		applyDefaults(cfg)
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.JournalBufferSize <= 0 {
		cfg.Storage.JournalBufferSize = 1024
	}
	if cfg.Storage.JournalBatchSize <= 0 {
		cfg.Storage.JournalBatchSize = 128
	}
	if cfg.Storage.CheckpointEvery < 0 {
		cfg.Storage.CheckpointEvery = 0
	}
	if cfg.Reactor.InitRadius <= 0 {
		cfg.Reactor.InitRadius = 50
	}
	if cfg.Reactor.BTreeDegree < 2 {
		cfg.Reactor.BTreeDegree = 32
	}
}

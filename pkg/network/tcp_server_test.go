package network

import (
	"bytes"
	"encoding/json"
	"testing"

	"reactorcore/pkg/config"
	"reactorcore/pkg/core"
	"reactorcore/pkg/geom"
	"reactorcore/pkg/protocol"
)

func newTestServer(t *testing.T) *TCPServer {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = t.TempDir()
	cfg.Storage.CheckpointEvery = 0
	reactor, err := core.NewReactor(cfg)
	if err != nil {
		t.Fatalf("new reactor: %v", err)
	}
	t.Cleanup(reactor.Close)
	return NewTCPServer(reactor)
}

func roundTrip(t *testing.T, s *TCPServer, op byte, key, val []byte) *protocol.Packet {
	t.Helper()
	var buf bytes.Buffer
	if err := s.dispatch(&buf, &protocol.Packet{Op: op, Key: key, Value: val}); err != nil {
		t.Fatalf("dispatch op %#x: %v", op, err)
	}
	resp, err := protocol.Decode(&buf)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestDispatch(t *testing.T) {
	s := newTestServer(t)

	if resp := roundTrip(t, s, protocol.OpStep, nil, []byte("on x=-60..60,y=0..0,z=0..0")); resp.Op != protocol.RespOK {
		t.Fatalf("step: got op %#x (%s)", resp.Op, resp.Value)
	}
	if resp := roundTrip(t, s, protocol.OpStep, nil, []byte("on x=1..0,y=0..0,z=0..0")); resp.Op != protocol.RespErr {
		t.Fatalf("inverted range: expected error, got op %#x", resp.Op)
	}
	if resp := roundTrip(t, s, protocol.OpStep, nil, []byte("off x=5..9223372036854775807,y=0..1,z=0..1")); resp.Op != protocol.RespErr {
		t.Fatalf("unbounded range: expected error, got op %#x", resp.Op)
	}

	resp := roundTrip(t, s, protocol.OpCount, nil, nil)
	inRegion, total, err := protocol.DecodeCount(resp.Value)
	if err != nil {
		t.Fatalf("decode count: %v", err)
	}
	if inRegion != 101 || total != 121 {
		t.Fatalf("count: got %d/%d want 101/121", inRegion, total)
	}

	resp = roundTrip(t, s, protocol.OpCount, nil, protocol.EncodeBox(geom.MustBox(55, 70, -1, 1, -1, 1)))
	if inRegion, _, _ := protocol.DecodeCount(resp.Value); inRegion != 6 {
		t.Fatalf("count in box: got %d want 6", inRegion)
	}

	if resp := roundTrip(t, s, protocol.OpCount, nil, []byte{1, 2, 3}); resp.Op != protocol.RespErr {
		t.Fatalf("short region: expected error, got op %#x", resp.Op)
	}

	resp = roundTrip(t, s, protocol.OpProbe, protocol.EncodePoint(geom.Point{X: 60}), nil)
	if resp.Op != protocol.RespVal || !bytes.Equal(resp.Value, []byte{1}) {
		t.Fatalf("probe lit cell: op=%#x value=%v", resp.Op, resp.Value)
	}
	resp = roundTrip(t, s, protocol.OpProbe, protocol.EncodePoint(geom.Point{X: 61}), nil)
	if !bytes.Equal(resp.Value, []byte{0}) {
		t.Fatalf("probe dark cell: value=%v", resp.Value)
	}

	resp = roundTrip(t, s, protocol.OpStats, nil, nil)
	var stats map[string]interface{}
	if err := json.Unmarshal(resp.Value, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["lit_init_region"].(float64) != 101 {
		t.Fatalf("stats lit_init_region: %v", stats["lit_init_region"])
	}

	if resp := roundTrip(t, s, protocol.OpReset, nil, nil); resp.Op != protocol.RespOK {
		t.Fatalf("reset: op %#x", resp.Op)
	}
	resp = roundTrip(t, s, protocol.OpCount, nil, nil)
	if _, total, _ := protocol.DecodeCount(resp.Value); total != 0 {
		t.Fatalf("total after reset: %d", total)
	}

	if resp := roundTrip(t, s, 0x7e, nil, nil); resp.Op != protocol.RespErr {
		t.Fatalf("unknown op: got %#x", resp.Op)
	}
}

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"reactorcore/pkg/config"
	"reactorcore/pkg/core"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = t.TempDir()
	cfg.Storage.JournalBufferSize = 8
	cfg.Storage.JournalBatchSize = 4
	cfg.Storage.CheckpointEvery = 0
	reactor, err := core.NewReactor(cfg)
	if err != nil {
		t.Fatalf("new reactor: %v", err)
	}
	t.Cleanup(reactor.Close)
	return NewServer(reactor)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const smallExample = `on x=10..12,y=10..12,z=10..12
on x=11..13,y=11..13,z=11..13
off x=9..11,y=9..11,z=9..11
on x=10..10,y=10..10,z=10..10
`

func TestStepAndCount(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodPost, "/api/step", smallExample)
	if rec.Code != http.StatusOK {
		t.Fatalf("step expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var stepResp struct {
		Applied int `json:"applied"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stepResp); err != nil || stepResp.Applied != 4 {
		t.Fatalf("step response: %s (err=%v)", rec.Body.String(), err)
	}

	var count struct {
		InRegion int64 `json:"in_region"`
		Total    int64 `json:"total"`
	}
	rec = do(t, h, http.MethodGet, "/api/count", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &count); err != nil {
		t.Fatalf("decode count: %v", err)
	}
	if count.InRegion != 39 || count.Total != 39 {
		t.Fatalf("count: got %+v want 39/39", count)
	}

	rec = do(t, h, http.MethodGet, "/api/count?region="+url.QueryEscape("x=13..13,y=0..20,z=0..20"), "")
	if err := json.Unmarshal(rec.Body.Bytes(), &count); err != nil {
		t.Fatalf("decode count: %v", err)
	}
	if count.InRegion != 9 {
		t.Fatalf("count x=13 slab: got %d want 9", count.InRegion)
	}

	if rec := do(t, h, http.MethodGet, "/api/count?region=bogus", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad region expected 400, got %d", rec.Code)
	}
}

func TestStepRejectsMalformedBatch(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	body := "on x=0..1,y=0..1,z=0..1\nflip x=0..1,y=0..1,z=0..1\n"
	rec := do(t, h, http.MethodPost, "/api/step", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "line 2") {
		t.Fatalf("error should name the line: %q", rec.Body.String())
	}
	if _, total := s.reactor.Count(s.reactor.InitRegion()); total != 0 {
		t.Fatalf("partial batch applied, total=%d", total)
	}

	if rec := do(t, h, http.MethodGet, "/api/step", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET step expected 405, got %d", rec.Code)
	}
}

func TestStepRejectsOversizedBody(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	comment := "# " + strings.Repeat("x", 1021) + "\n"
	body := strings.Repeat(comment, maxStepBody/len(comment)) + "on x=0..0,y=0..0,z=0..1234\n"
	if len(body) <= maxStepBody {
		t.Fatalf("body of %d bytes does not exceed the cap", len(body))
	}

	rec := do(t, h, http.MethodPost, "/api/step", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, total := s.reactor.Count(s.reactor.InitRegion()); total != 0 {
		t.Fatalf("truncated body applied a step, total=%d", total)
	}
}

func TestProbeEntriesAndReset(t *testing.T) {
	h := newTestServer(t).Handler()
	do(t, h, http.MethodPost, "/api/step", "on x=0..4,y=0..4,z=0..4\noff x=2..2,y=2..2,z=2..2\n")

	var probe struct {
		On bool `json:"on"`
	}
	rec := do(t, h, http.MethodGet, "/api/probe?x=1&y=1&z=1", "")
	json.Unmarshal(rec.Body.Bytes(), &probe)
	if !probe.On {
		t.Fatalf("probe 1,1,1: %s", rec.Body.String())
	}
	rec = do(t, h, http.MethodGet, "/api/probe?x=2&y=2&z=2", "")
	json.Unmarshal(rec.Body.Bytes(), &probe)
	if probe.On {
		t.Fatalf("probe 2,2,2: %s", rec.Body.String())
	}
	if rec := do(t, h, http.MethodGet, "/api/probe?x=1&y=1", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("probe without z expected 400, got %d", rec.Code)
	}

	var entries struct {
		Count   int         `json:"count"`
		Entries []entryJSON `json:"entries"`
	}
	rec = do(t, h, http.MethodGet, "/api/entries?state=on", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	var cells int64
	for _, e := range entries.Entries {
		if e.State != "on" {
			t.Fatalf("state filter leaked %+v", e)
		}
		cells += e.Cells
	}
	if cells != 124 {
		t.Fatalf("lit cells across entries: got %d want 124", cells)
	}

	if rec := do(t, h, http.MethodPost, "/api/reset", ""); rec.Code != http.StatusOK {
		t.Fatalf("reset expected 200, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/entries", "")
	json.Unmarshal(rec.Body.Bytes(), &entries)
	if entries.Count != 0 {
		t.Fatalf("entries after reset: %d", entries.Count)
	}
}

func TestHandleMetricsExposesPrometheusFormat(t *testing.T) {
	h := newTestServer(t).Handler()
	do(t, h, http.MethodPost, "/api/step", smallExample)
	do(t, h, http.MethodGet, "/api/count", "")
	do(t, h, http.MethodGet, "/api/probe?x=0&y=0&z=0", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	want := []string{
		`reactor_steps_total{state="on"} 3`,
		`reactor_steps_total{state="off"} 1`,
		"reactor_count_queries_total 1",
		"reactor_probe_queries_total 1",
		"reactor_partition_entries",
		"reactor_lit_cells 39",
		"reactor_step_duration_seconds",
	}
	for _, m := range want {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metrics output to contain %q, body=%s", m, body)
		}
	}
}

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"reactorcore/pkg/core"
	"reactorcore/pkg/geom"
	"reactorcore/pkg/instr"
	"strconv"
	"strings"
	"time"
)

const maxStepBody = 1 << 20

type Server struct {
	reactor *core.Reactor
}

func NewServer(reactor *core.Reactor) *Server {
	return &Server{reactor: reactor}
}

// Handler routes every endpoint; Start serves it.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/step", s.handleStep)
	mux.HandleFunc("/api/count", s.handleCount)
	mux.HandleFunc("/api/probe", s.handleProbe)
	mux.HandleFunc("/api/entries", s.handleEntries)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.Handle("/metrics", s.reactor.Metrics().Handler())
	return mux
}

func (s *Server) Start(addr string) error {
	log.Printf("[API] Server listening on %s...", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// handleStep applies the instructions in the request body, one per line, as
// a single batch. Nothing is applied if any line is malformed.
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxStepBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}

	steps, err := instr.ParseAll(bytes.NewReader(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(steps) == 0 {
		http.Error(w, "no instructions", http.StatusBadRequest)
		return
	}

	start := time.Now()
	if err := s.reactor.ApplyAll(steps); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrClosed) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, map[string]interface{}{
		"applied":    len(steps),
		"latency_ns": time.Since(start).Nanoseconds(),
	})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	region := s.reactor.InitRegion()
	if q := r.URL.Query().Get("region"); q != "" {
		b, err := instr.ParseBox(q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		region = b
	}

	inRegion, total := s.reactor.Count(region)
	writeJSON(w, map[string]interface{}{
		"region":    region.String(),
		"in_region": inRegion,
		"total":     total,
	})
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	var coords [3]int64
	for i, name := range []string{"x", "y", "z"} {
		v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
		if err != nil {
			http.Error(w, "Invalid "+name, http.StatusBadRequest)
			return
		}
		coords[i] = v
	}
	p := geom.Point{X: coords[0], Y: coords[1], Z: coords[2]}

	writeJSON(w, map[string]interface{}{
		"x":  p.X,
		"y":  p.Y,
		"z":  p.Z,
		"on": s.reactor.IsOn(p),
	})
}

type entryJSON struct {
	State string `json:"state"`
	Box   string `json:"box"`
	Cells int64  `json:"cells"`
}

// handleEntries lists the partition. ?state=on restricts it to lit boxes.
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	onlyOn := strings.EqualFold(r.URL.Query().Get("state"), "on")

	entries := s.reactor.Entries()
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		if onlyOn && !e.On {
			continue
		}
		state := "off"
		if e.On {
			state = "on"
		}
		out = append(out, entryJSON{State: state, Box: e.Box.String(), Cells: e.Box.Volume()})
	}

	writeJSON(w, map[string]interface{}{
		"count":   len(out),
		"entries": out,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, s.reactor.Stats())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.reactor.Reset(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Reactor Reset Successful"))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

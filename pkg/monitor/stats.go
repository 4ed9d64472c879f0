package monitor

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkloadStats counts reactor traffic. Every counter is mirrored into a
// private Prometheus registry served by Handler.
type WorkloadStats struct {
	StepCount  uint64
	QueryCount uint64
	ProbeCount uint64

	registry    *prometheus.Registry
	steps       *prometheus.CounterVec
	queries     prometheus.Counter
	probes      prometheus.Counter
	fragments   prometheus.Counter
	entries     prometheus.Gauge
	lit         prometheus.Gauge
	stepLatency prometheus.Histogram
}

func NewWorkloadStats() *WorkloadStats {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &WorkloadStats{
		registry: reg,
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reactor_steps_total",
			Help: "Reboot steps applied, by target state.",
		}, []string{"state"}),
		queries: f.NewCounter(prometheus.CounterOpts{
			Name: "reactor_count_queries_total",
			Help: "Lit-cell count queries served.",
		}),
		probes: f.NewCounter(prometheus.CounterOpts{
			Name: "reactor_probe_queries_total",
			Help: "Single-cell probes served.",
		}),
		fragments: f.NewCounter(prometheus.CounterOpts{
			Name: "reactor_fragments_total",
			Help: "Boxes produced by splitting entries or pieces.",
		}),
		entries: f.NewGauge(prometheus.GaugeOpts{
			Name: "reactor_partition_entries",
			Help: "Boxes currently stored in the partition.",
		}),
		lit: f.NewGauge(prometheus.GaugeOpts{
			Name: "reactor_lit_cells",
			Help: "Cells currently on.",
		}),
		stepLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "reactor_step_duration_seconds",
			Help:    "Time spent inserting one step into the partition.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
}

func (ws *WorkloadStats) RecordStep(on bool, d time.Duration) {
	atomic.AddUint64(&ws.StepCount, 1)
	state := "off"
	if on {
		state = "on"
	}
	ws.steps.WithLabelValues(state).Inc()
	ws.stepLatency.Observe(d.Seconds())
}

func (ws *WorkloadStats) RecordQuery() {
	atomic.AddUint64(&ws.QueryCount, 1)
	ws.queries.Inc()
}

func (ws *WorkloadStats) RecordProbe() {
	atomic.AddUint64(&ws.ProbeCount, 1)
	ws.probes.Inc()
}

func (ws *WorkloadStats) AddFragments(n uint64) {
	ws.fragments.Add(float64(n))
}

// SetPartition publishes the current partition size and lit volume.
func (ws *WorkloadStats) SetPartition(entries int, lit int64) {
	ws.entries.Set(float64(entries))
	ws.lit.Set(float64(lit))
}

func (ws *WorkloadStats) GetReadWriteRatio() float64 {
	reads := atomic.LoadUint64(&ws.QueryCount) + atomic.LoadUint64(&ws.ProbeCount)
	writes := atomic.LoadUint64(&ws.StepCount)

	if writes == 0 {
		if reads > 0 {
			return 100.0
		}
		return 0.0
	}
	return float64(reads) / float64(writes)
}

func (ws *WorkloadStats) Registry() *prometheus.Registry {
	return ws.registry
}

func (ws *WorkloadStats) Handler() http.Handler {
	return promhttp.HandlerFor(ws.registry, promhttp.HandlerOpts{})
}

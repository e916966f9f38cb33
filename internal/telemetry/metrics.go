// Package telemetry exposes exotriage's operational counters to Prometheus.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/exotriage/exotriage/pkg/triage"
)

// Run outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Metrics is the fixed set of exotriage instruments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	runs        *prometheus.CounterVec
	runDuration prometheus.Summary
	enriched    prometheus.Counter
	incomplete  prometheus.Counter
	roles       *prometheus.CounterVec
	avgScore    prometheus.Gauge
	cache       *prometheus.CounterVec
	modelLoaded prometheus.Gauge
}

// NewRegistry returns a registry carrying the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewMetrics registers the exotriage instruments on reg. A nil reg gets a
// fresh, empty registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Registry: reg,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exotriage_discovery_runs_total",
			Help: "Discovery runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Name:       "exotriage_discovery_run_seconds",
			Help:       "Wall time of discovery runs.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}),
		enriched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exotriage_candidates_enriched_total",
			Help: "Candidates classified and triaged.",
		}),
		incomplete: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exotriage_candidates_incomplete_total",
			Help: "Candidates skipped for missing inputs.",
		}),
		roles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exotriage_roles_assigned_total",
			Help: "Role assignments by role and tier.",
		}, []string{"role", "priority"}),
		avgScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "exotriage_last_run_avg_priority_score",
			Help: "Average priority score of the last run.",
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exotriage_batch_cache_requests_total",
			Help: "Batch cache lookups by result.",
		}, []string{"result"}),
		modelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "exotriage_models_loaded",
			Help: "1 when a model handle is cached.",
		}),
	}
	reg.MustRegister(m.runs, m.runDuration, m.enriched, m.incomplete,
		m.roles, m.avgScore, m.cache, m.modelLoaded)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveRun records the outcome of one discovery run.
func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(d.Seconds())
}

// ObserveBatch records the candidates of a successful run.
func (m *Metrics) ObserveBatch(cands []triage.Candidate, incomplete int) {
	if m == nil {
		return
	}
	m.enriched.Add(float64(len(cands)))
	m.incomplete.Add(float64(incomplete))
	total := 0
	for i := range cands {
		total += cands[i].PriorityScore
		for _, r := range cands[i].Roles {
			m.roles.WithLabelValues(r.Role, string(r.Priority)).Inc()
		}
	}
	m.avgScore.Set(triage.Round(float64(total)/float64(max(1, len(cands))), 1))
}

// ObserveCache records a batch cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}

// SetModelLoaded records whether a model handle is cached.
func (m *Metrics) SetModelLoaded(loaded bool) {
	if m == nil {
		return
	}
	v := 0.0
	if loaded {
		v = 1
	}
	m.modelLoaded.Set(v)
}

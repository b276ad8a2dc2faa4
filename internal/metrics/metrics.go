// Package metrics exposes prometheus instrumentation for the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	JobsTotal         *prometheus.CounterVec
	TriageApplied     prometheus.Counter
	FilesDropped      prometheus.Counter
	TriageTokensSaved prometheus.Counter
	IngestDuration    prometheus.Histogram
	LLMDuration       prometheus.Histogram
}

// New creates and registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitdigest_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gitdigest_jobs_total",
			Help: "Digest jobs by terminal status.",
		}, []string{"status"}),
		TriageApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitdigest_triage_applied_total",
			Help: "Digests that exceeded the token budget and were trimmed.",
		}),
		FilesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitdigest_triage_files_dropped_total",
			Help: "File sections removed by triage.",
		}),
		TriageTokensSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gitdigest_triage_tokens_saved_total",
			Help: "Estimated tokens removed by triage.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gitdigest_ingest_duration_seconds",
			Help:    "Wall time of gitingest runs.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gitdigest_llm_duration_seconds",
			Help:    "Wall time of LLM summarization calls.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	reg.MustRegister(
		m.RequestsTotal, m.JobsTotal,
		m.TriageApplied, m.FilesDropped, m.TriageTokensSaved,
		m.IngestDuration, m.LLMDuration,
	)
	return m
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTriage records the outcome of one triage run.
func (m *Metrics) ObserveTriage(applied bool, preTokens, postTokens, filesDropped int) {
	if !applied {
		return
	}
	m.TriageApplied.Inc()
	m.FilesDropped.Add(float64(filesDropped))
	if saved := preTokens - postTokens; saved > 0 {
		m.TriageTokensSaved.Add(float64(saved))
	}
}

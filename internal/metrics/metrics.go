package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so tests can build as many as they like.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry         *prometheus.Registry
	transcriptProbes *prometheus.CounterVec
	intentFallbacks  *prometheus.CounterVec
	providerRequests *prometheus.CounterVec
	queryDuration    *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transcriptProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finchat_transcript_probes_total",
			Help: "Earnings call transcript probes by outcome (hit, miss, error).",
		}, []string{"outcome"}),
		intentFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finchat_intent_fallbacks_total",
			Help: "Intent extractions that degraded to the casual echo fallback.",
		}, []string{"reason"}),
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finchat_provider_requests_total",
			Help: "Financial data provider requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finchat_query_duration_seconds",
			Help:    "End-to-end query orchestration latency by terminal state.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"state"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.transcriptProbes,
		r.intentFallbacks,
		r.providerRequests,
		r.queryDuration,
	)
	return r
}

func (r *Recorder) TranscriptProbe(outcome string) {
	if r == nil {
		return
	}
	r.transcriptProbes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) IntentFallback(reason string) {
	if r == nil {
		return
	}
	r.intentFallbacks.WithLabelValues(reason).Inc()
}

func (r *Recorder) ProviderRequest(endpoint string, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.providerRequests.WithLabelValues(endpoint, outcome).Inc()
}

func (r *Recorder) QueryFinished(state string, started time.Time) {
	if r == nil {
		return
	}
	r.queryDuration.WithLabelValues(state).Observe(time.Since(started).Seconds())
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

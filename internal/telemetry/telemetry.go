// Package telemetry exposes Prometheus metrics for the report pipeline.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is a
// valid no-op receiver so tests and partial wirings can skip registration.
type Metrics struct {
	runs              *prometheus.CounterVec
	providerRequests  *prometheus.CounterVec
	llmRequestSeconds *prometheus.HistogramVec
	imagesValidated   *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors against reg. Pass
// prometheus.DefaultRegisterer in production.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reportgen_runs_total",
			Help: "Workflow runs by terminal outcome.",
		}, []string{"outcome"}),
		providerRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reportgen_provider_requests_total",
			Help: "Search provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		llmRequestSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reportgen_llm_request_seconds",
			Help:    "Latency of chat-completion calls by model.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"model"}),
		imagesValidated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "reportgen_images_validated_total",
			Help: "Vision validations by verdict.",
		}, []string{"verdict"}),
	}
}

// RecordRun counts a terminal run outcome: success, error, cancelled,
// cache_hit.
func (m *Metrics) RecordRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

// RecordProviderRequest counts one provider call. outcome is ok or error.
func (m *Metrics) RecordProviderRequest(provider string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.providerRequests.WithLabelValues(provider, outcome).Inc()
}

// ObserveLLMRequest records one chat-completion latency.
func (m *Metrics) ObserveLLMRequest(model string, d time.Duration) {
	if m == nil {
		return
	}
	m.llmRequestSeconds.WithLabelValues(model).Observe(d.Seconds())
}

// RecordImageVerdict counts a vision classification: valid or invalid.
func (m *Metrics) RecordImageVerdict(valid bool) {
	if m == nil {
		return
	}
	verdict := "valid"
	if !valid {
		verdict = "invalid"
	}
	m.imagesValidated.WithLabelValues(verdict).Inc()
}

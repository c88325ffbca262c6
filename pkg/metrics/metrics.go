package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector keeps its own registry so tests and embedders don't
// collide with the global one.
type PrometheusCollector struct {
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	tokensTotal        *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	storageCount       *prometheus.GaugeVec
	registry           *prometheus.Registry
}

var _ Collector = (*PrometheusCollector)(nil)

// NewCollector creates a Prometheus collector with all metrics registered.
func NewCollector() *PrometheusCollector {
	registry := prometheus.NewRegistry()

	generationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkwell_generations_total",
			Help: "Post generations by style and status",
		},
		[]string{"style", "status"},
	)

	generationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inkwell_generation_duration_seconds",
			Help:    "Latency of post generations by style",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"style"},
	)

	tokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkwell_llm_tokens_total",
			Help: "Tokens reported by the upstream model",
		},
		[]string{"kind"},
	)

	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inkwell_errors_total",
			Help: "Errors by operation and error type",
		},
		[]string{"operation", "error_type"},
	)

	storageCount := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inkwell_storage_count",
			Help: "Current count of stored items by kind",
		},
		[]string{"kind"},
	)

	registry.MustRegister(generationsTotal, generationDuration, tokensTotal, errorsTotal, storageCount)

	return &PrometheusCollector{
		generationsTotal:   generationsTotal,
		generationDuration: generationDuration,
		tokensTotal:        tokensTotal,
		errorsTotal:        errorsTotal,
		storageCount:       storageCount,
		registry:           registry,
	}
}

func (m *PrometheusCollector) RecordGeneration(_ context.Context, style string, status string, duration time.Duration) {
	m.generationsTotal.WithLabelValues(style, status).Inc()
	m.generationDuration.WithLabelValues(style).Observe(duration.Seconds())
}

func (m *PrometheusCollector) RecordTokens(_ context.Context, prompt int, completion int) {
	m.tokensTotal.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensTotal.WithLabelValues("completion").Add(float64(completion))
}

func (m *PrometheusCollector) RecordError(_ context.Context, operation string, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

func (m *PrometheusCollector) SetStorageCount(_ context.Context, kind string, count int64) {
	m.storageCount.WithLabelValues(kind).Set(float64(count))
}

// Registry returns the registry for HTTP exposure.
func (m *PrometheusCollector) Registry() *prometheus.Registry {
	return m.registry
}

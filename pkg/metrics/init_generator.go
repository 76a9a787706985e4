package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGeneratorMetrics() {
	r.GenerationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dra_generations_total",
			Help: "Total number of reliability model generations",
		},
		[]string{"status"},
	)

	r.GeneratorWarnings = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dra_generator_warnings_total",
			Help: "Non-fatal findings raised while generating models",
		},
		[]string{"code"},
	)

	r.GeneratedStates = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dra_generated_states",
			Help:    "Number of skill states per generated Markov model",
			Buckets: []float64{1, 5, 10, 50, 100, 200, 500, 1000},
		},
	)

	r.GenerationDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dra_generation_duration_seconds",
			Help:    "Model generation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)
}

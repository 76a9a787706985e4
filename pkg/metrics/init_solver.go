package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSolverMetrics() {
	r.SolvesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dra_solves_total",
			Help: "Total number of model solves",
		},
		[]string{"model", "strategy", "status"},
	)

	r.SolveDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dra_solve_duration_seconds",
			Help:    "Solve duration in seconds, sensitivity included",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"model"},
	)

	r.SolverIterations = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dra_solver_iterations",
			Help:    "Fixed-point iterations used by the iterative strategy",
			Buckets: []float64{10, 100, 1000, 10000, 100000},
		},
	)

	r.NonConvergenceTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dra_solver_nonconvergence_total",
			Help: "Markov solves that could not compute absorption",
		},
		[]string{"strategy", "reason"},
	)

	r.NumericRangeViolations = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "dra_solver_numeric_range_violations_total",
			Help: "Computed probabilities outside [0,1] beyond tolerance",
		},
	)

	r.SensitivityEvaluations = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dra_sensitivity_evaluations_total",
			Help: "Perturbed re-solves performed for sensitivity ranking",
		},
		[]string{"model"},
	)

	r.OverallFailure = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dra_overall_failure_probability",
			Help: "Overall failure probability of the last successful solve",
		},
		[]string{"model"},
	)
}

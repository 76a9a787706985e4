package metrics

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with every metric registered
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.initGeneratorMetrics()
	r.initSolverMetrics()
	r.initAssessmentMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// WriteText dumps every registered family in the Prometheus text
// exposition format
func (r *Registry) WriteText(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// RecordGeneration records one Generate call
func (r *Registry) RecordGeneration(status string, states int, duration time.Duration) {
	r.GenerationsTotal.WithLabelValues(status).Inc()
	r.GenerationDuration.Observe(duration.Seconds())
	if status == StatusSuccess {
		r.GeneratedStates.Observe(float64(states))
	}
}

// RecordWarning counts one generator warning by code
func (r *Registry) RecordWarning(code string) {
	r.GeneratorWarnings.WithLabelValues(code).Inc()
}

// RecordSolve records one Solve call. overall is only exported on success.
func (r *Registry) RecordSolve(model, strategy, status string, duration time.Duration, iterations int, overall float64) {
	r.SolvesTotal.WithLabelValues(model, strategy, status).Inc()
	r.SolveDuration.WithLabelValues(model).Observe(duration.Seconds())
	if iterations > 0 {
		r.SolverIterations.Observe(float64(iterations))
	}
	if status == StatusSuccess {
		r.OverallFailure.WithLabelValues(model).Set(overall)
	}
}

// RecordNonConvergence counts a Markov solve that failed to converge.
// reason is "iteration_bound" or "closed_class".
func (r *Registry) RecordNonConvergence(strategy, reason string) {
	r.NonConvergenceTotal.WithLabelValues(strategy, reason).Inc()
}

// RecordNumericRange counts a probability outside [0,1] beyond tolerance
func (r *Registry) RecordNumericRange() {
	r.NumericRangeViolations.Inc()
}

// RecordSensitivity counts perturbed re-solves
func (r *Registry) RecordSensitivity(model string, evaluations int) {
	r.SensitivityEvaluations.WithLabelValues(model).Add(float64(evaluations))
}

// RecordAssessment records one end-to-end run
func (r *Registry) RecordAssessment(status string, duration time.Duration) {
	r.AssessmentsTotal.WithLabelValues(status).Inc()
	r.AssessmentDuration.Observe(duration.Seconds())
	if status == StatusTimeout {
		r.AssessmentTimeouts.Inc()
	}
	r.LastAssessmentEpoch.SetToCurrentTime()
}

// RecordArchiveWrite records a report written to a sink ("file" or "s3")
func (r *Registry) RecordArchiveWrite(sink, status string) {
	r.ArchiveWritesTotal.WithLabelValues(sink, status).Inc()
}

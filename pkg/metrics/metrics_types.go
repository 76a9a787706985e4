package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every metric the assessment pipeline records
type Registry struct {
	// Generator
	GenerationsTotal   *prometheus.CounterVec
	GeneratorWarnings  *prometheus.CounterVec
	GeneratedStates    prometheus.Histogram
	GenerationDuration prometheus.Histogram

	// Solver
	SolvesTotal            *prometheus.CounterVec
	SolveDuration          *prometheus.HistogramVec
	SolverIterations       prometheus.Histogram
	NonConvergenceTotal    *prometheus.CounterVec
	NumericRangeViolations prometheus.Counter
	SensitivityEvaluations *prometheus.CounterVec
	OverallFailure         *prometheus.GaugeVec

	// Assessment runs
	AssessmentsTotal    *prometheus.CounterVec
	AssessmentDuration  prometheus.Histogram
	AssessmentTimeouts  prometheus.Counter
	ArchiveWritesTotal  *prometheus.CounterVec
	LastAssessmentEpoch prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.Mutex
}

// Status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

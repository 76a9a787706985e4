package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initAssessmentMetrics() {
	r.AssessmentsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dra_assessments_total",
			Help: "Total number of assessment runs",
		},
		[]string{"status"},
	)

	r.AssessmentDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dra_assessment_duration_seconds",
			Help:    "End-to-end assessment duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		},
	)

	r.AssessmentTimeouts = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "dra_assessment_timeouts_total",
			Help: "Assessments aborted by their deadline",
		},
	)

	r.ArchiveWritesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dra_archive_writes_total",
			Help: "Assessment reports written, by sink",
		},
		[]string{"sink", "status"},
	)

	r.LastAssessmentEpoch = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "dra_last_assessment_timestamp_seconds",
			Help: "Unix time of the last finished assessment",
		},
	)
}

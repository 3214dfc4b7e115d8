package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SubmissionMetrics covers the registration pipeline.
type SubmissionMetrics struct {
	SubmissionsTotal    prometheus.CounterVec
	RowsAppendedTotal   prometheus.Counter
	OCRFailuresTotal    prometheus.Counter
	NotifyFailuresTotal prometheus.Counter
	SubmissionDuration  prometheus.HistogramVec
}

func NewSubmissionMetrics() *SubmissionMetrics {
	return &SubmissionMetrics{
		SubmissionsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "submissions_total",
				Help: "Registration submissions by payment method and outcome",
			},
			[]string{"payment_method", "outcome"},
		),
		RowsAppendedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rows_appended_total",
				Help: "Spreadsheet rows appended",
			},
		),
		OCRFailuresTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ocr_failures_total",
				Help: "Vision extraction calls replaced by the sentinel result",
			},
		),
		NotifyFailuresTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "notify_failures_total",
				Help: "Telegram notification send failures",
			},
		),
		SubmissionDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "submission_duration_seconds",
				Help:    "End-to-end submission handling duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}
}

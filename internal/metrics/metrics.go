// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// Engine metrics
	ScoreComputations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "health_score_computations_total",
			Help: "Total number of health score computations",
		},
	)

	HealthScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "health_score_value",
			Help:    "Distribution of computed health scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	DosesLogged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medication_doses_logged_total",
			Help: "Total number of adherence log entries written",
		},
		[]string{"status"},
	)

	MedicationsReconciled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medications_reconciled_total",
			Help: "Medications auto-created by reminder reconciliation",
		},
	)

	// Sweep metrics
	SweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_sweeps_total",
			Help: "Total number of reminder sweep passes",
		},
	)

	RemindersMissed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_missed_total",
			Help: "Reminders transitioned from upcoming to missed",
		},
	)

	RemindersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_created_total",
			Help: "Reminders created, by origin",
		},
		[]string{"origin"}, // manual, assistant
	)

	// Storage metrics
	StaleWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "patient_record_stale_writes_total",
			Help: "Optimistic concurrency conflicts on the patient record",
		},
	)

	// Assistant metrics
	AssistantRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_requests_total",
			Help: "Assistant completion requests, by outcome",
		},
		[]string{"outcome"}, // ok, error, malformed
	)
)

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, statusText(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func statusText(code int) string {
	switch {
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

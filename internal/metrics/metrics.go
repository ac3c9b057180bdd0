package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Inbound updates by kind (command, callback, attachment) and status.
	UpdatesTotal          *prometheus.CounterVec
	UpdateDurationSeconds *prometheus.HistogramVec

	// Failed bot api calls by operation (send, edit, upload, answer).
	PlatformErrorsTotal *prometheus.CounterVec

	// Admin uploads by status (stored, refused, duplicate, error).
	UploadsTotal *prometheus.CounterVec

	UsersCreatedTotal prometheus.Counter
}

// New creates a new Metrics instance with all metrics registered
func New(registry prometheus.Registerer) *Metrics {
	return &Metrics{
		UpdatesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wattle_updates_total",
				Help: "Total number of handled updates by kind and status",
			},
			[]string{"kind", "status"},
		),

		UpdateDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wattle_update_duration_seconds",
				Help:    "Update handling duration in seconds by kind",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"kind"},
		),

		PlatformErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wattle_platform_errors_total",
				Help: "Total number of failed bot api calls by operation",
			},
			[]string{"operation"},
		),

		UploadsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wattle_uploads_total",
				Help: "Total number of admin uploads by status",
			},
			[]string{"status"},
		),

		UsersCreatedTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "wattle_users_created_total",
				Help: "Total number of users created on first contact",
			},
		),
	}
}

// NewNop returns metrics which are not exposed anywhere.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by the booking and assignment counters.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Reservation metrics collectors
var (
	ReservationsBookedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_booked_total",
			Help: "Total number of booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	TableAssignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "table_assignments_total",
			Help: "Total number of table assignment attempts by outcome",
		},
		[]string{"outcome"},
	)

	TableConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "table_conflicts_total",
			Help: "Total number of availability checks that found an overlapping reservation",
		},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reservation_operation_duration_seconds",
			Help:    "Duration of reservation engine operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_events_published_total",
			Help: "Total number of domain events handed to the broker",
		},
		[]string{"type", "status"},
	)
)

// ObserveDuration records the time elapsed since start for operation.
func ObserveDuration(operation string, start time.Time) {
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

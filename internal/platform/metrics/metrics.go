package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Services accept
// a *Metrics and nil-guard every increment so tests can pass nil.
type Metrics struct {
	RegistrationsTotal    prometheus.Counter
	AllocatorRetriesTotal prometheus.Counter
	ValidationChecksTotal *prometheus.CounterVec
	BookingsTotal         prometheus.Counter
	BookingRejectedTotal  *prometheus.CounterVec
	PaymentsTotal         prometheus.Counter
	ResultsRecordedTotal  prometheus.Counter
	RateLimitedTotal      prometheus.Counter
	HTTPDuration          *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		RegistrationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nbtbook_registrations_total",
			Help: "Total number of students registered",
		}),
		AllocatorRetriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nbtbook_allocator_retries_total",
			Help: "Student number allocations re-attempted after a uniqueness conflict",
		}),
		ValidationChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nbtbook_validation_checks_total",
			Help: "Identifier validation checks served by the public endpoints",
		}, []string{"kind", "outcome"}),
		BookingsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nbtbook_bookings_total",
			Help: "Total number of session bookings created",
		}),
		BookingRejectedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nbtbook_booking_rejected_total",
			Help: "Bookings rejected by a business rule",
		}, []string{"reason"}),
		PaymentsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nbtbook_payments_total",
			Help: "Total number of booking payments recorded",
		}),
		ResultsRecordedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nbtbook_results_recorded_total",
			Help: "Total number of test results recorded",
		}),
		RateLimitedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nbtbook_rate_limited_total",
			Help: "Requests rejected by the public endpoint rate limiter",
		}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nbtbook_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barolo",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "barolo",
			Name:      "bookings_created_total",
			Help:      "Bookings persisted by the lifecycle engine.",
		},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barolo",
			Name:      "status_transitions_total",
			Help:      "Successful booking status transitions by target status.",
		},
		[]string{"status"},
	)

	emailsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barolo",
			Name:      "emails_sent_total",
			Help:      "Notification emails delivered by kind.",
		},
		[]string{"kind"},
	)

	emailFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barolo",
			Name:      "email_failures_total",
			Help:      "Notification emails that failed to send by kind.",
		},
		[]string{"kind"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, statusTransitions, emailsSent, emailFailures)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBookingCreated counts a persisted booking.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncStatusTransition counts a successful transition into status.
func IncStatusTransition(status string) {
	statusTransitions.WithLabelValues(status).Inc()
}

// IncEmailSent counts a delivered notification of the given kind.
func IncEmailSent(kind string) {
	emailsSent.WithLabelValues(kind).Inc()
}

// IncEmailFailure counts a failed notification of the given kind.
func IncEmailFailure(kind string) {
	emailFailures.WithLabelValues(kind).Inc()
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loadboard",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	loadsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "loadboard",
			Name:      "loads_created_total",
			Help:      "Loads created after booking fee settlement.",
		},
	)

	quotesSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "loadboard",
			Name:      "quotes_submitted_total",
			Help:      "Quotes submitted by drivers.",
		},
	)

	quotesAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "loadboard",
			Name:      "quotes_accepted_total",
			Help:      "Quotes accepted by load owners.",
		},
	)

	paymentsConfirmed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loadboard",
			Name:      "payments_confirmed_total",
			Help:      "Settled payments by phase.",
		},
		[]string{"phase"},
	)

	paymentFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "loadboard",
			Name:      "payment_failures_total",
			Help:      "Payment confirmations rejected on verification.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			loadsCreated,
			quotesSubmitted,
			quotesAccepted,
			paymentsConfirmed,
			paymentFailures,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncLoadCreated counts a newly created load.
func IncLoadCreated() {
	loadsCreated.Inc()
}

// IncQuoteSubmitted counts a submitted quote.
func IncQuoteSubmitted() {
	quotesSubmitted.Inc()
}

// IncQuoteAccepted counts an accepted quote.
func IncQuoteAccepted() {
	quotesAccepted.Inc()
}

// IncPaymentConfirmed counts a settled payment for a phase.
func IncPaymentConfirmed(phase string) {
	paymentsConfirmed.WithLabelValues(phase).Inc()
}

// IncPaymentFailure counts a rejected payment confirmation.
func IncPaymentFailure() {
	paymentFailures.Inc()
}

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vilo"

var (
	once sync.Once

	quotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Count of price quotes by result.",
		},
		[]string{"result"},
	)

	quoteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_duration_seconds",
			Help:      "Time to build a quote, storage reads included.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
		},
	)

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Count of booking state changes by tenant and status.",
		},
		[]string{"tenant", "status"},
	)

	selectionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_clicks_total",
			Help:      "Count of calendar selection clicks by outcome.",
		},
		[]string{"outcome"},
	)

	availabilityCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_cache_total",
			Help:      "Availability cache lookups by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by route and status code.",
		},
		[]string{"method", "route", "code"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(quotes, quoteDuration, bookings, selectionOutcomes, availabilityCache, httpRequests)
	})
}

func ObserveQuote(result string, d time.Duration) {
	quotes.WithLabelValues(result).Inc()
	quoteDuration.Observe(d.Seconds())
}

func IncBooking(tenant, status string) {
	bookings.WithLabelValues(tenant, status).Inc()
}

func IncSelection(outcome string) {
	selectionOutcomes.WithLabelValues(outcome).Inc()
}

func IncCache(result string) {
	availabilityCache.WithLabelValues(result).Inc()
}

func IncHTTPRequest(method, route, code string) {
	httpRequests.WithLabelValues(method, route, code).Inc()
}

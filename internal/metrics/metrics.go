package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campnest",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "campnest",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	quotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campnest",
			Name:      "quotes_total",
			Help:      "Booking quotes by result.",
		},
		[]string{"result"},
	)

	checkoutSessions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campnest",
			Name:      "checkout_sessions_total",
			Help:      "Checkout sessions created with the payment provider.",
		},
	)

	bookingsConfirmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campnest",
			Name:      "bookings_confirmed_total",
			Help:      "Bookings persisted after successful payment.",
		},
	)

	bookingsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campnest",
			Name:      "bookings_cancelled_total",
			Help:      "Bookings cancelled by owners or admins.",
		},
	)

	paymentConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campnest",
			Name:      "payment_conflicts_total",
			Help:      "Paid sessions whose dates were no longer available at confirmation.",
		},
	)

	reconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campnest",
			Name:      "reconcile_jobs_total",
			Help:      "Reconcile worker job outcomes.",
		},
		[]string{"result"},
	)

	cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campnest",
			Name:      "availability_cache_hits_total",
			Help:      "Availability snapshot cache hits.",
		},
	)

	cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campnest",
			Name:      "availability_cache_misses_total",
			Help:      "Availability snapshot cache misses.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			quotes,
			checkoutSessions,
			bookingsConfirmed,
			bookingsCancelled,
			paymentConflicts,
			reconcileRuns,
			cacheHits,
			cacheMisses,
		)
	})
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncQuote counts a quote attempt by result label (ok, rejected, error).
func IncQuote(result string) {
	quotes.WithLabelValues(result).Inc()
}

func IncCheckoutSession()  { checkoutSessions.Inc() }
func IncBookingConfirmed() { bookingsConfirmed.Inc() }
func IncBookingCancelled() { bookingsCancelled.Inc() }
func IncPaymentConflict()  { paymentConflicts.Inc() }

// IncReconcile counts a reconcile job outcome (completed, retry, failed).
func IncReconcile(result string) {
	reconcileRuns.WithLabelValues(result).Inc()
}

func IncCacheHit()  { cacheHits.Inc() }
func IncCacheMiss() { cacheMisses.Inc() }

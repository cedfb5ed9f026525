package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"

	DecrementWon   = "won"
	DecrementLost  = "lost"
	DecrementError = "error"

	ReleaseRollback = "rollback"
	ReleaseCancel   = "cancel"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	ClaimBookings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_claim_bookings_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	ClaimCancellations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_claim_cancellations_total",
			Help: "Cancellation attempts by outcome",
		},
		[]string{"outcome"},
	)

	PoolDecrements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_pool_decrements_total",
			Help: "Conditional decrements by result; lost means another caller won the race",
		},
		[]string{"result"},
	)

	ReleasedUnits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_released_units_total",
			Help: "Units returned to pools",
		},
		[]string{"reason"},
	)

	ReleaseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocation_release_failures_total",
			Help: "Compensating increments that failed and left capacity stranded",
		},
	)

	PriceCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_price_cache_lookups_total",
			Help: "Unit price cache lookups by result",
		},
		[]string{"result"},
	)

	AllocationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "allocation_allocate_duration_seconds",
			Help:    "Time spent distributing a request across pools",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

package claims

import (
	"context"
	"fmt"
	"time"

	"ms-allocation/internal/logger"
	"ms-allocation/internal/models"
	"ms-allocation/internal/monitoring"
)

// Reservation is capacity taken from one pool on behalf of a single request.
type Reservation struct {
	PoolID   int64
	Quantity int
}

func totalReserved(reservations []Reservation) int {
	total := 0
	for _, r := range reservations {
		total += r.Quantity
	}
	return total
}

type Allocator struct {
	Store    CapacityStore
	Selector PoolSelector
	Logger   *logger.Logger
}

func NewAllocator(store CapacityStore, selector PoolSelector, log *logger.Logger) *Allocator {
	if selector == nil {
		selector = RandomSelector{}
	}
	return &Allocator{Store: store, Selector: selector, Logger: log}
}

// Allocate reserves quantity units for eventID across as many pools as it
// takes. It either returns reservations summing to quantity or an error with
// every partial reservation already given back.
func (a *Allocator) Allocate(ctx context.Context, eventID int64, quantity int) ([]Reservation, error) {
	if quantity <= 0 {
		return nil, models.ErrInvalidQuantity
	}

	started := time.Now()
	defer func() { monitoring.AllocationDuration.Observe(time.Since(started).Seconds()) }()

	pools, err := a.Store.ListPoolsWithCapacity(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list pools for event %d: %w: %w", eventID, models.ErrStoreUnavailable, err)
	}
	if len(pools) == 0 {
		return nil, models.ErrEventUnavailable
	}

	needed := quantity
	reservations := make([]Reservation, 0, 1)

	for _, pool := range a.Selector.Order(pools) {
		if needed == 0 {
			break
		}

		take := min(pool.Remaining, needed)
		if take <= 0 {
			continue
		}

		ok, err := a.Store.ConditionalDecrement(ctx, pool.ID, take)
		if err != nil {
			monitoring.PoolDecrements.WithLabelValues(monitoring.DecrementError).Inc()
			a.Logger.Error("ALLOCATION", fmt.Sprintf("decrement of pool %d failed: %v", pool.ID, err))
			a.Release(ctx, reservations)
			return nil, fmt.Errorf("decrement pool %d: %w: %w", pool.ID, models.ErrStoreUnavailable, err)
		}
		if !ok {
			// Snapshot was stale; another caller drained the pool first.
			monitoring.PoolDecrements.WithLabelValues(monitoring.DecrementLost).Inc()
			a.Logger.LogPool("LOST", pool.ID, fmt.Sprintf("could not take %d", take))
			continue
		}

		monitoring.PoolDecrements.WithLabelValues(monitoring.DecrementWon).Inc()
		a.Logger.LogPool("TAKE", pool.ID, fmt.Sprintf("took %d", take))
		reservations = append(reservations, Reservation{PoolID: pool.ID, Quantity: take})
		needed -= take
	}

	if needed > 0 {
		a.Logger.LogAllocation(eventID, fmt.Sprintf("short by %d of %d, rolling back %d unit(s) from %d reservation(s)",
			needed, quantity, totalReserved(reservations), len(reservations)))
		a.Release(ctx, reservations)
		return nil, models.ErrInsufficientCapacity
	}

	a.Logger.LogAllocation(eventID, fmt.Sprintf("reserved %d across %d pool(s)", quantity, len(reservations)))
	return reservations, nil
}

// Release returns reservations to their pools. Failures are logged and
// counted, never returned: the caller is already on an error path.
func (a *Allocator) Release(ctx context.Context, reservations []Reservation) {
	if len(reservations) == 0 {
		return
	}

	// The request may have been cancelled; compensation must still run.
	ctx = context.WithoutCancel(ctx)

	for _, r := range reservations {
		if err := a.Store.Increment(ctx, r.PoolID, r.Quantity); err != nil {
			monitoring.ReleaseFailures.Inc()
			a.Logger.Error("ALLOCATION", fmt.Sprintf("failed to return %d unit(s) to pool %d: %v", r.Quantity, r.PoolID, err))
			continue
		}
		monitoring.ReleasedUnits.WithLabelValues(monitoring.ReleaseRollback).Add(float64(r.Quantity))
		a.Logger.LogPool("RELEASE", r.PoolID, fmt.Sprintf("returned %d", r.Quantity))
	}
}

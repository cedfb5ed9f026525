package claims

import (
	"context"
	"fmt"

	"ms-allocation/internal/models"
)

const DefaultMaxPerUser = 2

// QuotaChecker is advisory: its read is not atomic with the claim insert
// that follows, so concurrent bookings by one holder can overshoot the
// limit unless a QuotaGuard serialises them.
type QuotaChecker struct {
	Store      ClaimStore
	MaxPerUser int
}

func NewQuotaChecker(store ClaimStore, maxPerUser int) *QuotaChecker {
	if maxPerUser <= 0 {
		maxPerUser = DefaultMaxPerUser
	}
	return &QuotaChecker{Store: store, MaxPerUser: maxPerUser}
}

// CurrentHoldings is the quantity of booked and pending claims the user
// holds for the event.
func (q *QuotaChecker) CurrentHoldings(ctx context.Context, userID, eventID int64) (int, error) {
	held, err := q.Store.SumActiveQuantity(ctx, userID, eventID)
	if err != nil {
		return 0, fmt.Errorf("sum holdings of user %d: %w: %w", userID, models.ErrStoreUnavailable, err)
	}
	return held, nil
}

func (q *QuotaChecker) Check(ctx context.Context, userID, eventID int64, requested int) error {
	if requested > q.MaxPerUser {
		return fmt.Errorf("%w: requested %d, limit %d", models.ErrQuotaExceeded, requested, q.MaxPerUser)
	}
	held, err := q.CurrentHoldings(ctx, userID, eventID)
	if err != nil {
		return err
	}
	// Subtract rather than add: held+requested can overflow.
	if requested > q.MaxPerUser-held {
		return fmt.Errorf("%w: holding %d, requested %d, limit %d", models.ErrQuotaExceeded, held, requested, q.MaxPerUser)
	}
	return nil
}

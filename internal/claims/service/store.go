package claims

import (
	"context"

	"ms-allocation/internal/models"

	"github.com/shopspring/decimal"
)

// CapacityStore holds the pool counters. ConditionalDecrement and Increment
// must be atomic and linearizable per pool; nothing else in this package
// mutates capacity.
type CapacityStore interface {
	ListPoolsWithCapacity(ctx context.Context, eventID int64) ([]models.Pool, error)
	ListPools(ctx context.Context, eventID int64) ([]models.Pool, error)
	ConditionalDecrement(ctx context.Context, poolID int64, n int) (bool, error)
	Increment(ctx context.Context, poolID int64, n int) error
	GetUnitPrice(ctx context.Context, eventID int64) (decimal.Decimal, error)
}

// ClaimStore persists claims. SetClaimState never moves a claim out of
// cancelled and returns models.ErrAlreadyCancelled if asked to.
type ClaimStore interface {
	SumActiveQuantity(ctx context.Context, userID, eventID int64) (int, error)
	CreateClaim(ctx context.Context, claim models.Claim) (*models.Claim, error)
	GetClaim(ctx context.Context, claimID int64) (*models.Claim, error)
	SetClaimState(ctx context.Context, claimID int64, state models.ClaimState) (*models.Claim, error)
}

// Transactor runs fn inside one atomic unit. The stores handed to fn are
// bound to that unit.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, capacity CapacityStore, claims ClaimStore) error) error
}

// QuotaGuard serialises bookings of one holder on one event. The returned
// release func must be called once the claim is persisted or abandoned.
type QuotaGuard interface {
	Acquire(ctx context.Context, userID, eventID int64) (release func(), err error)
}

type ClaimEventPublisher interface {
	PublishClaimBooked(ctx context.Context, claim models.Claim) error
	PublishClaimCancelled(ctx context.Context, claim models.Claim) error
}

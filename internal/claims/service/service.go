package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-allocation/internal/logger"
	"ms-allocation/internal/models"
	"ms-allocation/internal/monitoring"

	"github.com/shopspring/decimal"
)

// ClaimService books and cancels claims against pooled event capacity.
type ClaimService struct {
	Capacity  CapacityStore
	Claims    ClaimStore
	Allocator *Allocator
	Quota     *QuotaChecker
	Prices    *PriceResolver
	Selector  PoolSelector
	Tx        Transactor
	Guard     QuotaGuard
	Publisher ClaimEventPublisher
	Logger    *logger.Logger

	maxPerUser int
	now        func() time.Time
}

type Option func(*ClaimService)

func WithSelector(selector PoolSelector) Option {
	return func(s *ClaimService) {
		if selector != nil {
			s.Selector = selector
		}
	}
}

func WithMaxPerUser(n int) Option {
	return func(s *ClaimService) { s.maxPerUser = n }
}

// WithTransactor makes cancellation commit the state change and the pool
// increment atomically.
func WithTransactor(tx Transactor) Option {
	return func(s *ClaimService) { s.Tx = tx }
}

// WithQuotaGuard enables strict quota enforcement.
func WithQuotaGuard(guard QuotaGuard) Option {
	return func(s *ClaimService) { s.Guard = guard }
}

func WithPublisher(p ClaimEventPublisher) Option {
	return func(s *ClaimService) { s.Publisher = p }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *ClaimService) { s.Logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *ClaimService) { s.now = now }
}

func NewClaimService(capacity CapacityStore, claims ClaimStore, cache PriceCache, opts ...Option) *ClaimService {
	s := &ClaimService{
		Capacity:   capacity,
		Claims:     claims,
		Selector:   RandomSelector{},
		maxPerUser: DefaultMaxPerUser,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Allocator = NewAllocator(capacity, s.Selector, s.Logger)
	s.Quota = NewQuotaChecker(claims, s.maxPerUser)
	s.Prices = NewPriceResolver(capacity, cache, s.Logger)
	return s
}

// BookClaim reserves quantity units of eventID for holderID and records a
// booked claim. On any error no capacity stays reserved.
func (s *ClaimService) BookClaim(ctx context.Context, eventID int64, quantity int, holderID int64) (*models.Claim, error) {
	claim, err := s.bookClaim(ctx, eventID, quantity, holderID)
	monitoring.ClaimBookings.WithLabelValues(outcomeLabel(err)).Inc()
	if err != nil {
		s.Logger.Debug("CLAIM", fmt.Sprintf("booking of %d for user %d on event %d rejected: %v", quantity, holderID, eventID, err))
	}
	return claim, err
}

func (s *ClaimService) bookClaim(ctx context.Context, eventID int64, quantity int, holderID int64) (*models.Claim, error) {
	if quantity <= 0 {
		return nil, models.ErrInvalidQuantity
	}

	if s.Guard != nil {
		release, err := s.Guard.Acquire(ctx, holderID, eventID)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	if err := s.Quota.Check(ctx, holderID, eventID, quantity); err != nil {
		return nil, err
	}

	reservations, err := s.Allocator.Allocate(ctx, eventID, quantity)
	if err != nil {
		return nil, err
	}

	// From here on every failure must hand the reservations back.
	price, err := s.Prices.UnitPrice(ctx, eventID)
	if err != nil {
		s.Allocator.Release(ctx, reservations)
		return nil, err
	}

	claim, err := s.Claims.CreateClaim(ctx, models.Claim{
		EventID:   eventID,
		HolderID:  holderID,
		Quantity:  quantity,
		Amount:    price.Mul(decimal.NewFromInt(int64(quantity))),
		State:     models.ClaimStateBooked,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.Allocator.Release(ctx, reservations)
		return nil, storeFailure("create claim", err)
	}

	s.Logger.LogClaim("BOOKED", claim.ID, fmt.Sprintf("user %d took %d of event %d from %d pool(s)", holderID, quantity, eventID, len(reservations)))

	if s.Publisher != nil {
		if err := s.Publisher.PublishClaimBooked(ctx, *claim); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("publish claim %d booked: %v", claim.ID, err))
		}
	}
	return claim, nil
}

// CancelClaim moves the requester's claim to cancelled and returns its
// quantity to one of the event's pools.
func (s *ClaimService) CancelClaim(ctx context.Context, claimID, requesterID int64) (*models.Claim, error) {
	claim, err := s.cancelClaim(ctx, claimID, requesterID)
	monitoring.ClaimCancellations.WithLabelValues(outcomeLabel(err)).Inc()
	return claim, err
}

func (s *ClaimService) cancelClaim(ctx context.Context, claimID, requesterID int64) (*models.Claim, error) {
	claim, err := s.Claims.GetClaim(ctx, claimID)
	if err != nil {
		return nil, storeFailure("get claim", err, models.ErrClaimNotFound)
	}
	if claim.HolderID != requesterID {
		s.Logger.LogSecurity("CANCEL_DENIED", fmt.Sprintf("user %d tried to cancel claim %d of user %d", requesterID, claimID, claim.HolderID))
		return nil, models.ErrUnauthorized
	}
	if claim.State == models.ClaimStateCancelled {
		return nil, models.ErrAlreadyCancelled
	}

	var (
		updated *models.Claim
		target  int64
	)
	cancel := func(ctx context.Context, capacity CapacityStore, claims ClaimStore) error {
		u, err := claims.SetClaimState(ctx, claim.ID, models.ClaimStateCancelled)
		if err != nil {
			return err
		}
		updated = u

		poolID, err := s.returnCapacity(ctx, capacity, *u)
		if err != nil {
			return fmt.Errorf("return capacity of claim %d: %w", u.ID, err)
		}
		target = poolID
		return nil
	}

	if s.Tx != nil {
		err = s.Tx.WithinTx(ctx, cancel)
	} else {
		err = cancel(ctx, s.Capacity, s.Claims)
		if err != nil && updated != nil {
			s.Logger.Error("CLAIM", fmt.Sprintf("claim %d is cancelled but %d unit(s) were not returned: %v", updated.ID, updated.Quantity, err))
		}
	}
	if err != nil {
		return nil, storeFailure("cancel claim", err, models.ErrAlreadyCancelled, models.ErrClaimNotFound)
	}

	if target != 0 {
		monitoring.ReleasedUnits.WithLabelValues(monitoring.ReleaseCancel).Add(float64(updated.Quantity))
	}
	s.Logger.LogClaim("CANCELLED", updated.ID, fmt.Sprintf("returned %d unit(s) to pool %d", updated.Quantity, target))

	if s.Publisher != nil {
		if err := s.Publisher.PublishClaimCancelled(ctx, *updated); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("publish claim %d cancelled: %v", updated.ID, err))
		}
	}
	return updated, nil
}

// returnCapacity increments any pool of the claim's event. It reports the
// pool used, or 0 if the event no longer has pools.
func (s *ClaimService) returnCapacity(ctx context.Context, capacity CapacityStore, claim models.Claim) (int64, error) {
	pools, err := capacity.ListPools(ctx, claim.EventID)
	if err != nil {
		return 0, err
	}
	if len(pools) == 0 {
		s.Logger.Warn("CLAIM", fmt.Sprintf("event %d has no pools, %d unit(s) of claim %d dropped", claim.EventID, claim.Quantity, claim.ID))
		return 0, nil
	}

	pool := s.Selector.Pick(pools)
	if err := capacity.Increment(ctx, pool.ID, claim.Quantity); err != nil {
		return 0, err
	}
	return pool.ID, nil
}

func storeFailure(op string, err error, expected ...error) error {
	for _, e := range expected {
		if errors.Is(err, e) {
			return err
		}
	}
	if errors.Is(err, models.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return monitoring.OutcomeSuccess
	case errors.Is(err, models.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, models.ErrEventUnavailable):
		return "event_unavailable"
	case errors.Is(err, models.ErrInsufficientCapacity):
		return "insufficient_capacity"
	case errors.Is(err, models.ErrEventNotFound):
		return "event_not_found"
	case errors.Is(err, models.ErrClaimNotFound):
		return "claim_not_found"
	case errors.Is(err, models.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, models.ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, models.ErrQuotaLockBusy):
		return "lock_busy"
	case errors.Is(err, models.ErrInvalidQuantity):
		return "invalid"
	default:
		return "store_unavailable"
	}
}

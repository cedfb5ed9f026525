package analytics

import (
	"context"
	"errors"
	"fmt"

	"ms-allocation/internal/logger"
	"ms-allocation/internal/models"

	"github.com/shopspring/decimal"
)

// Store is the read side used to build inventory snapshots.
type Store interface {
	GetEvent(ctx context.Context, eventID int64) (*models.Event, error)
	GetPools(ctx context.Context, eventID int64) ([]models.Pool, error)
	GetClaimTotalsByState(ctx context.Context, eventID int64) ([]StateTotals, error)
}

// Service handles analytics operations
type Service struct {
	store  Store
	logger *logger.Logger
}

// NewService creates a new analytics service
func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, logger: log}
}

// GetInventory returns the capacity snapshot of an event owned by requesterID.
// Balanced reports whether remaining plus active claim quantity equals the
// capacity the event was created with.
func (s *Service) GetInventory(ctx context.Context, eventID, requesterID int64) (*models.InventorySnapshot, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, models.ErrEventNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get event %d: %w: %w", eventID, models.ErrStoreUnavailable, err)
	}
	if event.OwnerID != requesterID {
		s.logger.LogSecurity("INVENTORY_DENIED", fmt.Sprintf("user %d asked for inventory of event %d", requesterID, eventID))
		return nil, models.ErrUnauthorized
	}

	pools, err := s.store.GetPools(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get pools of event %d: %w: %w", eventID, models.ErrStoreUnavailable, err)
	}
	totals, err := s.store.GetClaimTotalsByState(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("sum claims of event %d: %w: %w", eventID, models.ErrStoreUnavailable, err)
	}

	snap := &models.InventorySnapshot{
		EventID:       eventID,
		TotalCapacity: event.TotalCapacity,
		BookedRevenue: decimal.Zero,
		Pools:         make([]models.PoolSnapshot, 0, len(pools)),
	}
	for _, p := range pools {
		snap.Remaining += p.Remaining
		snap.Pools = append(snap.Pools, models.PoolSnapshot{PoolID: p.ID, Remaining: p.Remaining})
	}
	for _, t := range totals {
		switch t.State {
		case models.ClaimStateBooked:
			snap.BookedQuantity += t.Quantity
			snap.BookedRevenue = snap.BookedRevenue.Add(t.Amount)
		case models.ClaimStatePending:
			snap.PendingQuantity += t.Quantity
		case models.ClaimStateCancelled:
			snap.CancelledQuantity += t.Quantity
		}
	}
	snap.Balanced = snap.Remaining+snap.BookedQuantity+snap.PendingQuantity == snap.TotalCapacity

	if !snap.Balanced {
		s.logger.Warn("ANALYTICS", fmt.Sprintf("event %d out of balance: remaining %d + active %d != capacity %d",
			eventID, snap.Remaining, snap.BookedQuantity+snap.PendingQuantity, snap.TotalCapacity))
	}
	return snap, nil
}

package analytics

import (
	"context"
	"database/sql"
	"errors"

	"ms-allocation/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// DB handles analytics database operations
type DB struct {
	bun *bun.DB
}

// NewDB creates a new analytics DB handler
func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// GetEvent retrieves the event without its pools
func (db *DB) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	var event models.Event
	err := db.bun.NewSelect().
		Model(&event).
		Where("id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrEventNotFound
	}
	return &event, err
}

// GetPools retrieves every pool of the event
func (db *DB) GetPools(ctx context.Context, eventID int64) ([]models.Pool, error) {
	var pools []models.Pool
	err := db.bun.NewSelect().
		Model(&pools).
		Where("event_id = ?", eventID).
		OrderExpr("id ASC").
		Scan(ctx)
	return pools, err
}

// StateTotals represents summed claim quantity and amount for one state
type StateTotals struct {
	State    models.ClaimState `bun:"state"`
	Quantity int               `bun:"quantity"`
	Amount   decimal.Decimal   `bun:"amount"`
}

// GetClaimTotalsByState aggregates the event's claims per state
func (db *DB) GetClaimTotalsByState(ctx context.Context, eventID int64) ([]StateTotals, error) {
	var totals []StateTotals
	err := db.bun.NewSelect().
		Model((*models.Claim)(nil)).
		Column("state").
		ColumnExpr("SUM(quantity) AS quantity").
		ColumnExpr("SUM(amount) AS amount").
		Where("event_id = ?", eventID).
		Group("state").
		Scan(ctx, &totals)
	return totals, err
}

package db

import (
	"context"
	"database/sql"
	"errors"

	"ms-allocation/internal/models"

	"github.com/shopspring/decimal"
)

// ---------------- POOLS ----------------

// ListPoolsWithCapacity → pools of the event that still have units left
func (d *DB) ListPoolsWithCapacity(ctx context.Context, eventID int64) ([]models.Pool, error) {
	var pools []models.Pool
	err := d.Bun.NewSelect().
		Model(&pools).
		Where("event_id = ?", eventID).
		Where("remaining > 0").
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return pools, nil
}

// ListPools → every pool of the event, drained ones included
func (d *DB) ListPools(ctx context.Context, eventID int64) ([]models.Pool, error) {
	var pools []models.Pool
	err := d.Bun.NewSelect().
		Model(&pools).
		Where("event_id = ?", eventID).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return pools, nil
}

// ConditionalDecrement takes n units from the pool in a single statement.
// It reports false when the pool no longer holds n units.
func (d *DB) ConditionalDecrement(ctx context.Context, poolID int64, n int) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Pool)(nil)).
		Set("remaining = remaining - ?", n).
		Where("id = ?", poolID).
		Where("remaining >= ?", n).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (d *DB) Increment(ctx context.Context, poolID int64, n int) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Pool)(nil)).
		Set("remaining = remaining + ?", n).
		Where("id = ?", poolID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrPoolNotFound
	}
	return nil
}

// GetUnitPrice → ticket price of the event
func (d *DB) GetUnitPrice(ctx context.Context, eventID int64) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Column("unit_price").
		Where("id = ?", eventID).
		Limit(1).
		Scan(ctx, &price)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, models.ErrEventNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return price, nil
}

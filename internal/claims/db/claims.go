package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ms-allocation/internal/models"

	"github.com/uptrace/bun"
)

var activeStates = []models.ClaimState{models.ClaimStateBooked, models.ClaimStatePending}

// ---------------- CLAIMS ----------------

// SumActiveQuantity → units the holder currently has on the event
func (d *DB) SumActiveQuantity(ctx context.Context, userID, eventID int64) (int, error) {
	var total int
	err := d.Bun.NewSelect().
		Model((*models.Claim)(nil)).
		ColumnExpr("COALESCE(SUM(quantity), 0)").
		Where("holder_id = ?", userID).
		Where("event_id = ?", eventID).
		Where("state IN (?)", bun.In(activeStates)).
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (d *DB) CreateClaim(ctx context.Context, claim models.Claim) (*models.Claim, error) {
	if _, err := d.Bun.NewInsert().Model(&claim).Exec(ctx); err != nil {
		return nil, err
	}
	return &claim, nil
}

func (d *DB) GetClaim(ctx context.Context, claimID int64) (*models.Claim, error) {
	var claim models.Claim
	err := d.Bun.NewSelect().
		Model(&claim).
		Where("id = ?", claimID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrClaimNotFound
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// SetClaimState moves a claim that is not yet cancelled to state. The guard
// lives in the WHERE clause, so of two concurrent cancels only one matches.
func (d *DB) SetClaimState(ctx context.Context, claimID int64, state models.ClaimState) (*models.Claim, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Claim)(nil)).
		Set("state = ?", state).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", claimID).
		Where("state <> ?", models.ClaimStateCancelled).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		if _, err := d.GetClaim(ctx, claimID); err != nil {
			return nil, err
		}
		return nil, models.ErrAlreadyCancelled
	}
	return d.GetClaim(ctx, claimID)
}

package db

import (
	"context"
	"database/sql"
	"errors"

	"ms-allocation/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// SaveEventWithPools inserts the event and its pools in one transaction and
// fills in the generated IDs.
func (d *DB) SaveEventWithPools(ctx context.Context, event *models.Event, pools []*models.Pool) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(event).Exec(ctx); err != nil {
			return err
		}
		if len(pools) == 0 {
			return nil
		}

		for _, p := range pools {
			p.EventID = event.ID
		}
		if _, err := tx.NewInsert().Model(&pools).Exec(ctx); err != nil {
			return err
		}
		event.Pools = pools
		return nil
	})
}

// GetEvent → event with its pools
func (d *DB) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Relation("Pools", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("id ASC")
		}).
		Where("?TableAlias.id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// DeleteEvent removes the event and its pools. Claims stay for the record.
func (d *DB) DeleteEvent(ctx context.Context, eventID int64) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Explicit so sqlite without foreign_keys=ON behaves like the others.
		if _, err := tx.NewDelete().
			Model((*models.Pool)(nil)).
			Where("event_id = ?", eventID).
			Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*models.Event)(nil)).
			Where("id = ?", eventID).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return models.ErrEventNotFound
		}
		return nil
	})
}

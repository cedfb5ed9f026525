package db

import (
	"context"
	"database/sql"

	claims "ms-allocation/internal/claims/service"

	"github.com/uptrace/bun"
)

// DB implements the claim and capacity stores on bun. Bun is either the
// shared *bun.DB or a bun.Tx when the DB was handed out by WithinTx.
type DB struct {
	Bun bun.IDB
}

func New(b bun.IDB) *DB {
	return &DB{Bun: b}
}

// WithinTx runs fn in a database transaction. Both stores passed to fn are
// bound to it, so a failure anywhere rolls back every write fn made.
func (d *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, capacity claims.CapacityStore, claimStore claims.ClaimStore) error) error {
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		txdb := &DB{Bun: tx}
		return fn(ctx, txdb, txdb)
	})
}

func rowsAffected(res sql.Result) (int64, error) {
	if res == nil {
		return 0, nil
	}
	return res.RowsAffected()
}

package database

import (
	"context"
	"fmt"

	"ms-allocation/internal/database/migrations"
	"ms-allocation/internal/logger"
	"ms-allocation/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// Prepare brings the schema up to date for the database's dialect.
func Prepare(ctx context.Context, db *bun.DB, log *logger.Logger) error {
	if db.Dialect().Name() != dialect.PG {
		log.Info("DATABASE", "Creating schema from models")
		return CreateSchema(ctx, db)
	}

	runner := migrations.NewRunner(db.DB, log)
	defer runner.Close()
	return runner.Up()
}

// CreateSchema creates the tables from the bun models. Postgres deployments
// use the versioned migrations instead; this serves sqlite and mysql.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	tables := []struct {
		name  string
		model any
		fk    string
	}{
		{name: "events", model: (*models.Event)(nil)},
		{name: "pools", model: (*models.Pool)(nil), fk: "(event_id) REFERENCES events (id) ON DELETE CASCADE"},
		{name: "claims", model: (*models.Claim)(nil)},
	}

	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		if t.fk != "" {
			q = q.ForeignKey(t.fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
	}

	// MySQL has no CREATE INDEX IF NOT EXISTS and indexes foreign keys itself.
	if db.Dialect().Name() == dialect.MySQL {
		return nil
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
	}{
		{(*models.Pool)(nil), "pools_event_id_idx", []string{"event_id"}},
		{(*models.Claim)(nil), "claims_holder_event_idx", []string{"holder_id", "event_id"}},
		{(*models.Claim)(nil), "claims_event_state_idx", []string{"event_id", "state"}},
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

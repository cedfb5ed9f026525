package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"ms-allocation/internal/config"
	"ms-allocation/internal/database"
	"ms-allocation/internal/database/migrations"
	"ms-allocation/internal/events"
	events_db "ms-allocation/internal/events/db"
	"ms-allocation/internal/logger"
	"ms-allocation/internal/models"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const usage = `Usage: migrate [flags] <up|down|to VERSION|version>

Flags:
`

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cfg := config.Load()

	flagSet := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVar(&cfg.Database.Driver, "driver", cfg.Database.Driver, "database driver: postgres, mysql or sqlite")
	flagSet.StringVar(&cfg.Database.DSN, "dsn", cfg.Database.DSN, "database connection string")
	flagSet.IntVar(&cfg.Database.MaxRetries, "retries", cfg.Database.MaxRetries, "connection attempts before giving up")
	seedCapacity := flagSet.Int("seed", 0, "after migrating up, create a demo event with this many units")
	flagSet.Usage = func() {
		fmt.Fprint(out, usage)
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return errors.New("missing command")
	}

	log := logger.NewWriterLogger(out)
	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	command := flagSet.Arg(0)
	if db.Dialect().Name() != dialect.PG {
		// Only "up" makes sense without versioned migrations.
		if command != "up" {
			return fmt.Errorf("%s is only supported on postgres", command)
		}
		if err := database.CreateSchema(ctx, db); err != nil {
			return err
		}
		log.Info("MIGRATION", "Schema created")
		return seed(ctx, db, *seedCapacity, cfg.Allocation.PoolShardSize, log)
	}

	runner := migrations.NewRunner(db.DB, log)
	defer runner.Close()

	switch command {
	case "up":
		if err := runner.Up(); err != nil {
			return err
		}
		return seed(ctx, db, *seedCapacity, cfg.Allocation.PoolShardSize, log)
	case "down":
		return runner.Down()
	case "to":
		if flagSet.NArg() < 2 {
			return errors.New("to needs a target version")
		}
		version, err := strconv.ParseUint(flagSet.Arg(1), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", flagSet.Arg(1), err)
		}
		return runner.To(uint(version))
	case "version":
		version, dirty, err := runner.Version()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "version %d dirty=%t\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// seed creates a demo event owned by user 1 so a fresh database can be booked against.
func seed(ctx context.Context, db *bun.DB, capacity, shardSize int, log *logger.Logger) error {
	if capacity <= 0 {
		return nil
	}
	svc := events.NewService(&events_db.DB{Bun: db}, shardSize, log)
	event, err := svc.CreateEvent(ctx, 1, models.EventCreateRequest{
		Name:      "Demo Event",
		Address:   "Main Hall",
		EventTime: time.Now().Add(30 * 24 * time.Hour).UTC(),
		PoolSize:  capacity,
		UnitPrice: decimal.RequireFromString("25.00"),
	})
	if err != nil {
		return fmt.Errorf("seed demo event: %w", err)
	}
	log.Info("MIGRATION", fmt.Sprintf("Seeded event %d with %d units in %d pools", event.ID, capacity, len(event.Pools)))
	return nil
}

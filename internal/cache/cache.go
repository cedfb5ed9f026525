package cache

import (
	"context"
	"errors"
	"fmt"

	"ms-allocation/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// PriceCache holds unit prices by event id.
type PriceCache interface {
	Get(ctx context.Context, eventID int64) (decimal.Decimal, bool, error)
	Set(ctx context.Context, eventID int64, price decimal.Decimal) error
	Invalidate(ctx context.Context, eventID int64) error
}

// New builds the configured backend. The redis backend needs a client.
func New(cfg config.PriceCacheConfig, client *redis.Client) (PriceCache, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryPriceCache(cfg.Size, cfg.TTL)
	case BackendRedis:
		if client == nil {
			return nil, errors.New("redis price cache requires REDIS_ENABLED")
		}
		return NewRedisPriceCache(client, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown price cache backend %q", cfg.Backend)
	}
}

package claims

import (
	"context"
	"errors"
	"fmt"

	"ms-allocation/internal/logger"
	"ms-allocation/internal/models"
	"ms-allocation/internal/monitoring"

	"github.com/shopspring/decimal"
)

// PriceCache is a bounded, time-expiring map of event ID to unit price.
// Implementations live in internal/cache.
type PriceCache interface {
	Get(ctx context.Context, eventID int64) (decimal.Decimal, bool, error)
	Set(ctx context.Context, eventID int64, price decimal.Decimal) error
}

type PriceSource interface {
	GetUnitPrice(ctx context.Context, eventID int64) (decimal.Decimal, error)
}

// PriceResolver reads through the cache. Prices are not expected to change
// once an event is published, so entries may be stale for up to the TTL.
type PriceResolver struct {
	Source PriceSource
	Cache  PriceCache
	Logger *logger.Logger
}

func NewPriceResolver(source PriceSource, cache PriceCache, log *logger.Logger) *PriceResolver {
	return &PriceResolver{Source: source, Cache: cache, Logger: log}
}

func (r *PriceResolver) UnitPrice(ctx context.Context, eventID int64) (decimal.Decimal, error) {
	if r.Cache != nil {
		price, ok, err := r.Cache.Get(ctx, eventID)
		if err != nil {
			r.Logger.Warn("PRICE", fmt.Sprintf("cache read for event %d failed, falling back to store: %v", eventID, err))
		} else if ok {
			monitoring.PriceCacheLookups.WithLabelValues(monitoring.CacheHit).Inc()
			return price, nil
		}
	}
	monitoring.PriceCacheLookups.WithLabelValues(monitoring.CacheMiss).Inc()

	price, err := r.Source.GetUnitPrice(ctx, eventID)
	if err != nil {
		if errors.Is(err, models.ErrEventNotFound) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("read price of event %d: %w: %w", eventID, models.ErrStoreUnavailable, err)
	}

	if r.Cache != nil {
		// Concurrent misses may both populate the entry.
		if err := r.Cache.Set(ctx, eventID, price); err != nil {
			r.Logger.Warn("PRICE", fmt.Sprintf("cache write for event %d failed: %v", eventID, err))
		}
	}
	return price, nil
}

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/shopspring/decimal"
)

const (
	DefaultSize = 10000
	DefaultTTL  = time.Hour
)

// MemoryPriceCache is a process-local price cache. Entries cost 1 and the
// internal per-item overhead is not charged, so size bounds the number of
// events held.
type MemoryPriceCache struct {
	cache *ristretto.Cache[int64, decimal.Decimal]
	ttl   time.Duration
}

func NewMemoryPriceCache(size int64, ttl time.Duration) (*MemoryPriceCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c, err := ristretto.NewCache(&ristretto.Config[int64, decimal.Decimal]{
		NumCounters:        size * 10,
		MaxCost:            size,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create price cache: %w", err)
	}
	return &MemoryPriceCache{cache: c, ttl: ttl}, nil
}

func (m *MemoryPriceCache) Get(_ context.Context, eventID int64) (decimal.Decimal, bool, error) {
	price, ok := m.cache.Get(eventID)
	return price, ok, nil
}

// Set may be dropped by the admission policy; a later miss just reads the
// store again.
func (m *MemoryPriceCache) Set(_ context.Context, eventID int64, price decimal.Decimal) error {
	m.cache.SetWithTTL(eventID, price, 1, m.ttl)
	m.cache.Wait()
	return nil
}

// Invalidate drops the event's entry, e.g. after the event is deleted.
func (m *MemoryPriceCache) Invalidate(_ context.Context, eventID int64) error {
	m.cache.Del(eventID)
	return nil
}

func (m *MemoryPriceCache) Close() {
	m.cache.Close()
}

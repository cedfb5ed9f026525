package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// RedisPriceCache shares prices between service instances. Values are the
// decimal's string form so no precision is lost.
type RedisPriceCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisPriceCache(client *redis.Client, ttl time.Duration) *RedisPriceCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisPriceCache{Client: client, TTL: ttl}
}

func priceKey(eventID int64) string {
	return fmt.Sprintf("price:%d", eventID)
}

func (r *RedisPriceCache) Get(ctx context.Context, eventID int64) (decimal.Decimal, bool, error) {
	val, err := r.Client.Get(ctx, priceKey(eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}

	price, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("corrupt cached price for event %d: %w", eventID, err)
	}
	return price, true, nil
}

func (r *RedisPriceCache) Set(ctx context.Context, eventID int64, price decimal.Decimal) error {
	return r.Client.Set(ctx, priceKey(eventID), price.String(), r.TTL).Err()
}

func (r *RedisPriceCache) Invalidate(ctx context.Context, eventID int64) error {
	return r.Client.Del(ctx, priceKey(eventID)).Err()
}

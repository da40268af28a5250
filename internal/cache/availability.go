// Package cache keeps unavailable-date sets in Redis so calendar reads skip the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vilo/internal/stay"
)

// ErrCacheMiss is returned when no entry exists for the key.
var ErrCacheMiss = errors.New("cache miss")

const keyPrefix = "availability:"

// AvailabilityCache stores the unavailable dates of a room for a date window.
// A nil cache or one without a client behaves as always-miss.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAvailabilityCache configures a cache with entries living for ttl.
func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AvailabilityCache{client: client, ttl: ttl}
}

// Key returns the Redis key of a room window.
func Key(roomID int64, window stay.StayRange) string {
	return fmt.Sprintf("%s%d:%s:%s", keyPrefix, roomID, window.Start, window.End)
}

func (c *AvailabilityCache) enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached set or ErrCacheMiss.
func (c *AvailabilityCache) Get(ctx context.Context, roomID int64, window stay.StayRange) (stay.DateSet, error) {
	if !c.enabled() {
		return nil, ErrCacheMiss
	}

	val, err := c.client.Get(ctx, Key(roomID, window)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var dates []string
	if err := json.Unmarshal(val, &dates); err != nil {
		return nil, fmt.Errorf("decode cached availability: %w", err)
	}
	return stay.ParseDateSet(dates)
}

// Set stores the set for the window.
func (c *AvailabilityCache) Set(ctx context.Context, roomID int64, window stay.StayRange, set stay.DateSet) error {
	if !c.enabled() {
		return nil
	}

	data, err := json.Marshal(set.Strings())
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(roomID, window), data, c.ttl).Err()
}

// InvalidateRoom drops every cached window of a room and returns the number of removed keys.
func (c *AvailabilityCache) InvalidateRoom(ctx context.Context, roomID int64) (int, error) {
	if !c.enabled() {
		return 0, nil
	}

	pattern := fmt.Sprintf("%s%d:*", keyPrefix, roomID)
	removed := 0
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			n, err := c.client.Del(ctx, batch...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan: %w", err)
	}
	if len(batch) > 0 {
		n, err := c.client.Del(ctx, batch...).Result()
		if err != nil {
			return removed, err
		}
		removed += int(n)
	}
	return removed, nil
}

// Ping checks the Redis connection.
func (c *AvailabilityCache) Ping(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

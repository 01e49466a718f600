// Package repository holds the Redis-backed read caches. Redis is
// optional at runtime; every cache degrades to a no-op when the client
// is nil so an outage never blocks bookings.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"campnest/internal/config"
	"campnest/internal/models"
)

// NewRedisClient builds a client from config. It does not dial; call
// Ping to verify the connection.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	client := redis.NewClient(options)

	return client
}

// Ping checks whether Redis is reachable.
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}

// AvailabilityCache caches campground availability snapshots. Entries
// are short-lived; confirmation always re-checks the database, so a
// stale snapshot can never oversell a site.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{
		client: client,
		ttl:    ttl,
	}
}

func snapshotKey(campgroundID int64, start, end time.Time) string {
	return fmt.Sprintf("availability:%d:%s:%s",
		campgroundID, start.Format(models.DateFormat), end.Format(models.DateFormat))
}

// Get returns a cached snapshot, or (nil, false) on miss or when the
// cache is disabled.
func (c *AvailabilityCache) Get(ctx context.Context, campgroundID int64, start, end time.Time) ([]models.CampsiteAvailability, bool) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return nil, false
	}
	val, err := c.client.Get(ctx, snapshotKey(campgroundID, start, end)).Result()
	if err != nil {
		return nil, false
	}
	var snapshot []models.CampsiteAvailability
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		return nil, false
	}
	return snapshot, true
}

// Set stores a snapshot with the cache TTL. Failures are swallowed;
// the cache is best effort.
func (c *AvailabilityCache) Set(ctx context.Context, campgroundID int64, start, end time.Time, snapshot []models.CampsiteAvailability) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, snapshotKey(campgroundID, start, end), data, c.ttl).Err()
}

// InvalidateCampground drops every cached window for a campground.
// Called after a booking is confirmed or cancelled.
func (c *AvailabilityCache) InvalidateCampground(ctx context.Context, campgroundID int64) {
	if c == nil || c.client == nil {
		return
	}
	pattern := fmt.Sprintf("availability:%d:*", campgroundID)
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			_ = c.client.Del(ctx, keys...).Err()
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}

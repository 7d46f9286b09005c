// Package redisx holds the Redis-backed webhook dedup cache.
package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// dedup:{provider}:{event_id}
	KeyDedup = "dedup:%s:%s"

	TTLDedup = 48 * time.Hour
)

func New(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

func DedupKey(provider, eventID string) string {
	return fmt.Sprintf(KeyDedup, provider, eventID)
}

// Dedup remembers which provider events were fully processed.
type Dedup struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDedup(rdb *redis.Client, ttl time.Duration) *Dedup {
	if ttl <= 0 {
		ttl = TTLDedup
	}
	return &Dedup{rdb: rdb, ttl: ttl}
}

func (d *Dedup) Seen(ctx context.Context, provider, eventID string) (bool, error) {
	n, err := d.rdb.Exists(ctx, DedupKey(provider, eventID)).Result()
	return n > 0, err
}

func (d *Dedup) Mark(ctx context.Context, provider, eventID string) error {
	return d.rdb.Set(ctx, DedupKey(provider, eventID), time.Now().UTC().Format(time.RFC3339), d.ttl).Err()
}

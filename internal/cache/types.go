// Package cache implements the content-addressed response cache. A hit
// short-circuits the whole dispatch pipeline; entries expire lazily on
// read and are replaced wholesale on the next store.
package cache

import (
	"context"
	"time"
)

// Cache is the byte-level store under the response cache. Get returns
// (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Stats() Stats
	Close() error
}

// Stats holds cache counters for monitoring.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	HitRate float64 `json:"hit_rate"`
}

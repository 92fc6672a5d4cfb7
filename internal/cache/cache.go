// Package cache holds the in-process summary cache.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is a keyed store with expiry.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Purge drops every entry.
	Purge()
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries on demand.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically cleans the registered caches.
type Janitor struct {
	caches []Cleaner
}

// NewJanitor returns a janitor for caches.
func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{caches: caches}
}

// Register adds a cache to the janitor.
func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Run cleans every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				slog.DebugContext(ctx, "Expired cache entries removed", "component", "cache", "count", n)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Sweep cleans every registered cache once and returns the entries removed.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

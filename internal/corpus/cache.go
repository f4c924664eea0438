// Package corpus holds the in-memory view of the quote corpus and the
// sampling rules built on top of it.
package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"hitokoto/internal/db"
)

// Source is the part of the backing store a Cache reads from.
type Source interface {
	Stats(ctx context.Context) (db.Stats, error)
	ListIdentifiers(ctx context.Context) ([]string, error)
}

// Snapshot is one published generation of corpus aggregates. It is never
// modified after publication; readers may keep it for as long as they like.
type Snapshot struct {
	Count     int64
	MinLength int
	MaxLength int
	// Identifiers is nil when the cache tracks aggregates only.
	Identifiers []string
	RefreshedAt time.Time
}

// HasIdentifiers reports whether the snapshot carries the identifier list.
func (s *Snapshot) HasIdentifiers() bool {
	return s.Identifiers != nil
}

var emptySnapshot = &Snapshot{}

// Cache publishes corpus snapshots. Reads are wait-free; Refresh replaces
// the whole snapshot at once, so a reader sees either the old or the new
// generation and never a mix of both.
type Cache struct {
	src             Source
	withIdentifiers bool

	refreshMu sync.Mutex
	snapshot  atomic.Pointer[Snapshot]
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithoutIdentifiers makes the cache track aggregates only. Unfiltered
// sampling then falls back to offset lookups.
func WithoutIdentifiers() CacheOption {
	return func(c *Cache) { c.withIdentifiers = false }
}

// NewCache creates a cache over src. It holds an empty snapshot until the first Refresh.
func NewCache(src Source, opts ...CacheOption) *Cache {
	c := &Cache{src: src, withIdentifiers: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh reads aggregates and identifiers from the store and publishes
// them as one snapshot. On any error the previous snapshot stays published.
func (c *Cache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	start := time.Now()
	stats, err := c.src.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read corpus stats: %w", err)
	}

	next := &Snapshot{
		Count:     stats.Count,
		MinLength: stats.MinLength,
		MaxLength: stats.MaxLength,
	}

	if c.withIdentifiers {
		ids, err := c.src.ListIdentifiers(ctx)
		if err != nil {
			return fmt.Errorf("failed to list identifiers: %w", err)
		}
		if int64(len(ids)) != stats.Count {
			return fmt.Errorf("%w: counted %d, listed %d", db.ErrSnapshotSkew, stats.Count, len(ids))
		}
		if ids == nil {
			ids = []string{}
		}
		next.Identifiers = ids
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	next.RefreshedAt = time.Now()
	c.snapshot.Store(next)

	slog.Info("corpus cache refreshed",
		"count", next.Count,
		"min_length", next.MinLength,
		"max_length", next.MaxLength,
		"identifiers", next.HasIdentifiers(),
		"duration", time.Since(start))
	return nil
}

// Snapshot returns the currently published snapshot.
func (c *Cache) Snapshot() *Snapshot {
	if s := c.snapshot.Load(); s != nil {
		return s
	}
	return emptySnapshot
}

// Count returns the number of records in the current snapshot.
func (c *Cache) Count() int64 {
	return c.Snapshot().Count
}

// LengthBounds returns the shortest and longest record length in the current snapshot.
func (c *Cache) LengthBounds() (int, int) {
	s := c.Snapshot()
	return s.MinLength, s.MaxLength
}

// Identifiers returns the identifier list of the current snapshot.
// The slice is shared and must not be modified.
func (c *Cache) Identifiers() []string {
	return c.Snapshot().Identifiers
}

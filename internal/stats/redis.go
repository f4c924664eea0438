package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var _ Counter = (*RedisCounter)(nil)

// RedisCounter keeps one sorted set per window in Redis so that several
// instances share their request counts. Scores are unix microseconds.
type RedisCounter struct {
	rdb       redis.Cmdable
	windows   Windows
	prefix    string
	now       func() time.Time
	maxEvents int
}

// NewRedisCounter creates a counter storing windows under prefix.
func NewRedisCounter(rdb redis.Cmdable, ws Windows, prefix string, opts ...Option) *RedisCounter {
	o := buildOptions(opts)
	if prefix = strings.Trim(prefix, ":"); prefix == "" {
		prefix = "hitokoto:requests"
	}
	return &RedisCounter{
		rdb:       rdb,
		windows:   ws,
		prefix:    prefix,
		now:       o.now,
		maxEvents: o.maxEvents,
	}
}

// Increment trims and appends to every window in one MULTI/EXEC.
func (c *RedisCounter) Increment(ctx context.Context) error {
	now := c.now()
	member := uuid.NewString()
	score := float64(now.UnixMicro())

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, w := range c.windows {
			key := c.key(w.Name)
			pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff(now, w.Duration))
			pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: member})
			if c.maxEvents > 0 {
				pipe.ZRemRangeByRank(ctx, key, 0, int64(-c.maxEvents-1))
			}
			pipe.PExpire(ctx, key, w.Duration)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}
	return nil
}

// Count trims the named window and returns its size.
func (c *RedisCounter) Count(ctx context.Context, name string) (int64, error) {
	for _, w := range c.windows {
		if w.Name == name {
			return c.count(ctx, w, c.now())
		}
	}
	return 0, ErrUnknownWindow
}

// Snapshot returns the count of every window.
func (c *RedisCounter) Snapshot(ctx context.Context) ([]WindowCount, error) {
	now := c.now()
	counts := make([]WindowCount, len(c.windows))
	for i, w := range c.windows {
		n, err := c.count(ctx, w, now)
		if err != nil {
			return nil, err
		}
		counts[i] = WindowCount{Name: w.Name, Count: n}
	}
	return counts, nil
}

// Windows lists the tracked windows.
func (c *RedisCounter) Windows() Windows {
	return append(Windows(nil), c.windows...)
}

func (c *RedisCounter) count(ctx context.Context, w Window, now time.Time) (int64, error) {
	key := c.key(w.Name)
	var card *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff(now, w.Duration))
		card = pipe.ZCard(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count window %s: %w", w.Name, err)
	}
	return card.Val(), nil
}

func (c *RedisCounter) key(name string) string {
	return c.prefix + ":" + name
}

// cutoff is the inclusive upper score bound of expired events.
func cutoff(now time.Time, d time.Duration) string {
	return strconv.FormatInt(now.Add(-d).UnixMicro(), 10)
}

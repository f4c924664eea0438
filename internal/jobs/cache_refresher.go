package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Refresher is the cache operation the job drives.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshObserver is told the outcome of every refresh.
type RefreshObserver interface {
	ObserveRefresh(trigger string, err error)
}

// TriggerPeriodic labels refreshes started by the job.
const TriggerPeriodic = "periodic"

// CacheRefresher periodically republishes the corpus snapshot so that quotes
// written to the store behind the service's back become visible.
type CacheRefresher struct {
	cache    Refresher
	interval time.Duration
	timeout  time.Duration
	observer RefreshObserver
}

// NewCacheRefresher creates a refresh job. observer may be nil.
func NewCacheRefresher(cache Refresher, interval time.Duration, observer RefreshObserver) *CacheRefresher {
	timeout := interval
	if timeout <= 0 || timeout > time.Minute {
		timeout = time.Minute
	}
	return &CacheRefresher{
		cache:    cache,
		interval: interval,
		timeout:  timeout,
		observer: observer,
	}
}

// Start runs the refresh loop until ctx is cancelled. The first refresh
// happens one interval after start; the caller refreshes at startup.
func (r *CacheRefresher) Start(ctx context.Context) {
	slog.Info("cache refresher started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cache refresher stopped")
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// refresh runs one bounded refresh. A failure keeps the previous snapshot.
func (r *CacheRefresher) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.cache.Refresh(ctx)
	if r.observer != nil {
		r.observer.ObserveRefresh(TriggerPeriodic, err)
	}
	if err != nil && ctx.Err() == nil {
		slog.Error("cache refresh failed", "error", err)
	}
}

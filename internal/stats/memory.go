package stats

import (
	"context"
	"sync"
	"time"
)

var _ Counter = (*MemoryCounter)(nil)

// MemoryCounter keeps every event timestamp in process memory.
type MemoryCounter struct {
	windows []*slidingWindow
	byName  map[string]*slidingWindow
	now     func() time.Time
}

// slidingWindow holds non-decreasing timestamps, oldest first.
type slidingWindow struct {
	Window
	maxEvents int

	mu     sync.Mutex
	events []time.Time
}

// NewMemoryCounter creates a counter over ws. Windows are touched in the
// order given on every increment.
func NewMemoryCounter(ws Windows, opts ...Option) *MemoryCounter {
	o := buildOptions(opts)
	c := &MemoryCounter{
		windows: make([]*slidingWindow, len(ws)),
		byName:  make(map[string]*slidingWindow, len(ws)),
		now:     o.now,
	}
	for i, w := range ws {
		sw := &slidingWindow{Window: w, maxEvents: o.maxEvents}
		c.windows[i] = sw
		c.byName[w.Name] = sw
	}
	return c
}

// Increment records one event at the current time in every window.
func (c *MemoryCounter) Increment(context.Context) error {
	now := c.now()
	for _, w := range c.windows {
		w.add(now)
	}
	return nil
}

// Count returns the number of events newer than now minus the window.
func (c *MemoryCounter) Count(_ context.Context, name string) (int64, error) {
	w, ok := c.byName[name]
	if !ok {
		return 0, ErrUnknownWindow
	}
	return w.count(c.now()), nil
}

// Snapshot returns the count of every window.
func (c *MemoryCounter) Snapshot(context.Context) ([]WindowCount, error) {
	now := c.now()
	counts := make([]WindowCount, len(c.windows))
	for i, w := range c.windows {
		counts[i] = WindowCount{Name: w.Name, Count: w.count(now)}
	}
	return counts, nil
}

// Windows lists the tracked windows.
func (c *MemoryCounter) Windows() Windows {
	ws := make(Windows, len(c.windows))
	for i, w := range c.windows {
		ws[i] = w.Window
	}
	return ws
}

func (w *slidingWindow) add(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Keep the sequence ordered even if the clock steps backwards.
	if n := len(w.events); n > 0 && now.Before(w.events[n-1]) {
		now = w.events[n-1]
	}
	w.evict(now)
	w.events = append(w.events, now)
	if w.maxEvents > 0 && len(w.events) > w.maxEvents {
		w.events = w.events[len(w.events)-w.maxEvents:]
	}
}

func (w *slidingWindow) count(now time.Time) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evict(now)
	return int64(len(w.events))
}

// evict drops the prefix of events at or before now minus the window.
func (w *slidingWindow) evict(now time.Time) {
	cutoff := now.Add(-w.Duration)
	i := 0
	for i < len(w.events) && !w.events[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return
	}
	if i == len(w.events) {
		w.events = w.events[:0]
		return
	}
	w.events = w.events[i:]
}

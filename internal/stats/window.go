// Package stats counts requests over named sliding windows.
package stats

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ErrUnknownWindow is returned by Count for a window name that is not tracked.
var ErrUnknownWindow = errors.New("unknown window")

// Window is a named sliding window.
type Window struct {
	Name     string
	Duration time.Duration
}

// Windows is a set of windows ordered by duration. It parses from
// "name:duration,..." so it can be filled straight from the environment.
type Windows []Window

// DefaultWindows tracks the last minute, hour and day.
func DefaultWindows() Windows {
	return Windows{
		{Name: "minute", Duration: time.Minute},
		{Name: "hour", Duration: time.Hour},
		{Name: "day", Duration: 24 * time.Hour},
	}
}

// ParseWindows parses "minute:1m,hour:1h". Names must be unique and
// durations positive. The result is sorted by duration.
func ParseWindows(s string) (Windows, error) {
	var ws Windows
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, dur, ok := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid window %q: want name:duration", part)
		}
		d, err := time.ParseDuration(strings.TrimSpace(dur))
		if err != nil {
			return nil, fmt.Errorf("invalid duration for window %q: %w", name, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("window %q must have a positive duration", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate window %q", name)
		}
		seen[name] = true
		ws = append(ws, Window{Name: name, Duration: d})
	}
	if len(ws) == 0 {
		return nil, errors.New("no windows configured")
	}
	slices.SortStableFunc(ws, func(a, b Window) int {
		return cmp.Compare(a.Duration, b.Duration)
	})
	return ws, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Windows) UnmarshalText(text []byte) error {
	parsed, err := ParseWindows(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// String formats the windows the way ParseWindows reads them.
func (w Windows) String() string {
	parts := make([]string, len(w))
	for i, win := range w {
		parts[i] = win.Name + ":" + win.Duration.String()
	}
	return strings.Join(parts, ",")
}

// WindowCount is the number of events currently inside one window.
type WindowCount struct {
	Name  string
	Count int64
}

// Counter records requests and reports how many fall inside each window.
type Counter interface {
	// Increment records one event in every window.
	Increment(ctx context.Context) error
	// Count returns the number of events inside the named window.
	Count(ctx context.Context, name string) (int64, error)
	// Snapshot returns the count of every window, shortest first.
	Snapshot(ctx context.Context) ([]WindowCount, error)
	// Windows lists the tracked windows, shortest first.
	Windows() Windows
}

type options struct {
	now       func() time.Time
	maxEvents int
}

// Option configures a Counter.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMaxEvents caps every window at n events, dropping the oldest first.
// Zero leaves windows unbounded.
func WithMaxEvents(n int) Option {
	return func(o *options) { o.maxEvents = n }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Package mirror copies the corpus into an in-memory SQLite store tuned for reads.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"hitokoto/internal/corpus"
	"hitokoto/internal/db"
)

// Load steps reported in Error.Step.
const (
	StepOpen    = "open"
	StepSchema  = "schema"
	StepCopy    = "copy"
	StepIndex   = "index"
	StepPragma  = "pragma"
	StepRefresh = "refresh"
	StepVerify  = "verify"
)

// pragmas tune the mirror for a read-mostly, non-durable workload.
var pragmas = []string{
	"PRAGMA journal_mode = MEMORY",
	"PRAGMA synchronous = OFF",
	"PRAGMA locking_mode = EXCLUSIVE",
}

// Error reports the step at which a load failed.
type Error struct {
	Step string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("mirror %s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Loader builds mirrors. Load calls are serialized.
type Loader struct {
	mu        sync.Mutex
	cacheOpts []corpus.CacheOption
	newName   func() string
	// afterCopy runs inside the copy step; tests use it to inject failures.
	afterCopy func(ctx context.Context, mirror *db.DB) error
}

// Option configures a Loader.
type Option func(*Loader)

// WithCacheOptions passes opts to the cache built over the mirror.
func WithCacheOptions(opts ...corpus.CacheOption) Option {
	return func(l *Loader) { l.cacheOpts = append(l.cacheOpts, opts...) }
}

// NewLoader creates a mirror loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		newName: func() string { return "hitokoto-mirror-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load copies every quote of source into a fresh in-memory store and returns
// it with a refreshed cache. On success source is closed. On failure the
// partial mirror is discarded and source is left open and unchanged.
func (l *Loader) Load(ctx context.Context, source *db.DB) (*db.DB, *corpus.Cache, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	name := l.newName()

	mirror, err := db.New(ctx, memoryURI(name), db.Options{MaxConnections: 1})
	if err != nil {
		return nil, nil, &Error{Step: StepOpen, Err: err}
	}

	cache, copied, buildErr := l.build(ctx, source, mirror)
	if buildErr != nil {
		mirror.Close()
		slog.Error("mirror load failed", "step", buildErr.Step, "error", buildErr.Err)
		return nil, nil, buildErr
	}

	source.Close()
	slog.Info("mirror loaded", "name", name, "quotes", copied, "duration", time.Since(start))
	return mirror, cache, nil
}

func (l *Loader) build(ctx context.Context, source, mirror *db.DB) (*corpus.Cache, int64, *Error) {
	if err := mirror.MigrateTo(db.SchemaTable); err != nil {
		return nil, 0, &Error{Step: StepSchema, Err: err}
	}

	copied, err := mirror.CopyQuotes(ctx, source)
	if err != nil {
		return nil, 0, &Error{Step: StepCopy, Err: err}
	}
	if l.afterCopy != nil {
		if err := l.afterCopy(ctx, mirror); err != nil {
			return nil, 0, &Error{Step: StepCopy, Err: err}
		}
	}

	if err := mirror.MigrateTo(db.SchemaIndexes); err != nil {
		return nil, 0, &Error{Step: StepIndex, Err: err}
	}

	for _, pragma := range pragmas {
		if err := mirror.Exec(ctx, pragma); err != nil {
			return nil, 0, &Error{Step: StepPragma, Err: err}
		}
	}

	cache := corpus.NewCache(mirror, l.cacheOpts...)
	if err := cache.Refresh(ctx); err != nil {
		return nil, 0, &Error{Step: StepRefresh, Err: err}
	}

	if got := cache.Count(); got != copied {
		return nil, 0, &Error{Step: StepVerify, Err: fmt.Errorf("mirror holds %d quotes, copied %d", got, copied)}
	}
	return cache, copied, nil
}

// memoryURI names a shared-cache in-memory database private to this process.
func memoryURI(name string) string {
	return "file:" + name + "?mode=memory&cache=shared"
}

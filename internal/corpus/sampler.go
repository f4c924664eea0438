package corpus

import (
	"context"
	"math/rand/v2"

	"hitokoto/internal/db"
	"hitokoto/internal/models"
)

// Store is the part of the backing store a Sampler reads records from.
type Store interface {
	Dialect() db.Dialect
	FetchByIdentifier(ctx context.Context, id string) (*models.Quote, error)
	FetchByOffset(ctx context.Context, n int64) (*models.Quote, error)
	FetchFilteredRandom(ctx context.Context, statement string, args []any) (*models.Quote, error)
}

// Sampling modes reported to an Observer.
const (
	ModeIdentifier = "identifier"
	ModeOffset     = "offset"
	ModeFiltered   = "filtered"
	ModeLookup     = "lookup"
)

// Observer is told the outcome of every sampling call.
type Observer interface {
	ObserveSample(mode string, err error)
}

// Sampler picks records uniformly at random. It keeps no mutable state and
// is safe for concurrent use.
type Sampler struct {
	store    Store
	cache    *Cache
	int64N   func(n int64) int64
	observer Observer
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithRandom replaces the source of random indexes. fn must return a value in [0, n).
func WithRandom(fn func(n int64) int64) SamplerOption {
	return func(s *Sampler) { s.int64N = fn }
}

// WithObserver reports sampling outcomes to o.
func WithObserver(o Observer) SamplerOption {
	return func(s *Sampler) { s.observer = o }
}

// NewSampler creates a sampler reading records from store and bounds from cache.
func NewSampler(store Store, cache *Cache, opts ...SamplerOption) *Sampler {
	s := &Sampler{store: store, cache: cache, int64N: rand.Int64N}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sample returns one record chosen uniformly among those matching f.
//
// Without a filter the draw is over the identifiers of the current snapshot,
// or over row offsets when the snapshot has none. Offsets are best-effort
// uniform only: concurrent writes to the store may skip or repeat a row.
//
// With a filter, an inverted range fails with ErrInvalidRange and a range
// outside the cached length bounds fails with ErrRangeUnsatisfiable, both
// without touching the store. No match is db.ErrQuoteNotFound.
func (s *Sampler) Sample(ctx context.Context, f db.Filter) (*models.Quote, error) {
	if f.IsEmpty() {
		return s.sampleUnfiltered(ctx)
	}
	q, err := s.sampleFiltered(ctx, f)
	s.observe(ModeFiltered, err)
	return q, err
}

// SampleByIdentifier returns the record with the given identifier.
func (s *Sampler) SampleByIdentifier(ctx context.Context, id string) (*models.Quote, error) {
	q, err := s.store.FetchByIdentifier(ctx, id)
	s.observe(ModeLookup, err)
	return q, err
}

func (s *Sampler) sampleUnfiltered(ctx context.Context) (*models.Quote, error) {
	snap := s.cache.Snapshot()

	if n := len(snap.Identifiers); n > 0 {
		q, err := s.store.FetchByIdentifier(ctx, snap.Identifiers[s.int64N(int64(n))])
		s.observe(ModeIdentifier, err)
		return q, err
	}

	if snap.HasIdentifiers() || snap.Count <= 0 {
		s.observe(ModeIdentifier, db.ErrQuoteNotFound)
		return nil, db.ErrQuoteNotFound
	}

	q, err := s.store.FetchByOffset(ctx, s.int64N(snap.Count))
	s.observe(ModeOffset, err)
	return q, err
}

func (s *Sampler) sampleFiltered(ctx context.Context, f db.Filter) (*models.Quote, error) {
	if err := s.checkBounds(f); err != nil {
		return nil, err
	}

	statement, args, err := db.BuildRandomQuery(f, s.store.Dialect())
	if err != nil {
		return nil, err
	}
	return s.store.FetchFilteredRandom(ctx, statement, args)
}

// checkBounds validates the length range against the cached bounds only.
func (s *Sampler) checkBounds(f db.Filter) error {
	if f.MinLength != nil && f.MaxLength != nil && *f.MinLength > *f.MaxLength {
		return ErrInvalidRange
	}

	snap := s.cache.Snapshot()
	if snap.Count <= 0 {
		return nil
	}
	if f.MinLength != nil && *f.MinLength > snap.MaxLength {
		return ErrRangeUnsatisfiable
	}
	if f.MaxLength != nil && *f.MaxLength < snap.MinLength {
		return ErrRangeUnsatisfiable
	}
	return nil
}

func (s *Sampler) observe(mode string, err error) {
	if s.observer != nil {
		s.observer.ObserveSample(mode, err)
	}
}

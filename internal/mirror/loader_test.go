package mirror

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hitokoto/internal/corpus"
	"hitokoto/internal/db"
	"hitokoto/internal/testutil"
)

func sortedIdentifiers(t *testing.T, database *db.DB) []string {
	t.Helper()
	ids, err := database.ListIdentifiers(context.Background())
	require.NoError(t, err)
	sort.Strings(ids)
	return ids
}

func TestLoad(t *testing.T) {
	source, quotes := testutil.SeededDB(t, 40)
	want := sortedIdentifiers(t, source)
	wantStats, err := source.Stats(context.Background())
	require.NoError(t, err)

	mirror, cache, err := NewLoader().Load(context.Background(), source)
	require.NoError(t, err)
	t.Cleanup(mirror.Close)

	assert.Equal(t, db.DialectSQLite, mirror.Dialect())
	assert.EqualValues(t, len(quotes), cache.Count())
	assert.Len(t, cache.Identifiers(), len(quotes))

	minLen, maxLen := cache.LengthBounds()
	assert.Equal(t, wantStats.MinLength, minLen)
	assert.Equal(t, wantStats.MaxLength, maxLen)

	assert.Equal(t, want, sortedIdentifiers(t, mirror))

	got, err := mirror.FetchByIdentifier(context.Background(), quotes[11].UUID)
	require.NoError(t, err)
	assert.Equal(t, quotes[11], *got)

	// The source handle is closed once the mirror is published.
	assert.Error(t, source.Ping(context.Background()))
}

func TestLoad_ServesSampling(t *testing.T) {
	source, _ := testutil.SeededDB(t, 12)

	mirror, cache, err := NewLoader().Load(context.Background(), source)
	require.NoError(t, err)
	t.Cleanup(mirror.Close)

	s := corpus.NewSampler(mirror, cache)
	minLen := 10
	q, err := s.Sample(context.Background(), db.Filter{Categories: []string{"a", "b"}, MinLength: &minLen})
	require.NoError(t, err)
	assert.Contains(t, []string{"a", "b"}, q.Type)
	assert.GreaterOrEqual(t, q.Length, minLen)
}

func TestLoad_SuccessReturnsNilError(t *testing.T) {
	source, _ := testutil.SeededDB(t, 6)

	mirror, _, err := NewLoader().Load(context.Background(), source)
	// A typed nil *Error would make the interface non-nil.
	if err != nil {
		t.Fatalf("Load() error = %#v, want untyped nil", err)
	}
	require.NotNil(t, mirror)
	t.Cleanup(mirror.Close)
	require.NoError(t, mirror.Ping(context.Background()))
}

func TestLoad_ConcurrentSampling(t *testing.T) {
	source, _ := testutil.SeededDB(t, 40)

	mirror, cache, err := NewLoader().Load(context.Background(), source)
	require.NoError(t, err)
	t.Cleanup(mirror.Close)

	s := corpus.NewSampler(mirror, cache)
	ids := make(map[string]bool)
	for _, id := range cache.Identifiers() {
		ids[id] = true
	}

	minLen := 12
	filter := db.Filter{Categories: []string{"c", "d"}, MinLength: &minLen}

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f := db.Filter{}
			if i%2 == 1 {
				f = filter
			}
			q, err := s.Sample(context.Background(), f)
			if err != nil {
				errs <- err
				return
			}
			if !ids[q.UUID] {
				errs <- errors.New("sampled unknown uuid " + q.UUID)
				return
			}
			if i%2 == 1 && (q.Length < minLen || (q.Type != "c" && q.Type != "d")) {
				errs <- errors.New("filtered sample outside filter: " + q.UUID)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestLoad_EmptySource(t *testing.T) {
	source := testutil.SQLiteDB(t)

	mirror, cache, err := NewLoader().Load(context.Background(), source)
	require.NoError(t, err)
	t.Cleanup(mirror.Close)

	assert.Zero(t, cache.Count())
	assert.Empty(t, cache.Identifiers())
}

func TestLoad_WithCacheOptions(t *testing.T) {
	source, _ := testutil.SeededDB(t, 5)

	mirror, cache, err := NewLoader(WithCacheOptions(corpus.WithoutIdentifiers())).Load(context.Background(), source)
	require.NoError(t, err)
	t.Cleanup(mirror.Close)

	assert.EqualValues(t, 5, cache.Count())
	assert.False(t, cache.Snapshot().HasIdentifiers())
}

func TestLoad_MirrorsAreIsolated(t *testing.T) {
	first, _ := testutil.SeededDB(t, 3)
	second, _ := testutil.SeededDB(t, 7)
	loader := NewLoader()

	m1, c1, err := loader.Load(context.Background(), first)
	require.NoError(t, err)
	t.Cleanup(m1.Close)
	m2, c2, err := loader.Load(context.Background(), second)
	require.NoError(t, err)
	t.Cleanup(m2.Close)

	assert.EqualValues(t, 3, c1.Count())
	assert.EqualValues(t, 7, c2.Count())
}

func TestLoad_FailureLeavesSourceUsable(t *testing.T) {
	injected := errors.New("disk on fire")

	tests := []struct {
		name     string
		loader   func() *Loader
		ctx      func() context.Context
		wantStep string
		wantErr  error
	}{
		{
			name: "copy step fails",
			loader: func() *Loader {
				l := NewLoader()
				l.afterCopy = func(context.Context, *db.DB) error { return injected }
				return l
			},
			ctx:      context.Background,
			wantStep: StepCopy,
			wantErr:  injected,
		},
		{
			name: "index build fails",
			loader: func() *Loader {
				l := NewLoader()
				l.afterCopy = func(ctx context.Context, mirror *db.DB) error {
					return mirror.Exec(ctx, "DROP TABLE hitokoto")
				}
				return l
			},
			ctx:      context.Background,
			wantStep: StepIndex,
		},
		{
			name:   "cancelled before open",
			loader: func() *Loader { return NewLoader() },
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			wantStep: StepOpen,
			wantErr:  context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, quotes := testutil.SeededDB(t, 10)
			before := sortedIdentifiers(t, source)

			mirror, cache, err := tt.loader().Load(tt.ctx(), source)
			require.Error(t, err)
			assert.Nil(t, mirror)
			assert.Nil(t, cache)

			var mirrorErr *Error
			require.True(t, errors.As(err, &mirrorErr), "err = %v", err)
			assert.Equal(t, tt.wantStep, mirrorErr.Step)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			require.NoError(t, source.Ping(context.Background()))
			assert.Equal(t, before, sortedIdentifiers(t, source))
			stats, err := source.Stats(context.Background())
			require.NoError(t, err)
			assert.EqualValues(t, len(quotes), stats.Count)
		})
	}
}

func TestLoad_SerializesConcurrentCalls(t *testing.T) {
	loader := NewLoader()

	var active, peak int
	var mu sync.Mutex
	loader.afterCopy = func(context.Context, *db.DB) error {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return nil
	}

	sources := make([]*db.DB, 4)
	for i := range sources {
		sources[i], _ = testutil.SeededDB(t, 2+i)
	}

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src *db.DB) {
			defer wg.Done()
			mirror, _, err := loader.Load(context.Background(), src)
			if assert.NoError(t, err) {
				mirror.Close()
			}
		}(src)
	}
	wg.Wait()

	assert.Equal(t, 1, peak)
}

func TestError(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Step: StepIndex, Err: inner}

	assert.Equal(t, "mirror index: boom", err.Error())
	assert.True(t, errors.Is(err, inner))
}

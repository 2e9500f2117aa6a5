package resultcache_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/search"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/search/resultcache"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

type memHot struct {
	data map[string][]byte
	errs map[string]error
}

func newMemHot() *memHot {
	return &memHot{data: make(map[string][]byte), errs: make(map[string]error)}
}

func (m *memHot) Get(_ context.Context, key string, dest interface{}) error {
	if err := m.errs[key]; err != nil {
		return err
	}
	raw, ok := m.data[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memHot) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if err := m.errs[key]; err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memHot) SetNull(_ context.Context, _ string) error        { return nil }
func (m *memHot) Delete(_ context.Context, _ ...string) error      { return nil }
func (m *memHot) Exists(_ context.Context, _ string) (bool, error) { return false, nil }
func (m *memHot) Ping(_ context.Context) error                     { return nil }

func (m *memHot) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	if err := m.Get(ctx, key, dest); err == nil {
		return err
	}
	val, err := loader(ctx)
	if err != nil {
		return err
	}
	if err := m.Set(ctx, key, val, ttl); err != nil {
		return err
	}
	return m.Get(ctx, key, dest)
}

type memDurable struct {
	data    map[string]*search.Result
	lookups int
	stores  int
}

func newMemDurable() *memDurable {
	return &memDurable{data: make(map[string]*search.Result)}
}

func (m *memDurable) Lookup(_ context.Context, key string) (*search.Result, error) {
	m.lookups++
	result, ok := m.data[key]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "no cached result")
	}
	return result, nil
}

func (m *memDurable) Store(_ context.Context, key string, result *search.Result) error {
	m.stores++
	m.data[key] = result
	return nil
}

func sampleResult() *search.Result {
	return &search.Result{
		JobID:    "job-1",
		Molecule: "semaglutide",
		Patents:  []search.PatentEntry{{PatentNumber: "US1234567"}},
	}
}

func TestTiered_HotHitSkipsDurable(t *testing.T) {
	t.Parallel()

	hot := newMemHot()
	durable := newMemDurable()
	cache := resultcache.NewTiered(hot, durable, logging.NewNopLogger())

	require.NoError(t, cache.Store(context.Background(), "k1", sampleResult()))
	durable.lookups = 0

	got, err := cache.Lookup(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", got.JobID)
	assert.Zero(t, durable.lookups)
}

func TestTiered_DurableHitRefillsHot(t *testing.T) {
	t.Parallel()

	hot := newMemHot()
	durable := newMemDurable()
	durable.data["k1"] = sampleResult()
	cache := resultcache.NewTiered(hot, durable, logging.NewNopLogger())

	got, err := cache.Lookup(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, "semaglutide", got.Molecule)
	assert.Equal(t, 1, durable.lookups)

	// Second lookup is served from the refilled hot tier.
	_, err = cache.Lookup(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, 1, durable.lookups)
}

func TestTiered_MissFromBothTiers(t *testing.T) {
	t.Parallel()

	cache := resultcache.NewTiered(newMemHot(), newMemDurable(), logging.NewNopLogger())

	_, err := cache.Lookup(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestTiered_HotFailureFallsThrough(t *testing.T) {
	t.Parallel()

	hot := newMemHot()
	hot.errs["search_result:k1"] = apperrors.New(apperrors.ErrCodeCacheError, "broken")
	durable := newMemDurable()
	durable.data["k1"] = sampleResult()
	cache := resultcache.NewTiered(hot, durable, logging.NewNopLogger())

	got, err := cache.Lookup(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", got.JobID)
}

func TestTiered_StoreSurvivesHotWriteFailure(t *testing.T) {
	t.Parallel()

	hot := newMemHot()
	hot.errs["search_result:k1"] = apperrors.New(apperrors.ErrCodeCacheError, "broken")
	durable := newMemDurable()
	cache := resultcache.NewTiered(hot, durable, logging.NewNopLogger())

	require.NoError(t, cache.Store(context.Background(), "k1", sampleResult()))
	assert.Equal(t, 1, durable.stores)
}

func TestTiered_NilHotTier(t *testing.T) {
	t.Parallel()

	durable := newMemDurable()
	cache := resultcache.NewTiered(nil, durable, logging.NewNopLogger())

	require.NoError(t, cache.Store(context.Background(), "k1", sampleResult()))
	got, err := cache.Lookup(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", got.JobID)
}

package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testQuery struct {
	ID   string
	fail bool
}

func (q testQuery) Validate() error {
	if q.fail {
		return errors.New("bad query")
	}
	return nil
}

type keyedQuery struct {
	ID string
}

func (q keyedQuery) Validate() error { return nil }

// An empty ID opts the instance out of caching
func (q keyedQuery) CacheKey() string {
	if q.ID == "" {
		return ""
	}
	return "keyed:" + q.ID
}

type mapCache struct {
	values map[string]interface{}
	sets   []string
}

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string]interface{})}
}

func (c *mapCache) Get(ctx context.Context, key string) (interface{}, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	c.values[key] = value
	c.sets = append(c.sets, key)
	return nil
}

func TestQueryBus_AskReturnsHandlerResult(t *testing.T) {
	b := NewQueryBus()
	require.NoError(t, b.Register(testQuery{}, QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		return "result", nil
	})))

	result, err := b.Ask(context.Background(), testQuery{ID: "1"})

	require.NoError(t, err)
	assert.Equal(t, "result", result)
}

func TestQueryBus_AskRejectsInvalidQuery(t *testing.T) {
	b := NewQueryBus()
	called := false
	require.NoError(t, b.Register(testQuery{}, QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		called = true
		return nil, nil
	})))

	_, err := b.Ask(context.Background(), testQuery{fail: true})

	assert.Error(t, err)
	assert.False(t, called)
}

func TestQueryBus_AskUnregisteredQuery(t *testing.T) {
	b := NewQueryBus()

	_, err := b.Ask(context.Background(), testQuery{})

	assert.ErrorIs(t, err, ErrQueryHandlerNotFound)
}

func TestCachingMiddleware_ServesSecondCallFromCache(t *testing.T) {
	cache := newMapCache()
	mw := NewCachingMiddleware(cache, 60)

	calls := 0
	handler := mw.Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		calls++
		return calls, nil
	}))

	first, err := handler.Handle(context.Background(), keyedQuery{ID: "a"})
	require.NoError(t, err)
	second, err := handler.Handle(context.Background(), keyedQuery{ID: "a"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"keyed:a"}, cache.sets)
}

func TestCachingMiddleware_DistinguishesQueries(t *testing.T) {
	cache := newMapCache()
	mw := NewCachingMiddleware(cache, 60)

	calls := 0
	handler := mw.Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		calls++
		return calls, nil
	}))

	_, err := handler.Handle(context.Background(), keyedQuery{ID: "a"})
	require.NoError(t, err)
	_, err = handler.Handle(context.Background(), keyedQuery{ID: "b"})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestCachingMiddleware_SkipsNonCacheableQueries(t *testing.T) {
	cache := newMapCache()
	mw := NewCachingMiddleware(cache, 60)

	calls := 0
	handler := mw.Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		calls++
		return calls, nil
	}))

	_, err := handler.Handle(context.Background(), testQuery{ID: "a"})
	require.NoError(t, err)
	_, err = handler.Handle(context.Background(), testQuery{ID: "a"})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Empty(t, cache.sets)
}

func TestCachingMiddleware_SkipsEmptyCacheKey(t *testing.T) {
	cache := newMapCache()
	mw := NewCachingMiddleware(cache, 60)

	calls := 0
	handler := mw.Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		calls++
		return calls, nil
	}))

	_, err := handler.Handle(context.Background(), keyedQuery{})
	require.NoError(t, err)
	_, err = handler.Handle(context.Background(), keyedQuery{})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Empty(t, cache.sets)
}

func TestCachingMiddleware_DoesNotCacheErrors(t *testing.T) {
	cache := newMapCache()
	mw := NewCachingMiddleware(cache, 60)

	handler := mw.Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		return nil, errors.New("boom")
	}))

	_, err := handler.Handle(context.Background(), keyedQuery{ID: "a"})

	assert.Error(t, err)
	assert.Empty(t, cache.sets)
}

type queryMetrics struct {
	counts map[string]int
}

func (m *queryMetrics) StartTimer(metric, label string) Timer { return nopTimer{} }
func (m *queryMetrics) Increment(metric, label string)        { m.counts[metric+":"+label]++ }

type nopTimer struct{}

func (nopTimer) Stop() {}

func TestMetricsMiddleware_CountsSuccessAndError(t *testing.T) {
	metrics := &queryMetrics{counts: make(map[string]int)}
	mw := NewMetricsMiddleware(metrics)

	ok := mw.Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		return "v", nil
	}))
	failing := mw.Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		return nil, errors.New("boom")
	}))

	_, err := ok.Handle(context.Background(), testQuery{})
	require.NoError(t, err)
	_, err = failing.Handle(context.Background(), testQuery{})
	require.Error(t, err)

	assert.Equal(t, 1, metrics.counts["query_success:testQuery"])
	assert.Equal(t, 1, metrics.counts["query_errors:testQuery"])
	assert.Equal(t, 2, metrics.counts["query_count:testQuery"])
}

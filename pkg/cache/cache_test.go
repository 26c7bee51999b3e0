package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/c360/semlink/errors"
	"github.com/c360/semlink/metric"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_BasicOperations(t *testing.T) {
	c, err := NewLRU[string](3)
	require.NoError(t, err)

	created, err := c.Set("a", "1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = c.Set("a", "2")
	require.NoError(t, err)
	assert.False(t, created, "updating an existing key is not a new entry")

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	deleted, err := c.Delete("a")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = c.Delete("a")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, 0, c.Size())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []string
	c, err := NewLRU[int](2, WithEvictionCallback[int](func(key string, _ int) {
		evicted = append(evicted, key)
	}))
	require.NoError(t, err)

	_, _ = c.Set("a", 1)
	_, _ = c.Set("b", 2)
	_, _ = c.Get("a")
	_, _ = c.Set("c", 3)

	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, []string{"c", "a"}, c.Keys())
	assert.Equal(t, int64(1), c.Stats().Evictions())
}

func TestLRU_TTLExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	c, err := NewLRU[string](10, WithTTL[string](time.Minute), withClock[string](clock))
	require.NoError(t, err)

	_, _ = c.Set("a", "1")
	now = now.Add(30 * time.Second)
	_, _ = c.Set("b", "2")

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	now = now.Add(30 * time.Second)
	assert.Equal(t, []string{"b"}, c.Keys(), "expired entries are not listed")

	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Size(), "expired entry is removed on access")

	_, _ = c.Set("b", "3")
	now = now.Add(45 * time.Second)
	v, ok = c.Get("b")
	assert.True(t, ok, "set refreshes expiry")
	assert.Equal(t, "3", v)
}

func TestLRU_Clear(t *testing.T) {
	count := 0
	c, err := NewLRU[int](5, WithEvictionCallback[int](func(string, int) { count++ }))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _ = c.Set(fmt.Sprintf("k%d", i), i)
	}
	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Size())
	assert.Equal(t, 3, count)
	assert.Equal(t, int64(0), c.Stats().CurrentSize())
	assert.Equal(t, int64(3), c.Stats().MaxSize())
}

func TestLRU_InvalidInput(t *testing.T) {
	_, err := NewLRU[int](0)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	c, err := NewLRU[int](1)
	require.NoError(t, err)

	_, err = c.Set("", 1)
	assert.True(t, errors.IsInvalid(err))
	_, err = c.Delete("")
	assert.True(t, errors.IsInvalid(err))
}

func TestLRU_Statistics(t *testing.T) {
	c, err := NewLRU[int](10)
	require.NoError(t, err)

	_, _ = c.Set("a", 1)
	_, _ = c.Get("a")
	_, _ = c.Get("a")
	_, _ = c.Get("b")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits())
	assert.Equal(t, int64(1), stats.Misses())
	assert.InDelta(t, 2.0/3.0, stats.HitRatio(), 0.001)

	summary := stats.Summary()
	assert.Equal(t, int64(1), summary.Sets)
	assert.Equal(t, int64(1), summary.CurrentSize)

	stats.Reset()
	assert.Equal(t, int64(0), stats.Hits())
}

func TestLRU_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	c, err := NewLRU[int](1, WithMetrics[int](registry, "resolver"))
	require.NoError(t, err)

	_, _ = c.Set("a", 1)
	_, _ = c.Set("b", 2)
	_, _ = c.Get("b")
	_, _ = c.Get("a")

	lru := c.(*lruCache[int])
	assert.Equal(t, 1.0, testutil.ToFloat64(lru.metrics.hits))
	assert.Equal(t, 1.0, testutil.ToFloat64(lru.metrics.misses))
	assert.Equal(t, 1.0, testutil.ToFloat64(lru.metrics.evictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(lru.metrics.size))

	_, err = NewLRU[int](1, WithMetrics[int](registry, "resolver"))
	require.Error(t, err, "the same component cannot register twice")
	assert.True(t, errors.IsTransient(err))
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c, err := NewLRU[int](50)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%100)
				_, _ = c.Set(key, i)
				_, _ = c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), 50)
	assert.Equal(t, int64(1600), c.Stats().Sets())
}

func TestNoop(t *testing.T) {
	c := NewNoop[string]()
	created, err := c.Set("a", "1")
	require.NoError(t, err)
	assert.False(t, created)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Nil(t, c.Stats())
	assert.NoError(t, c.Close())
}

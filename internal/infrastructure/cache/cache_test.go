package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/lineage-core/internal/infrastructure/config"
)

func value(v any) func(context.Context) (any, error) {
	return func(context.Context) (any, error) { return v, nil }
}

func TestTraversalCache_HitAndMiss(t *testing.T) {
	c := NewTraversalCache()
	ctx := context.Background()

	var loads int
	load := func(context.Context) (any, error) {
		loads++
		return "tree", nil
	}

	v, err := c.GetOrLoad(ctx, "t1", "pedigree:p:4", load)
	require.NoError(t, err)
	assert.Equal(t, "tree", v)

	v, err = c.GetOrLoad(ctx, "t1", "pedigree:p:4", load)
	require.NoError(t, err)
	assert.Equal(t, "tree", v)
	assert.Equal(t, 1, loads)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestTraversalCache_ErrorsAreNotCached(t *testing.T) {
	c := NewTraversalCache()
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := c.GetOrLoad(ctx, "t1", "k", func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	v, err := c.GetOrLoad(ctx, "t1", "k", value(42))
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, int64(1), c.Stats().LoadErrors)
}

func TestTraversalCache_InvalidateScope(t *testing.T) {
	c := NewTraversalCache()
	ctx := context.Background()

	_, _ = c.GetOrLoad(ctx, "t1", "a", value(1))
	_, _ = c.GetOrLoad(ctx, "t1", "b", value(2))
	_, _ = c.GetOrLoad(ctx, "t2", "a", value(3))

	c.InvalidateScope("t1")
	assert.Equal(t, 1, c.Stats().Entries)

	v, err := c.GetOrLoad(ctx, "t1", "a", value(10))
	require.NoError(t, err)
	assert.Equal(t, 10, v, "reloaded after invalidation")

	v, err = c.GetOrLoad(ctx, "t2", "a", value(30))
	require.NoError(t, err)
	assert.Equal(t, 3, v, "other scopes are untouched")
}

// A load that started before an invalidation must not repopulate the cache.
func TestTraversalCache_InvalidateDuringLoad(t *testing.T) {
	c := NewTraversalCache()
	ctx := context.Background()

	v, err := c.GetOrLoad(ctx, "t1", "k", func(context.Context) (any, error) {
		c.InvalidateScope("t1")
		return "stale", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stale", v, "the caller still gets its result")
	assert.Equal(t, 0, c.Stats().Entries)

	v, err = c.GetOrLoad(ctx, "t1", "k", value("fresh"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestTraversalCache_LRUEviction(t *testing.T) {
	c := NewTraversalCache(WithMaxEntries(2))
	ctx := context.Background()

	_, _ = c.GetOrLoad(ctx, "t", "a", value("a"))
	_, _ = c.GetOrLoad(ctx, "t", "b", value("b"))
	_, _ = c.GetOrLoad(ctx, "t", "a", value("a2")) // touch a
	_, _ = c.GetOrLoad(ctx, "t", "c", value("c"))  // evicts b

	stats := c.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(1), stats.Evictions)

	v, _ := c.GetOrLoad(ctx, "t", "a", value("a3"))
	assert.Equal(t, "a", v)
	v, _ = c.GetOrLoad(ctx, "t", "b", value("b2"))
	assert.Equal(t, "b2", v)
}

func TestTraversalCache_TTL(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewTraversalCache(WithTTL(time.Minute), withClock(func() time.Time { return now }))
	ctx := context.Background()

	_, _ = c.GetOrLoad(ctx, "t", "k", value("old"))
	now = now.Add(30 * time.Second)
	v, _ := c.GetOrLoad(ctx, "t", "k", value("new"))
	assert.Equal(t, "old", v)

	now = now.Add(time.Minute)
	v, _ = c.GetOrLoad(ctx, "t", "k", value("new"))
	assert.Equal(t, "new", v)
}

func TestTraversalCache_ConcurrentLoadsShareOneCall(t *testing.T) {
	c := NewTraversalCache()
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "tree", nil
	}

	const n = 8
	var started, done sync.WaitGroup
	results := make([]any, n)
	for i := 0; i < n; i++ {
		started.Add(1)
		done.Add(1)
		go func(i int) {
			defer done.Done()
			started.Done()
			results[i], _ = c.GetOrLoad(ctx, "t", "k", load)
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	done.Wait()

	for _, r := range results {
		assert.Equal(t, "tree", r)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTraversalCache_CancelledOwnerDoesNotFailJoinedCaller(t *testing.T) {
	c := NewTraversalCache()

	ownerCtx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	blocking := func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	ownerErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(ownerCtx, "t", "k", blocking)
		ownerErr <- err
	}()
	<-started

	type result struct {
		v   any
		err error
	}
	joined := make(chan result, 1)
	go func() {
		v, err := c.GetOrLoad(context.Background(), "t", "k", value("tree"))
		joined <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-ownerErr, context.Canceled)

	r := <-joined
	require.NoError(t, r.err)
	assert.Equal(t, "tree", r.v)

	v, err := c.GetOrLoad(context.Background(), "t", "k", value("other"))
	require.NoError(t, err)
	assert.Equal(t, "tree", v)
}

func TestTraversalCache_CancelledCallerReturnsEarly(t *testing.T) {
	c := NewTraversalCache()

	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	slow := func(context.Context) (any, error) {
		close(started)
		<-release
		return "tree", nil
	}
	go func() { _, _ = c.GetOrLoad(context.Background(), "t", "k", slow) }()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetOrLoad(ctx, "t", "k", value("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTraversalCache_Clear(t *testing.T) {
	c := NewTraversalCache()
	ctx := context.Background()
	_, _ = c.GetOrLoad(ctx, "t1", "a", value(1))
	_, _ = c.GetOrLoad(ctx, "t2", "a", value(2))

	c.Clear()
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestFromConfig(t *testing.T) {
	assert.IsType(t, Noop{}, FromConfig(config.CacheConfig{Enabled: false}))
	assert.IsType(t, &TraversalCache{}, FromConfig(config.CacheConfig{Enabled: true, MaxEntries: 4}))
}

func TestNoop(t *testing.T) {
	var loads int
	load := func(context.Context) (any, error) {
		loads++
		return loads, nil
	}
	n := Noop{}
	_, _ = n.GetOrLoad(context.Background(), "t", "k", load)
	v, _ := n.GetOrLoad(context.Background(), "t", "k", load)
	n.InvalidateScope("t")
	assert.Equal(t, 2, v)
}

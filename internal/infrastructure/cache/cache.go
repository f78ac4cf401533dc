// Package cache provides traversal result caches keyed by tree scope.
package cache

import (
	"container/list"
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ersonp/lineage-core/internal/domain/ports"
	"github.com/ersonp/lineage-core/internal/infrastructure/config"
)

// Options configures a TraversalCache.
type Options struct {
	// MaxEntries bounds the number of cached results across all scopes.
	MaxEntries int
	// TTL expires entries this long after they were stored. Zero disables expiry.
	TTL time.Duration
	now func() time.Time
}

// Option mutates Options.
type Option func(*Options)

// WithMaxEntries sets the entry bound.
func WithMaxEntries(n int) Option {
	return func(o *Options) { o.MaxEntries = n }
}

// WithTTL sets the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) { o.TTL = ttl }
}

// withClock replaces time.Now in tests.
func withClock(now func() time.Time) Option {
	return func(o *Options) { o.now = now }
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		MaxEntries: 512,
		TTL:        10 * time.Minute,
		now:        time.Now,
	}
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries    int
	Hits       int64
	Misses     int64
	Evictions  int64
	LoadErrors int64
}

type entry struct {
	scope    string
	key      string
	value    any
	storedAt time.Time
	element  *list.Element
}

// TraversalCache is an LRU cache with per-scope invalidation. Concurrent
// loads of the same key share one call; failed loads are not stored.
type TraversalCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	scopes  map[string]map[string]*entry
	// generation is bumped on invalidation so loads that started earlier
	// are not stored afterwards.
	generation map[string]uint64
	lru        *list.List
	flight     singleflight.Group
	options    Options

	hits       int64
	misses     int64
	evictions  int64
	loadErrors int64
}

var _ ports.TraversalCache = (*TraversalCache)(nil)

// NewTraversalCache creates a new TraversalCache.
func NewTraversalCache(opts ...Option) *TraversalCache {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxEntries < 1 {
		options.MaxEntries = 1
	}

	return &TraversalCache{
		entries:    make(map[string]*entry),
		scopes:     make(map[string]map[string]*entry),
		generation: make(map[string]uint64),
		lru:        list.New(),
		options:    options,
	}
}

// FromConfig returns the cache described by cfg, or a pass-through cache
// when caching is disabled.
func FromConfig(cfg config.CacheConfig) ports.TraversalCache {
	if !cfg.Enabled {
		return Noop{}
	}
	return NewTraversalCache(WithMaxEntries(cfg.MaxEntries), WithTTL(cfg.TTL))
}

func entryID(scope, key string) string {
	return scope + "\x00" + key
}

// GetOrLoad returns the cached value for key in scope, calling load on a miss.
func (c *TraversalCache) GetOrLoad(ctx context.Context, scope, key string, load ports.LoadFunc) (any, error) {
	id := entryID(scope, key)

	c.mu.Lock()
	if e, ok := c.entries[id]; ok {
		if !c.expired(e) {
			c.lru.MoveToFront(e.element)
			c.mu.Unlock()
			atomic.AddInt64(&c.hits, 1)
			return e.value, nil
		}
		c.removeLocked(e)
	}
	gen := c.generation[scope]
	c.mu.Unlock()
	atomic.AddInt64(&c.misses, 1)

	flightKey := id + "\x00" + strconv.FormatUint(gen, 10)
	for attempt := 0; ; attempt++ {
		ch := c.flight.DoChan(flightKey, func() (any, error) {
			v, err := load(ctx)
			if err != nil {
				atomic.AddInt64(&c.loadErrors, 1)
				return nil, err
			}
			c.store(scope, key, gen, v)
			return v, nil
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err == nil {
				return res.Val, nil
			}
			// A joined flight can fail because its owner was cancelled.
			// Callers that are still live load again under their own context.
			if res.Shared && attempt == 0 && isContextErr(res.Err) && ctx.Err() == nil {
				continue
			}
			return nil, res.Err
		}
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *TraversalCache) store(scope, key string, gen uint64, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation[scope] != gen {
		return
	}
	id := entryID(scope, key)
	if old, ok := c.entries[id]; ok {
		c.removeLocked(old)
	}
	for c.lru.Len() >= c.options.MaxEntries {
		c.removeLocked(c.lru.Back().Value.(*entry))
		atomic.AddInt64(&c.evictions, 1)
	}

	e := &entry{scope: scope, key: key, value: v, storedAt: c.options.now()}
	e.element = c.lru.PushFront(e)
	c.entries[id] = e
	if c.scopes[scope] == nil {
		c.scopes[scope] = make(map[string]*entry)
	}
	c.scopes[scope][key] = e
}

// InvalidateScope drops every entry of scope.
func (c *TraversalCache) InvalidateScope(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation[scope]++
	for _, e := range c.scopes[scope] {
		c.removeLocked(e)
	}
	delete(c.scopes, scope)
}

// Clear drops every entry.
func (c *TraversalCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for scope := range c.scopes {
		c.generation[scope]++
	}
	c.entries = make(map[string]*entry)
	c.scopes = make(map[string]map[string]*entry)
	c.lru.Init()
}

// Stats returns a snapshot of the cache counters.
func (c *TraversalCache) Stats() Stats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()

	return Stats{
		Entries:    n,
		Hits:       atomic.LoadInt64(&c.hits),
		Misses:     atomic.LoadInt64(&c.misses),
		Evictions:  atomic.LoadInt64(&c.evictions),
		LoadErrors: atomic.LoadInt64(&c.loadErrors),
	}
}

func (c *TraversalCache) expired(e *entry) bool {
	if c.options.TTL == 0 {
		return false
	}
	return c.options.now().Sub(e.storedAt) > c.options.TTL
}

func (c *TraversalCache) removeLocked(e *entry) {
	c.lru.Remove(e.element)
	delete(c.entries, entryID(e.scope, e.key))
	if keys, ok := c.scopes[e.scope]; ok {
		delete(keys, e.key)
		if len(keys) == 0 {
			delete(c.scopes, e.scope)
		}
	}
}

// Noop is a TraversalCache that never stores anything.
type Noop struct{}

// GetOrLoad always calls load.
func (Noop) GetOrLoad(ctx context.Context, _, _ string, load ports.LoadFunc) (any, error) {
	return load(ctx)
}

// InvalidateScope does nothing.
func (Noop) InvalidateScope(string) {}

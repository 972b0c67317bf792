// Package cache memoizes expensive aggregate computations by name.
//
// Live scoreboards poll the same computation every few seconds; a bounded
// staleness window keeps polls cheap without push invalidation. Forced
// recomputation overwrites the stored entry atomically from the caller's
// perspective. A per-name mutex prevents duplicate concurrent solves when
// several HTTP requests miss at once.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/okian/podium/pkg/metrics"
)

// Options control how a cached read behaves.
type Options struct {
	// Refresh forces recomputation even when an entry exists.
	Refresh bool
	// MaxAge, when positive, makes an entry younger than the window win
	// unconditionally - Refresh included. Zero disables the window.
	MaxAge time.Duration
}

type entry struct {
	value      any
	computedAt time.Time
}

// Cache is a process-lifetime result cache scoped to one grader instance.
// It is rebuilt whenever the active competition changes.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	locks   map[string]*sync.Mutex

	now func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		locks:   make(map[string]*sync.Mutex),
		now:     time.Now,
	}
}

func (c *Cache) keyLock(name string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[name]
	if !ok {
		l = &sync.Mutex{}
		c.locks[name] = l
	}
	return l
}

func (c *Cache) lookup(name string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	return e, ok
}

// Get reads a stored entry without computing. Dependent computations use it
// to pick up intermediates stashed by a sibling (e.g. raw team scores stored
// during team round grading).
func (c *Cache) Get(name string) (any, bool) {
	e, ok := c.lookup(name)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Set stores a value under name, stamped now.
func (c *Cache) Set(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = entry{value: value, computedAt: c.now()}
}

// GetOrCompute returns the cached value for name or computes and stores it.
//
// Resolution order:
//  1. MaxAge > 0 and the entry is younger: return it, Refresh ignored.
//  2. Refresh unset and an entry exists (any age): return it.
//  3. Otherwise compute under the per-name lock, store, return.
func (c *Cache) GetOrCompute(ctx context.Context, name string, opts Options, fn func(ctx context.Context) (any, error)) (any, error) {
	if e, ok := c.lookup(name); ok {
		if opts.MaxAge > 0 && c.now().Sub(e.computedAt) < opts.MaxAge {
			metrics.RecordCacheHit()
			return e.value, nil
		}
		if !opts.Refresh {
			metrics.RecordCacheHit()
			return e.value, nil
		}
	}

	l := c.keyLock(name)
	l.Lock()
	defer l.Unlock()

	// Re-check after acquiring the lock: a concurrent caller may have
	// computed while we waited.
	if e, ok := c.lookup(name); ok {
		if opts.MaxAge > 0 && c.now().Sub(e.computedAt) < opts.MaxAge {
			metrics.RecordCacheHit()
			return e.value, nil
		}
		if !opts.Refresh {
			metrics.RecordCacheHit()
			return e.value, nil
		}
	}

	if opts.Refresh {
		metrics.RecordCacheRefresh()
	} else {
		metrics.RecordCacheMiss()
	}
	value, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(name, value)
	return value, nil
}

// GetOrCompute is the typed wrapper around Cache.GetOrCompute.
func GetOrCompute[T any](ctx context.Context, c *Cache, name string, opts Options, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.GetOrCompute(ctx, name, opts, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Lookup is the typed wrapper around Cache.Get.
func Lookup[T any](c *Cache, name string) (T, bool) {
	v, ok := c.Get(name)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

package secrets

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a fetched secret is served from memory.
const DefaultTTL = 300 * time.Second

// fetchTimeout bounds a shared remote fetch, which no single caller owns.
const fetchTimeout = 30 * time.Second

// Entry is a cached secret value.
type Entry struct {
	Value     string
	FetchedAt time.Time
}

// Cache is a read-through cache in front of a Store, keyed by secret name.
// An entry is valid while now - FetchedAt < TTL. Expired or missing entries
// are refetched and overwritten; a failed fetch leaves the previous entry
// untouched.
//
// Concurrent misses for the same name share one remote fetch. The fetch runs
// detached from any caller's cancellation; each caller stops waiting when its
// own context is done.
type Cache struct {
	store   Store
	ttl     time.Duration
	now     func() time.Time
	observe func(hit bool)

	mu      sync.Mutex
	entries map[string]Entry
	group   singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects the time source. Tests use it to move past the TTL.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithObserver registers a callback invoked on every lookup with whether it
// was served from memory.
func WithObserver(fn func(hit bool)) CacheOption {
	return func(c *Cache) {
		c.observe = fn
	}
}

// NewCache creates an empty Cache in front of store.
func NewCache(store Store, opts ...CacheOption) *Cache {
	c := &Cache{
		store:   store,
		ttl:     DefaultTTL,
		now:     time.Now,
		observe: func(bool) {},
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.observe == nil {
		c.observe = func(bool) {}
	}
	return c
}

// Get returns the value of the named secret, fetching it from the store
// when absent or expired.
func (c *Cache) Get(ctx context.Context, name string) (string, error) {
	if v, ok := c.lookup(name); ok {
		c.observe(true)
		return v, nil
	}
	c.observe(false)

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(name, func() (any, error) {
		fctx, cancel := context.WithTimeout(fetchCtx, fetchTimeout)
		defer cancel()
		value, err := c.store.GetSecret(fctx, name)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.entries[name] = Entry{Value: value, FetchedAt: c.now()}
		c.mu.Unlock()
		return value, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Cache) lookup(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	if !ok || c.now().Sub(e.FetchedAt) >= c.ttl {
		return "", false
	}
	return e.Value, true
}

// Prune drops entries that have expired as of now and returns how many
// were removed.
func (c *Cache) Prune(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for name, e := range c.entries {
		if now.Sub(e.FetchedAt) >= c.ttl {
			delete(c.entries, name)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Now returns the cache's current time.
func (c *Cache) Now() time.Time {
	return c.now()
}

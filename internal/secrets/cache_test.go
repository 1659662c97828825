package secrets_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/formrelay/internal/secrets"
)

// countingStore records how many times each secret is fetched.
type countingStore struct {
	mu     sync.Mutex
	values map[string]string
	calls  map[string]int
	err    error
	gate   chan struct{}
}

func newCountingStore(values map[string]string) *countingStore {
	return &countingStore{values: values, calls: make(map[string]int)}
}

func (s *countingStore) GetSecret(_ context.Context, name string) (string, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
	if s.err != nil {
		return "", s.err
	}
	v, ok := s.values[name]
	if !ok {
		return "", secrets.ErrSecretNotFound
	}
	return v, nil
}

func (s *countingStore) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCache_FetchesOncePerTTL(t *testing.T) {
	store := newCountingStore(map[string]string{"X": "value-1"})
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := secrets.NewCache(store, secrets.WithClock(clock.Now))
	ctx := context.Background()

	v, err := c.Get(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, "value-1", v)
	assert.Equal(t, 1, store.count("X"), "first call fetches")

	clock.Advance(secrets.DefaultTTL - time.Second)
	_, err = c.Get(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 1, store.count("X"), "call within TTL is served from memory")

	clock.Advance(time.Second)
	store.values["X"] = "value-2"
	v, err = c.Get(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, "value-2", v)
	assert.Equal(t, 2, store.count("X"), "call at TTL refetches and overwrites")
	assert.Equal(t, 1, c.Len())
}

func TestCache_KeyedByName(t *testing.T) {
	store := newCountingStore(map[string]string{"from": "a@example.com", "to": "b@example.com"})
	c := secrets.NewCache(store)
	ctx := context.Background()

	from, err := c.Get(ctx, "from")
	require.NoError(t, err)
	to, err := c.Get(ctx, "to")
	require.NoError(t, err)

	assert.Equal(t, "a@example.com", from)
	assert.Equal(t, "b@example.com", to)
	assert.Equal(t, 1, store.count("from"))
	assert.Equal(t, 1, store.count("to"))
	assert.Equal(t, 2, c.Len())
}

func TestCache_FailedFetchLeavesEntryUntouched(t *testing.T) {
	store := newCountingStore(map[string]string{"X": "original"})
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := secrets.NewCache(store, secrets.WithClock(clock.Now), secrets.WithTTL(time.Minute))
	ctx := context.Background()

	_, err := c.Get(ctx, "X")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	store.err = errors.New("vault unreachable")
	_, err = c.Get(ctx, "X")
	require.Error(t, err)
	assert.Equal(t, 1, c.Len(), "stale entry is kept, not removed or replaced")

	// The stale entry is still expired: recovery triggers a fresh fetch.
	store.err = nil
	store.values["X"] = "rotated"
	v, err := c.Get(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, "rotated", v)
	assert.Equal(t, 3, store.count("X"))
}

func TestCache_MissingSecret(t *testing.T) {
	c := secrets.NewCache(newCountingStore(nil))
	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, secrets.ErrSecretNotFound)
	assert.Equal(t, 0, c.Len())
}

func TestCache_CoalescesConcurrentMisses(t *testing.T) {
	store := newCountingStore(map[string]string{"X": "v"})
	store.gate = make(chan struct{})
	c := secrets.NewCache(store)

	const n = 10
	var wg sync.WaitGroup
	var started sync.WaitGroup
	var okCount atomic.Int32
	wg.Add(n)
	started.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			started.Done()
			if v, err := c.Get(context.Background(), "X"); err == nil && v == "v" {
				okCount.Add(1)
			}
		}()
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(store.gate)
	wg.Wait()

	assert.EqualValues(t, n, okCount.Load())
	assert.LessOrEqual(t, store.count("X"), n)
	assert.GreaterOrEqual(t, store.count("X"), 1)
}

func TestCache_Observer(t *testing.T) {
	var hits, misses int
	c := secrets.NewCache(newCountingStore(map[string]string{"X": "v"}), secrets.WithObserver(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	}))

	for range 3 {
		_, err := c.Get(context.Background(), "X")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, misses)
}

func TestCache_Prune(t *testing.T) {
	store := newCountingStore(map[string]string{"old": "1", "new": "2"})
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := secrets.NewCache(store, secrets.WithClock(clock.Now), secrets.WithTTL(time.Minute))
	ctx := context.Background()

	_, err := c.Get(ctx, "old")
	require.NoError(t, err)
	clock.Advance(45 * time.Second)
	_, err = c.Get(ctx, "new")
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, c.Prune(clock.Now()))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, clock.Now(), c.Now())
}

// ctxStore blocks until release and fails if its context ends first.
type ctxStore struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (s *ctxStore) GetSecret(ctx context.Context, _ string) (string, error) {
	if s.calls.Add(1) == 1 {
		close(s.entered)
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.release:
		return "v", nil
	}
}

func TestCache_CanceledCallerDoesNotFailOthers(t *testing.T) {
	store := &ctxStore{entered: make(chan struct{}), release: make(chan struct{})}
	c := secrets.NewCache(store)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Get(firstCtx, "X")
		firstErr <- err
	}()
	<-store.entered

	type result struct {
		v   string
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := c.Get(context.Background(), "X")
		second <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled caller did not return")
	}

	close(store.release)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Equal(t, "v", res.v)
	case <-time.After(time.Second):
		t.Fatal("second caller did not return")
	}
	assert.EqualValues(t, 1, store.calls.Load())
	assert.Equal(t, 1, c.Len())
}

package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marcelsud/mes-webhooks/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func sampleResult() webhook.DispatchResult {
	return webhook.NewDispatchResult([]webhook.DeliveryResult{
		{EndpointID: "a", Success: true, StatusCode: 200, State: webhook.Succeeded},
		{EndpointID: "b", Success: false, StatusCode: 500, Error: "HTTP 500", State: webhook.DeadLettered},
	})
}

func TestCache(t *testing.T) {
	ctx := context.Background()

	t.Run("success - hit returns stored response", func(t *testing.T) {
		clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		c := New(NewMemoryStore(clock.Now), WithClock(clock.Now))

		require.NoError(t, c.Store(ctx, "wo-1", sampleResult()))

		got, dup, err := c.Check(ctx, "wo-1")
		require.NoError(t, err)
		assert.True(t, dup)
		assert.Equal(t, sampleResult(), got)
	})

	t.Run("success - unknown key is a miss", func(t *testing.T) {
		c := New(NewMemoryStore(nil))

		_, dup, err := c.Check(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, dup)
	})

	t.Run("success - empty key is never a hit", func(t *testing.T) {
		c := New(NewMemoryStore(nil))

		_, dup, err := c.Check(ctx, "")
		require.NoError(t, err)
		assert.False(t, dup)
		assert.ErrorIs(t, c.Store(ctx, "", sampleResult()), ErrEmptyKey)
	})

	t.Run("success - expired but unswept record is a miss", func(t *testing.T) {
		clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		store := NewMemoryStore(clock.Now)
		c := New(store, WithClock(clock.Now))

		require.NoError(t, c.Store(ctx, "wo-1", sampleResult()))
		clock.Advance(DefaultTTL)

		_, dup, err := c.Check(ctx, "wo-1")
		require.NoError(t, err)
		assert.False(t, dup)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("success - still valid just before expiry", func(t *testing.T) {
		clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		c := New(NewMemoryStore(clock.Now), WithClock(clock.Now), WithTTL(time.Minute))

		require.NoError(t, c.Store(ctx, "k", sampleResult()))
		clock.Advance(time.Minute - time.Millisecond)

		_, dup, err := c.Check(ctx, "k")
		require.NoError(t, err)
		assert.True(t, dup)
		assert.Equal(t, time.Minute, c.TTL())
	})

	t.Run("success - store overwrites", func(t *testing.T) {
		c := New(NewMemoryStore(nil))

		require.NoError(t, c.Store(ctx, "k", webhook.NewDispatchResult(nil)))
		require.NoError(t, c.Store(ctx, "k", sampleResult()))

		got, dup, err := c.Check(ctx, "k")
		require.NoError(t, err)
		assert.True(t, dup)
		assert.Equal(t, 1, got.Sent)
	})

	t.Run("error - store failure is wrapped", func(t *testing.T) {
		c := New(brokenStore{})

		_, _, err := c.Check(ctx, "k")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading idempotency record")

		err = c.Store(ctx, "k", sampleResult())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "writing idempotency record")
	})
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(clock.Now)

	require.NoError(t, store.Set(ctx, "old", Record{ExpiresAt: clock.Now().Add(time.Hour)}))
	require.NoError(t, store.Set(ctx, "new", Record{ExpiresAt: clock.Now().Add(48 * time.Hour)}))

	clock.Advance(2 * time.Hour)

	assert.Equal(t, 1, store.Sweep())
	_, found, _ := store.Get(ctx, "old")
	assert.False(t, found)
	_, found, _ = store.Get(ctx, "new")
	assert.True(t, found)
}

func TestMemoryStoreStartSweeper(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := NewMemoryStore(clock.Now)
	require.NoError(t, store.Set(context.Background(), "k", Record{ExpiresAt: clock.Now()}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.StartSweeper(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (Record, bool, error) {
	return Record{}, false, errors.New("timeout")
}

func (brokenStore) Set(context.Context, string, Record) error {
	return errors.New("timeout")
}

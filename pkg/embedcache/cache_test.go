package embedcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time { return f.t }

func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func (f *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	f.sleeps = append(f.sleeps, d)
	f.t = f.t.Add(d)
	return nil
}

func newTestCache(clock *fakeClock, config Config) *Cache {
	return New(config, WithClock(clock.Now), WithSleeper(clock.Sleep))
}

func TestStoreThenLookupWithinTTL(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock, Config{})

	vec := []float32{0.1, 0.2, 0.3}
	c.Store("What is RAG?", vec)

	clock.Advance(29 * time.Minute)
	got, ok := c.Lookup("What is RAG?")
	require.True(t, ok)
	assert.Equal(t, vec, got)
}

func TestLookupReturnsCopy(t *testing.T) {
	c := newTestCache(newFakeClock(), Config{})
	c.Store("q", []float32{1, 2})

	got, ok := c.Lookup("q")
	require.True(t, ok)
	got[0] = 99

	again, ok := c.Lookup("q")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, again)
}

func TestLookupNormalizesText(t *testing.T) {
	c := newTestCache(newFakeClock(), Config{})
	c.Store("  Summarize The Main Topics ", []float32{1})

	got, ok := c.Lookup("summarize the main topics")
	require.True(t, ok)
	assert.Equal(t, []float32{1}, got)
}

func TestLookupAfterTTLIsMissAndEvicts(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock, Config{})

	c.Store("q", []float32{1})
	clock.Advance(DefaultTTL)

	_, ok := c.Lookup("q")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestStoreEvictsOldestInsertedAtCeiling(t *testing.T) {
	c := newTestCache(newFakeClock(), Config{MaxEntries: 3})

	c.Store("a", []float32{1})
	c.Store("b", []float32{2})
	c.Store("c", []float32{3})

	// reads do not change eviction order
	_, ok := c.Lookup("a")
	require.True(t, ok)

	c.Store("d", []float32{4})
	assert.Equal(t, 3, c.Len())

	_, ok = c.Lookup("a")
	assert.False(t, ok, "oldest entry should be evicted")
	for _, key := range []string{"b", "c", "d"} {
		_, ok := c.Lookup(key)
		assert.True(t, ok, key)
	}
}

func TestCacheNeverExceedsCeiling(t *testing.T) {
	c := newTestCache(newFakeClock(), Config{})
	for i := 0; i < DefaultMaxEntries+50; i++ {
		c.Store(fmt.Sprintf("query %d", i), []float32{float32(i)})
		require.LessOrEqual(t, c.Len(), DefaultMaxEntries)
	}

	_, ok := c.Lookup("query 49")
	assert.False(t, ok)
	_, ok = c.Lookup("query 50")
	assert.True(t, ok)
}

func TestRestoreKeepsPosition(t *testing.T) {
	c := newTestCache(newFakeClock(), Config{MaxEntries: 2})

	c.Store("a", []float32{1})
	c.Store("b", []float32{2})
	c.Store("a", []float32{9})
	assert.Equal(t, 2, c.Len())

	c.Store("c", []float32{3})
	_, ok := c.Lookup("a")
	assert.False(t, ok)

	got, ok := c.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, []float32{2}, got)
}

func TestThrottleSpacesConsecutiveReturns(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock, Config{})
	ctx := context.Background()

	gaps := []time.Duration{0, 200 * time.Millisecond, 1500 * time.Millisecond, 0, 999 * time.Millisecond}

	var returns []time.Time
	for _, gap := range gaps {
		clock.Advance(gap)
		require.NoError(t, c.Throttle(ctx))
		returns = append(returns, clock.Now())
	}

	for i := 1; i < len(returns); i++ {
		assert.GreaterOrEqual(t, returns[i].Sub(returns[i-1]), DefaultMinInterval, "gap %d", i)
	}
	assert.Equal(t, []time.Duration{800 * time.Millisecond, time.Second, time.Millisecond}, clock.sleeps)
}

func TestThrottleFirstCallDoesNotWait(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(clock, Config{})

	require.NoError(t, c.Throttle(context.Background()))
	assert.Empty(t, clock.sleeps)
}

func TestThrottleHonoursCancellation(t *testing.T) {
	c := New(Config{MinInterval: time.Hour})
	require.NoError(t, c.Throttle(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Throttle(ctx), context.Canceled)
}

func TestClear(t *testing.T) {
	c := newTestCache(newFakeClock(), Config{})
	c.Store("a", []float32{1})
	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Lookup("a")
	assert.False(t, ok)
}

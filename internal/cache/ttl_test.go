package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, opts Options) (*TTL[string, int], *fakeClock) {
	t.Helper()
	c, err := New[string, int](opts)
	require.NoError(t, err)
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	c.now = clk.Now
	return c, clk
}

func TestTTL_SetThenGet(t *testing.T) {
	c, _ := newTestCache(t, Options{})

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("a", 2)
	v, ok = c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestTTL_Expiry(t *testing.T) {
	c, clk := newTestCache(t, Options{TTL: time.Minute})

	c.Set("a", 1)
	clk.Advance(59 * time.Second)
	_, ok := c.Get("a")
	require.True(t, ok, "entry should still be live before the ttl")

	clk.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "entry must not be served once the ttl has elapsed")
	assert.Equal(t, 0, c.Len())
}

func TestTTL_ExpiryIsNotExtendedByReads(t *testing.T) {
	c, clk := newTestCache(t, Options{TTL: time.Minute})

	c.Set("a", 1)
	for i := 0; i < 5; i++ {
		clk.Advance(10 * time.Second)
		_, ok := c.Get("a")
		require.True(t, ok)
	}
	clk.Advance(10 * time.Second)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestTTL_SetRefreshesInsertionTime(t *testing.T) {
	c, clk := newTestCache(t, Options{TTL: time.Minute})

	c.Set("a", 1)
	clk.Advance(50 * time.Second)
	c.Set("a", 2)
	clk.Advance(50 * time.Second)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTL_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(t, Options{MaxCapacity: 3})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// touch a so b becomes the oldest
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", 4)

	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	for _, k := range []string{"a", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "%s should still be cached", k)
	}
}

func TestTTL_OverwriteAtCapacityDoesNotEvict(t *testing.T) {
	c, _ := newTestCache(t, Options{MaxCapacity: 2})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("b")
	assert.True(t, ok)
}

func TestTTL_Invalidate(t *testing.T) {
	c, _ := newTestCache(t, Options{})

	c.Set("a", 1)
	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	// invalidating an unknown key is a no-op
	c.Invalidate("nope")
}

func TestTTL_FillsToCapacityBeforeEvicting(t *testing.T) {
	c, _ := newTestCache(t, Options{MaxCapacity: 4})

	for _, k := range []string{"a", "b", "c", "d"} {
		c.Set(k, 1)
	}
	for _, k := range []string{"a", "b", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "%s evicted before capacity was reached", k)
	}
}

func TestTTL_DefaultOptionsEvictGlobalLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(t, Options{})

	for i := 0; i < DefaultMaxCapacity; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	require.Equal(t, DefaultMaxCapacity, c.Len())

	// k0 becomes the oldest once every other key has been read
	for i := 1; i < DefaultMaxCapacity; i++ {
		_, ok := c.Get(fmt.Sprintf("k%d", i))
		require.True(t, ok)
	}
	c.Set("extra", -1)

	_, ok := c.Get("k0")
	assert.False(t, ok, "k0 should be the one evicted")
	for i := 1; i < DefaultMaxCapacity; i++ {
		_, ok := c.Get(fmt.Sprintf("k%d", i))
		require.True(t, ok, "k%d should survive", i)
	}
	assert.Equal(t, DefaultMaxCapacity, c.Len())
}

func TestTTL_ExpiredGetDoesNotDropFreshSet(t *testing.T) {
	c, clk := newTestCache(t, Options{TTL: time.Minute})

	c.Set("a", 1)
	clk.Advance(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); c.Get("a") }()
		go func() { defer wg.Done(); c.Set("a", 2) }()
	}
	wg.Wait()

	v, ok := c.Get("a")
	require.True(t, ok, "a Set must never be undone by an expiring Get")
	assert.Equal(t, 2, v)
}

func TestTTL_ConcurrentAccess(t *testing.T) {
	c, err := New[int, int](Options{MaxCapacity: 256})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := (g*500 + i) % 300
				c.Set(k, i)
				c.Get(k)
				if i%7 == 0 {
					c.Invalidate(k)
				}
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 256)
}

package apicache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/zeebo/assert"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/apicache"
)

const grace = 5 * time.Second

type recorder struct {
	mu      sync.Mutex
	evicted []string
	probes  int
}

func (r *recorder) onEvict(key string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evicted = append(r.evicted, key)
}

func (r *recorder) keepAlive(context.Context, int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes++
	return nil
}

func (r *recorder) evictedKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.evicted...)
}

func (r *recorder) probeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.probes
}

func newCache(t *testing.T, maxSize int) (*apicache.Cache[string, int], *clockwork.FakeClock, *recorder) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	c := apicache.New(apicache.Options[string, int]{
		MaxSize:   maxSize,
		Grace:     grace,
		Clock:     clock,
		OnEvict:   rec.onEvict,
		KeepAlive: rec.keepAlive,
	})
	return c, clock, rec
}

// timer callbacks of the fake clock run on their own goroutines
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCache_SimpleExpiry(t *testing.T) {
	c, clock, rec := newCache(t, 0)
	c.Set("polkadot", 1, time.Second)
	assert.True(t, c.Has("polkadot"))

	clock.Advance(999 * time.Millisecond)
	assert.True(t, c.Has("polkadot"))

	clock.Advance(2 * time.Millisecond)
	waitFor(t, func() bool { return !c.Has("polkadot") })
	assert.Equal(t, rec.evictedKeys(), []string{"polkadot"})
	assert.Equal(t, rec.probeCount(), 0)
}

func TestCache_GraceWhileReferenced(t *testing.T) {
	c, clock, rec := newCache(t, 0)
	c.Set("kusama", 1, time.Second)
	assert.True(t, c.Retain("kusama"))
	assert.True(t, c.Retain("kusama"))

	clock.Advance(time.Second)
	waitFor(t, func() bool {
		info, ok := c.Info("kusama")
		return ok && info.DestroyWanted
	})
	info, _ := c.Info("kusama")
	assert.True(t, info.Extended)
	assert.Equal(t, info.Refs, 2)
	assert.Equal(t, info.Remaining, grace)
	waitFor(t, func() bool { return rec.probeCount() == 1 })

	// the second expiry evicts regardless of refs
	clock.Advance(grace + time.Millisecond)
	waitFor(t, func() bool { return !c.Has("kusama") })
	assert.Equal(t, rec.evictedKeys(), []string{"kusama"})
}

func TestCache_KeepAliveFailureIgnored(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := prometheus.NewRegistry()
	var evicted sync.WaitGroup
	evicted.Add(1)
	c := apicache.New(apicache.Options[string, int]{
		Grace: grace,
		Clock: clock,
		KeepAlive: func(context.Context, int) error {
			return errors.New("socket closed")
		},
		OnEvict:    func(string, int) { evicted.Done() },
		Registerer: reg,
	})
	c.Set("acala", 1, time.Second)
	c.Retain("acala")

	clock.Advance(time.Second)
	waitFor(t, func() bool {
		info, ok := c.Info("acala")
		return ok && info.Extended
	})
	clock.Advance(grace)
	evicted.Wait()
	assert.False(t, c.Has("acala"))

	assert.Equal(t, metricValue(t, reg, "xcmhub_api_cache_extensions_total"), 1.0)
	waitFor(t, func() bool { return metricValue(t, reg, "xcmhub_api_cache_keepalive_failures_total") == 1 })
}

func TestCache_Revive(t *testing.T) {
	c, clock, _ := newCache(t, 0)
	start := clock.Now()
	c.Set("hydration", 1, time.Second)

	clock.Advance(200 * time.Millisecond)
	assert.True(t, c.Revive("hydration", 300*time.Millisecond))
	info, _ := c.Info("hydration")
	assert.Equal(t, info.ExpireAt, start.Add(500*time.Millisecond))

	// never lengthened
	assert.True(t, c.Revive("hydration", 2*time.Second))
	info, _ = c.Info("hydration")
	assert.Equal(t, info.ExpireAt, start.Add(500*time.Millisecond))

	clock.Advance(299 * time.Millisecond)
	assert.True(t, c.Has("hydration"))
	clock.Advance(2 * time.Millisecond)
	waitFor(t, func() bool { return !c.Has("hydration") })

	assert.False(t, c.Revive("hydration", time.Second))
}

func TestCache_ReviveClearsExtension(t *testing.T) {
	c, clock, rec := newCache(t, 0)
	c.Set("astar", 1, time.Second)
	c.Retain("astar")

	clock.Advance(time.Second)
	waitFor(t, func() bool {
		info, _ := c.Info("astar")
		return info.Extended
	})
	assert.True(t, c.Revive("astar", time.Minute))
	info, _ := c.Info("astar")
	assert.False(t, info.Extended)
	assert.True(t, info.DestroyWanted)

	// off grace time, the next expiry extends again instead of evicting
	clock.Advance(grace)
	waitFor(t, func() bool { return rec.probeCount() == 2 })
	assert.True(t, c.Has("astar"))
}

func TestCache_GetExtends(t *testing.T) {
	c, clock, _ := newCache(t, 0)
	c.Set("moonbeam", 1, time.Second)

	clock.Advance(600 * time.Millisecond)
	v, ok := c.Get("moonbeam")
	assert.True(t, ok)
	assert.Equal(t, v, 1)
	info, _ := c.Info("moonbeam")
	assert.Equal(t, info.Remaining, time.Second)

	clock.Advance(600 * time.Millisecond)
	assert.True(t, c.Has("moonbeam"))
	clock.Advance(401 * time.Millisecond)
	waitFor(t, func() bool { return !c.Has("moonbeam") })

	_, ok = c.Get("moonbeam")
	assert.False(t, ok)
}

func TestCache_GetDoesNotExtendGraceTime(t *testing.T) {
	c, clock, _ := newCache(t, 0)
	c.Set("phala", 1, time.Second)
	c.Retain("phala")
	clock.Advance(time.Second)
	waitFor(t, func() bool {
		info, _ := c.Info("phala")
		return info.Extended
	})

	_, ok := c.Get("phala")
	assert.True(t, ok)
	info, _ := c.Info("phala")
	assert.Equal(t, info.Remaining, grace)
}

func TestCache_CapacityPrefersExtended(t *testing.T) {
	c, clock, rec := newCache(t, 2)
	c.Set("a", 1, 100*time.Millisecond)
	c.Set("b", 2, 10*time.Second)
	c.Retain("a")
	clock.Advance(100 * time.Millisecond)
	waitFor(t, func() bool {
		info, _ := c.Info("a")
		return info.Extended
	})

	c.Set("c", 3, 10*time.Second)
	assert.Equal(t, c.Len(), 2)
	assert.Equal(t, rec.evictedKeys(), []string{"a"})
}

func TestCache_CapacityOrdering(t *testing.T) {
	// soonest expiry goes first
	c, _, rec := newCache(t, 2)
	c.Set("a", 1, 3*time.Second)
	c.Set("b", 2, time.Second)
	c.Set("c", 3, 2*time.Second)
	assert.Equal(t, rec.evictedKeys(), []string{"b"})

	// equal expiry, fewest refs goes first
	c, _, rec = newCache(t, 2)
	c.Set("a", 1, time.Second)
	c.Set("b", 2, time.Second)
	c.Retain("a")
	c.Set("c", 3, time.Minute)
	assert.Equal(t, rec.evictedKeys(), []string{"b"})

	// wanted for destruction beats a sooner expiry
	c, clock, rec := newCache(t, 2)
	c.Set("a", 1, time.Second)
	c.Retain("a")
	clock.Advance(time.Second)
	waitFor(t, func() bool {
		info, _ := c.Info("a")
		return info.Extended
	})
	c.Revive("a", time.Minute)
	c.Set("b", 2, time.Millisecond)
	c.Set("c", 3, time.Minute)
	assert.Equal(t, rec.evictedKeys(), []string{"a"})
}

func TestCache_DeleteAndClear(t *testing.T) {
	c, clock, rec := newCache(t, 0)
	c.Set("a", 1, time.Second)
	c.Set("b", 2, time.Second)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, rec.evictedKeys(), []string{"a"})

	c.Clear()
	assert.Equal(t, c.Len(), 0)
	clock.Advance(2 * time.Second)
	// give stray timers a chance to run
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, rec.evictedKeys(), []string{"a"})
}

func TestCache_SetReplaces(t *testing.T) {
	c, clock, rec := newCache(t, 0)
	c.Set("a", 1, time.Second)
	c.Retain("a")
	clock.Advance(900 * time.Millisecond)
	c.Set("a", 2, time.Second)

	// the first timer must not fire for the new value
	clock.Advance(200 * time.Millisecond)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, v, 2)
	info, _ := c.Info("a")
	assert.Equal(t, info.Refs, 1)
	assert.Equal(t, len(rec.evictedKeys()), 0)
}

func TestCache_RetainRelease(t *testing.T) {
	c, _, _ := newCache(t, 0)
	assert.False(t, c.Retain("missing"))
	assert.False(t, c.Release("missing"))

	c.Set("a", 1, time.Second)
	c.Retain("a")
	c.Release("a")
	c.Release("a")
	info, _ := c.Info("a")
	assert.Equal(t, info.Refs, 0)
}

func TestCache_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	clock := clockwork.NewFakeClock()
	c := apicache.New(apicache.Options[string, int]{
		MaxSize:    1,
		Clock:      clock,
		Registerer: reg,
		Namespace:  "test",
	})
	c.Set("a", 1, time.Second)
	c.Get("a")
	c.Get("b")
	c.Set("b", 2, time.Minute)

	assert.Equal(t, metricValue(t, reg, "test_api_cache_entries"), 1.0)
	assert.Equal(t, metricValue(t, reg, "test_api_cache_hits_total"), 1.0)
	assert.Equal(t, metricValue(t, reg, "test_api_cache_misses_total"), 1.0)
	count, err := testutil.GatherAndCount(reg, "test_api_cache_evictions_total")
	assert.NoError(t, err)
	assert.Equal(t, count, 1)
}

// metricValue returns the first sample of a gathered gauge or counter
func metricValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	assert.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		m := mf.GetMetric()[0]
		if m.GetGauge() != nil {
			return m.GetGauge().GetValue()
		}
		return m.GetCounter().GetValue()
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

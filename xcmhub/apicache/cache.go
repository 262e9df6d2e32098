// Package apicache holds live chain handles with a time to live. Entries that
// are still referenced when they expire get one grace period and a keep-alive
// probe before they are evicted.
package apicache

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "apicache").Logger()
}

const (
	DefaultGrace            = 30 * time.Second
	DefaultKeepAliveTimeout = 10 * time.Second
)

const (
	reasonExpired  = "expired"
	reasonCapacity = "capacity"
	reasonDeleted  = "deleted"
)

// EvictFunc is called with every evicted entry, outside the cache lock
type EvictFunc[K comparable, V any] func(key K, value V)

// KeepAliveFunc probes the value of an entry that expired while in use.
// Its error is logged and otherwise ignored.
type KeepAliveFunc[V any] func(ctx context.Context, value V) error

type Options[K comparable, V any] struct {
	// MaxSize bounds the number of entries, 0 means unbounded
	MaxSize int
	// Grace is how long a referenced entry survives past its expiry
	Grace            time.Duration
	KeepAliveTimeout time.Duration

	Clock     clockwork.Clock
	OnEvict   EvictFunc[K, V]
	KeepAlive KeepAliveFunc[V]

	// Registerer receives the cache metrics; nil leaves them unregistered
	Registerer prometheus.Registerer
	Namespace  string
}

// EntryInfo is a snapshot of the bookkeeping of one entry
type EntryInfo struct {
	Refs          int
	Extended      bool
	DestroyWanted bool
	ExpireAt      time.Time
	Remaining     time.Duration
}

type entry[V any] struct {
	value    V
	ttl      time.Duration
	expireAt time.Time
	refs     int

	// extended is set when the entry outlived its ttl and runs on grace time
	extended bool
	// destroyWanted is sticky: the entry expired at least once while referenced
	destroyWanted bool

	timer clockwork.Timer
	// seq identifies the timer currently scheduled for the entry
	seq uint64
}

type evicted[K comparable, V any] struct {
	key    K
	value  V
	reason string
}

// Cache is safe for concurrent use. Every operation, timer callbacks included,
// runs under a single lock, so they are atomic relative to each other.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
	seq     uint64

	opts    Options[K, V]
	clock   clockwork.Clock
	metrics *metrics
}

func New[K comparable, V any](opts Options[K, V]) *Cache[K, V] {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.KeepAliveTimeout <= 0 {
		opts.KeepAliveTimeout = DefaultKeepAliveTimeout
	}
	if opts.Namespace == "" {
		opts.Namespace = "xcmhub"
	}
	return &Cache[K, V]{
		entries: make(map[K]*entry[V]),
		opts:    opts,
		clock:   opts.Clock,
		metrics: newMetrics(opts.Registerer, opts.Namespace),
	}
}

// Set inserts or replaces the entry and restarts its timer. A replaced value
// is not passed to OnEvict, it stays with the caller. Refs survive a replace.
func (c *Cache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{}
		c.entries[key] = e
	}
	e.value = value
	e.ttl = ttl
	e.extended = false
	e.destroyWanted = false
	e.expireAt = c.clock.Now().Add(ttl)
	c.schedule(key, e, ttl)
	out := c.evictIfNeeded()
	c.metrics.entries.Set(float64(len(c.entries)))
	c.mu.Unlock()

	c.notify(out)
}

// Get returns the value and, unless the entry is on grace time, pushes its
// expiry back to a full ttl from now
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.metrics.misses.Inc()
		var zero V
		return zero, false
	}
	c.metrics.hits.Inc()
	if !e.extended {
		now := c.clock.Now()
		if e.expireAt.Sub(now) < e.ttl {
			e.expireAt = now.Add(e.ttl)
			c.schedule(key, e, e.ttl)
		}
	}
	return e.value, true
}

// Has reports whether the key is cached without touching its expiry
func (c *Cache[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Delete evicts the entry immediately
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	ev := c.remove(key, e, reasonDeleted)
	c.mu.Unlock()

	c.notify([]evicted[K, V]{ev})
	return true
}

// Clear cancels every timer and empties the cache. OnEvict is not called.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	c.entries = make(map[K]*entry[V])
	c.metrics.entries.Set(0)
}

// Revive takes the entry off grace time. The timer is only ever shortened to
// ttl, never lengthened.
func (c *Cache[K, V]) Revive(key K, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	e.extended = false
	now := c.clock.Now()
	if ttl < e.expireAt.Sub(now) {
		e.expireAt = now.Add(ttl)
		c.schedule(key, e, ttl)
	}
	return true
}

// Retain marks the entry as in use
func (c *Cache[K, V]) Retain(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	e.refs++
	return true
}

// Release drops one reference taken with Retain
func (c *Cache[K, V]) Release(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if e.refs > 0 {
		e.refs--
	}
	return true
}

func (c *Cache[K, V]) Info(key K) (EntryInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return EntryInfo{}, false
	}
	return EntryInfo{
		Refs:          e.refs,
		Extended:      e.extended,
		DestroyWanted: e.destroyWanted,
		ExpireAt:      e.expireAt,
		Remaining:     e.expireAt.Sub(c.clock.Now()),
	}, true
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the cached keys in no particular order
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]K, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// schedule replaces the entry's timer. Must be called with the lock held.
func (c *Cache[K, V]) schedule(key K, e *entry[V], d time.Duration) {
	if e.timer != nil {
		e.timer.Stop()
	}
	if d < 0 {
		d = 0
	}
	c.seq++
	seq := c.seq
	e.seq = seq
	e.timer = c.clock.AfterFunc(d, func() { c.expire(key, seq) })
}

func (c *Cache[K, V]) expire(key K, seq uint64) {
	c.mu.Lock()
	e, ok := c.entries[key]
	// a timer that was replaced after it fired
	if !ok || e.seq != seq {
		c.mu.Unlock()
		return
	}

	if e.refs > 0 && !e.extended {
		e.extended = true
		e.destroyWanted = true
		e.expireAt = c.clock.Now().Add(c.opts.Grace)
		c.schedule(key, e, c.opts.Grace)
		value, refs := e.value, e.refs
		c.mu.Unlock()

		c.metrics.extensions.Inc()
		log.Debug().
			Str("key", fmt.Sprint(key)).
			Int("refs", refs).
			Dur("grace", c.opts.Grace).
			Msg("Entry expired while in use, extending")
		c.keepAlive(key, value)
		return
	}

	ev := c.remove(key, e, reasonExpired)
	c.mu.Unlock()
	c.notify([]evicted[K, V]{ev})
}

// keepAlive probes the value without blocking the caller
func (c *Cache[K, V]) keepAlive(key K, value V) {
	if c.opts.KeepAlive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.KeepAliveTimeout)
		defer cancel()
		if err := c.opts.KeepAlive(ctx, value); err != nil {
			c.metrics.keepAliveFailures.Inc()
			log.Debug().Err(err).Str("key", fmt.Sprint(key)).Msg("Keep-alive probe failed")
		}
	}()
}

// evictIfNeeded removes entries until the cache fits MaxSize. Must be called
// with the lock held.
func (c *Cache[K, V]) evictIfNeeded() []evicted[K, V] {
	var out []evicted[K, V]
	for c.opts.MaxSize > 0 && len(c.entries) > c.opts.MaxSize {
		var victimKey K
		var victim *entry[V]
		for k, e := range c.entries {
			if victim == nil || evictsBefore(e, victim) {
				victimKey, victim = k, e
			}
		}
		out = append(out, c.remove(victimKey, victim, reasonCapacity))
	}
	return out
}

// evictsBefore orders capacity victims: entries on grace time first, then
// entries wanted for destruction, then the soonest to expire, then the
// least referenced
func evictsBefore[V any](a, b *entry[V]) bool {
	if a.extended != b.extended {
		return a.extended
	}
	if a.destroyWanted != b.destroyWanted {
		return a.destroyWanted
	}
	if !a.expireAt.Equal(b.expireAt) {
		return a.expireAt.Before(b.expireAt)
	}
	return a.refs < b.refs
}

func (c *Cache[K, V]) remove(key K, e *entry[V], reason string) evicted[K, V] {
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(c.entries, key)
	c.metrics.entries.Set(float64(len(c.entries)))
	return evicted[K, V]{key: key, value: e.value, reason: reason}
}

func (c *Cache[K, V]) notify(out []evicted[K, V]) {
	for _, ev := range out {
		c.metrics.evictions.WithLabelValues(ev.reason).Inc()
		log.Debug().Str("key", fmt.Sprint(ev.key)).Str("reason", ev.reason).Msg("Evicted entry")
		if c.opts.OnEvict != nil {
			c.opts.OnEvict(ev.key, ev.value)
		}
	}
}

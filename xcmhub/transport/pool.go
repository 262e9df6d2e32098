package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Cogwheel-Validator/spectra-xcm/xcmhub/apicache"
)

type PoolOptions struct {
	TTL     time.Duration
	Grace   time.Duration
	MaxSize int

	Clock      clockwork.Clock
	Registerer prometheus.Registerer
}

func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		TTL:     5 * time.Minute,
		Grace:   apicache.DefaultGrace,
		MaxSize: 32,
	}
}

// Pool shares one Api per chain. Handles are kept alive while acquired; a
// handle the cache evicts while still acquired is disconnected on its last
// release.
type Pool struct {
	dial      Dialer
	endpoints map[string][]string
	ttl       time.Duration
	cache     *apicache.Cache[string, Api]

	// mu guards dials, at most one dial per chain is in flight
	mu    sync.Mutex
	dials map[string]*pendingDial

	// held is never locked across a dial or a cache write
	held    sync.Mutex
	inUse   map[Api]int
	retired map[Api]bool
}

type pendingDial struct {
	done chan struct{}
	err  error
}

// NewPool builds a pool; endpoint keys are chain ids, matched case-insensitively
func NewPool(dial Dialer, endpoints map[string][]string, opts PoolOptions) *Pool {
	if opts.TTL <= 0 {
		opts.TTL = DefaultPoolOptions().TTL
	}
	byChain := make(map[string][]string, len(endpoints))
	for chain, urls := range endpoints {
		byChain[strings.ToLower(chain)] = urls
	}
	p := &Pool{
		dial:      dial,
		endpoints: byChain,
		ttl:       opts.TTL,
		dials:     make(map[string]*pendingDial),
		inUse:     make(map[Api]int),
		retired:   make(map[Api]bool),
	}
	p.cache = apicache.New(apicache.Options[string, Api]{
		MaxSize:    opts.MaxSize,
		Grace:      opts.Grace,
		Clock:      opts.Clock,
		OnEvict:    p.evicted,
		KeepAlive:  probe,
		Registerer: opts.Registerer,
	})
	return p
}

// evicted disconnects the handle, or retires it while it is still acquired
func (p *Pool) evicted(key string, api Api) {
	p.held.Lock()
	if p.inUse[api] > 0 {
		p.retired[api] = true
		p.held.Unlock()
		log.Debug().Str("chain", key).Msg("Evicted chain client is in use, deferring disconnect")
		return
	}
	p.held.Unlock()
	disconnect(key, api)
}

func disconnect(key string, api Api) {
	if err := api.Disconnect(); err != nil {
		log.Warn().Err(err).Str("chain", key).Msg("Failed to disconnect evicted chain client")
	}
}

func probe(ctx context.Context, api Api) error {
	_, err := api.GetChainSpecData(ctx)
	return err
}

// HasEndpoints reports whether the pool can dial the chain
func (p *Pool) HasEndpoints(chainID string) bool {
	return len(p.endpoints[strings.ToLower(chainID)]) > 0
}

// Acquire returns the handle of a chain, dialing it when needed. Call release
// once done with it. Concurrent acquires of one chain share a single dial,
// dials of different chains do not wait on each other.
func (p *Pool) Acquire(ctx context.Context, chainID string) (Api, func(), error) {
	key := strings.ToLower(chainID)
	urls := p.endpoints[key]
	if len(urls) == 0 {
		return nil, nil, fmt.Errorf("no endpoints configured for %s", chainID)
	}

	for {
		if api, ok := p.cached(key); ok {
			return api, p.releaser(key, api), nil
		}

		p.mu.Lock()
		if pending, ok := p.dials[key]; ok {
			p.mu.Unlock()
			select {
			case <-pending.done:
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
			if pending.err != nil {
				return nil, nil, pending.err
			}
			continue
		}
		pending := &pendingDial{done: make(chan struct{})}
		p.dials[key] = pending
		p.mu.Unlock()

		api, err := p.dialAndStore(ctx, key, chainID, urls)

		p.mu.Lock()
		delete(p.dials, key)
		p.mu.Unlock()
		pending.err = err
		close(pending.done)

		if err != nil {
			return nil, nil, err
		}
		return api, p.releaser(key, api), nil
	}
}

// cached takes a reference on a cached handle
func (p *Pool) cached(key string) (Api, bool) {
	p.held.Lock()
	defer p.held.Unlock()
	api, ok := p.cache.Get(key)
	if !ok {
		return nil, false
	}
	p.inUse[api]++
	p.cache.Retain(key)
	p.cache.Revive(key, p.ttl)
	return api, true
}

func (p *Pool) dialAndStore(ctx context.Context, key, chainID string, urls []string) (Api, error) {
	api, err := p.dial(ctx, chainID, urls)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", chainID, err)
	}
	// held before it is cached, a capacity eviction on Set retires it
	p.held.Lock()
	p.inUse[api]++
	p.held.Unlock()

	p.cache.Set(key, api, p.ttl)
	p.cache.Retain(key)
	log.Debug().Str("chain", chainID).Msg("Chain client dialed")
	return api, nil
}

func (p *Pool) releaser(key string, api Api) func() {
	var once sync.Once
	return func() {
		once.Do(func() { p.release(key, api) })
	}
}

func (p *Pool) release(key string, api Api) {
	p.held.Lock()
	wasRetired := p.retired[api]
	p.inUse[api]--
	last := p.inUse[api] <= 0
	if last {
		delete(p.inUse, api)
		delete(p.retired, api)
	}
	p.held.Unlock()

	switch {
	case !wasRetired:
		p.cache.Release(key)
	case last:
		disconnect(key, api)
	}
}

// Len returns the number of live handles
func (p *Pool) Len() int {
	return p.cache.Len()
}

// Close evicts every handle. Handles still acquired are disconnected on
// release.
func (p *Pool) Close() {
	for _, key := range p.cache.Keys() {
		p.cache.Delete(key)
	}
}

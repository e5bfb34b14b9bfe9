/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package cache publishes generated proxy types.
//
// A Cache maps the canonical key of a proxy request to the generated type
// built for it. Concurrent requests with equal keys share a single build
// and always observe the same *synth.Type; failed builds are not cached.
// The retention policy (Unbounded, LRU or TTL) decides how long a type
// stays published. Eviction never invalidates types already handed out.
package cache

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/request"
	"dirpx.dev/dpx/synth"
)

var (
	// ErrNilBuilder is returned by New without a builder.
	ErrNilBuilder = errors.New("dpx(cache): nil builder")
	// ErrNilRequest is returned by GetOrCreate for a nil request.
	ErrNilRequest = errors.New("dpx(cache): nil request")
)

// DefaultCapacity is the LRU capacity used when none is configured.
const DefaultCapacity = 1024

// DefaultTTL is the idle lifetime used under TTL retention when none is
// configured.
const DefaultTTL = 10 * time.Minute

// Builder generates the type for a request.
type Builder func(ctx context.Context, req *request.Request) (*synth.Type, error)

// Observer is notified of cache activity. Implementations must be safe for
// concurrent use and must not call back into the cache.
type Observer interface {
	CacheHit(key string)
	CacheMiss(key string)
	CacheBuilt(key string, took time.Duration, err error)
	CacheEvicted(key string)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Builds    uint64
	Failures  uint64
	Evictions uint64
	Size      int
}

type entry struct {
	key  string
	typ  *synth.Type
	used time.Time
	elem *list.Element
}

// Cache is safe for concurrent use.
type Cache struct {
	build     Builder
	retention apis.Retention
	capacity  int
	ttl       time.Duration
	now       func() time.Time
	observer  Observer
	log       *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List // front is most recently used
	group   singleflight.Group

	hits, misses, builds, failures, evictions atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithRetention selects the retention policy.
func WithRetention(r apis.Retention) Option {
	return func(c *Cache) { c.retention = r }
}

// WithCapacity bounds the cache under LRU retention.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithTTL sets the idle lifetime under TTL retention.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithObserver attaches an observer.
func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// WithLogger sets the logger (slog.Default() by default).
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// FromConfig returns the options matching cfg.
func FromConfig(cfg apis.Config) []Option {
	return []Option{
		WithRetention(cfg.Retention),
		WithCapacity(cfg.CacheCapacity),
		WithTTL(cfg.CacheTTL),
		WithLogger(cfg.Logger),
	}
}

// New returns an empty cache that generates types with build.
func New(build Builder, opts ...Option) (*Cache, error) {
	if build == nil {
		return nil, ErrNilBuilder
	}
	c := &Cache{
		build:    build,
		capacity: DefaultCapacity,
		ttl:      DefaultTTL,
		now:      time.Now,
		log:      slog.Default(),
		entries:  map[string]*entry{},
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Retention returns the retention policy.
func (c *Cache) Retention() apis.Retention { return c.retention }

// GetOrCreate returns the type published for req's key, building and
// publishing it first if needed. Concurrent callers with equal keys share
// one build, which runs with the context of the caller that started it.
func (c *Cache) GetOrCreate(ctx context.Context, req *request.Request) (*synth.Type, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	key := req.Key()
	if t, ok := c.get(key); ok {
		c.hits.Add(1)
		if c.observer != nil {
			c.observer.CacheHit(key)
		}
		return t, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		// Another flight may have published it since the miss above.
		if t, ok := c.get(key); ok {
			return t, nil
		}
		c.misses.Add(1)
		if c.observer != nil {
			c.observer.CacheMiss(key)
		}
		start := c.now()
		t, err := c.build(ctx, req)
		took := c.now().Sub(start)
		c.builds.Add(1)
		if c.observer != nil {
			c.observer.CacheBuilt(key, took, err)
		}
		if err != nil {
			c.failures.Add(1)
			c.log.Debug("dpx: type generation failed", "key", key, "error", err)
			return nil, err
		}
		c.put(key, t)
		c.log.Debug("dpx: type published", "key", key, "type", t.Name(), "took", took)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug("dpx: type build shared", "key", key)
	}
	return v.(*synth.Type), nil
}

// Lookup returns the published type for req without building.
func (c *Cache) Lookup(req *request.Request) (*synth.Type, bool) {
	if req == nil {
		return nil, false
	}
	return c.get(req.Key())
}

// Evict unpublishes the type for req. It reports whether one was present.
func (c *Cache) Evict(req *request.Request) bool {
	if req == nil {
		return false
	}
	return c.EvictKey(req.Key())
}

// EvictKey unpublishes the type stored under key.
func (c *Cache) EvictKey(key string) bool {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		c.remove(e)
	}
	c.mu.Unlock()
	if ok {
		c.evicted(key)
	}
	return ok
}

// Sweep evicts every expired entry under TTL retention and returns how many
// were removed.
func (c *Cache) Sweep() int {
	if c.retention != apis.TTL {
		return 0
	}
	now := c.now()
	var gone []string
	c.mu.Lock()
	for key, e := range c.entries {
		if now.Sub(e.used) > c.ttl {
			c.remove(e)
			gone = append(gone, key)
		}
	}
	c.mu.Unlock()
	for _, key := range gone {
		c.evicted(key)
	}
	return len(gone)
}

// Reset drops every published type. Counters are kept.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*entry{}
	c.order.Init()
}

// Len returns the number of published types.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the published keys, sorted.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	slices.Sort(keys)
	return keys
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Builds:    c.builds.Load(),
		Failures:  c.failures.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.Len(),
	}
}

func (c *Cache) get(key string) (*synth.Type, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil, false
	}
	now := c.now()
	if c.retention == apis.TTL && now.Sub(e.used) > c.ttl {
		c.remove(e)
		c.mu.Unlock()
		c.evicted(key)
		return nil, false
	}
	e.used = now
	if c.retention == apis.LRU {
		c.order.MoveToFront(e.elem)
	}
	c.mu.Unlock()
	return e.typ, true
}

func (c *Cache) put(key string, t *synth.Type) {
	var gone []string
	c.mu.Lock()
	e := &entry{key: key, typ: t, used: c.now()}
	e.elem = c.order.PushFront(e)
	c.entries[key] = e
	if c.retention == apis.LRU {
		for len(c.entries) > c.capacity {
			last := c.order.Back().Value.(*entry)
			c.remove(last)
			gone = append(gone, last.key)
		}
	}
	c.mu.Unlock()
	for _, key := range gone {
		c.evicted(key)
	}
}

// remove must be called with mu held.
func (c *Cache) remove(e *entry) {
	delete(c.entries, e.key)
	c.order.Remove(e.elem)
}

func (c *Cache) evicted(key string) {
	c.evictions.Add(1)
	if c.observer != nil {
		c.observer.CacheEvicted(key)
	}
	c.log.Debug("dpx: type evicted", "key", key)
}

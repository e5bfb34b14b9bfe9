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

package cache_test

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"dirpx.dev/dpx/apis"
	"dirpx.dev/dpx/cache"
	"dirpx.dev/dpx/composer"
	"dirpx.dev/dpx/request"
	"dirpx.dev/dpx/synth"
)

var pool = []*request.Request{
	request.MustNew(apis.InterfaceWithoutTarget, reflect.TypeFor[io.Reader]()),
	request.MustNew(apis.InterfaceWithoutTarget, reflect.TypeFor[io.Writer]()),
	request.MustNew(apis.InterfaceWithTarget, reflect.TypeFor[io.Reader]()),
	request.MustNew(apis.InterfaceWithoutTarget, reflect.TypeFor[io.Reader](), request.WithInterfaces(reflect.TypeFor[io.Closer]())),
	request.MustNew(apis.InterfaceWithoutTarget, reflect.TypeFor[io.Reader](), request.WithTag("tier", "gold")),
}

type counting struct {
	comp  *composer.Composer
	calls atomic.Int64
	delay time.Duration
}

func (b *counting) build(ctx context.Context, req *request.Request) (*synth.Type, error) {
	b.calls.Add(1)
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	return b.comp.Compose(ctx, req)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu                         sync.Mutex
	hits, misses, built, evict []string
}

func (r *recorder) CacheHit(key string) { r.mu.Lock(); r.hits = append(r.hits, key); r.mu.Unlock() }
func (r *recorder) CacheMiss(key string) {
	r.mu.Lock()
	r.misses = append(r.misses, key)
	r.mu.Unlock()
}
func (r *recorder) CacheBuilt(key string, _ time.Duration, _ error) {
	r.mu.Lock()
	r.built = append(r.built, key)
	r.mu.Unlock()
}
func (r *recorder) CacheEvicted(key string) {
	r.mu.Lock()
	r.evict = append(r.evict, key)
	r.mu.Unlock()
}

func TestNew_NilBuilder(t *testing.T) {
	_, err := cache.New(nil)
	assert.ErrorIs(t, err, cache.ErrNilBuilder)
}

func TestGetOrCreate_SameKeySameType(t *testing.T) {
	ctx := context.Background()
	b := &counting{comp: composer.New()}
	c, err := cache.New(b.build)
	require.NoError(t, err)

	t1, err := c.GetOrCreate(ctx, pool[0])
	require.NoError(t, err)
	t2, err := c.GetOrCreate(ctx, request.MustNew(apis.InterfaceWithoutTarget, reflect.TypeFor[io.Reader]()))
	require.NoError(t, err)
	assert.Same(t, t1, t2)

	t3, err := c.GetOrCreate(ctx, pool[1])
	require.NoError(t, err)
	assert.NotSame(t, t1, t3)

	assert.EqualValues(t, 2, b.calls.Load())
	st := c.Stats()
	assert.EqualValues(t, 1, st.Hits)
	assert.EqualValues(t, 2, st.Misses)
	assert.Equal(t, 2, st.Size)

	got, ok := c.Lookup(pool[0])
	require.True(t, ok)
	assert.Same(t, t1, got)
	_, err = c.GetOrCreate(ctx, nil)
	assert.ErrorIs(t, err, cache.ErrNilRequest)
}

func TestGetOrCreate_ConcurrentDeterminism(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		picks := rapid.SliceOfN(rapid.IntRange(0, len(pool)-1), 1, 48).Draw(rt, "picks")
		b := &counting{comp: composer.New(), delay: time.Millisecond}
		c, err := cache.New(b.build)
		require.NoError(rt, err)

		got := make([]*synth.Type, len(picks))
		var wg sync.WaitGroup
		for i, p := range picks {
			wg.Add(1)
			go func() {
				defer wg.Done()
				typ, err := c.GetOrCreate(context.Background(), pool[p])
				if err == nil {
					got[i] = typ
				}
			}()
		}
		wg.Wait()

		byKey := map[int]*synth.Type{}
		for i, p := range picks {
			require.NotNil(rt, got[i])
			if prev, ok := byKey[p]; ok {
				require.Same(rt, prev, got[i], "request %d", p)
			}
			byKey[p] = got[i]
		}
		seen := map[*synth.Type]int{}
		for p, typ := range byKey {
			if other, dup := seen[typ]; dup {
				rt.Fatalf("requests %d and %d share a type", p, other)
			}
			seen[typ] = p
		}
		require.EqualValues(rt, len(byKey), b.calls.Load())
		require.Equal(rt, len(byKey), c.Len())
	})
}

func TestGetOrCreate_FailuresAreNotCached(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	var fail atomic.Bool
	fail.Store(true)
	comp := composer.New()
	c, err := cache.New(func(ctx context.Context, req *request.Request) (*synth.Type, error) {
		if fail.Load() {
			return nil, boom
		}
		return comp.Compose(ctx, req)
	})
	require.NoError(t, err)

	_, err = c.GetOrCreate(ctx, pool[0])
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
	assert.EqualValues(t, 1, c.Stats().Failures)

	fail.Store(false)
	typ, err := c.GetOrCreate(ctx, pool[0])
	require.NoError(t, err)
	assert.NotNil(t, typ)
	assert.Equal(t, 1, c.Len())
}

func TestLRU(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	b := &counting{comp: composer.New()}
	c, err := cache.New(b.build, cache.WithRetention(apis.LRU), cache.WithCapacity(2), cache.WithObserver(rec))
	require.NoError(t, err)

	first, err := c.GetOrCreate(ctx, pool[0])
	require.NoError(t, err)
	_, err = c.GetOrCreate(ctx, pool[1])
	require.NoError(t, err)
	_, err = c.GetOrCreate(ctx, pool[0]) // pool[1] is now least recent
	require.NoError(t, err)
	_, err = c.GetOrCreate(ctx, pool[2])
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Lookup(pool[1])
	assert.False(t, ok)
	again, ok := c.Lookup(pool[0])
	require.True(t, ok)
	assert.Same(t, first, again)
	assert.Equal(t, []string{pool[1].Key()}, rec.evict)
	assert.Len(t, rec.hits, 1)
	assert.Len(t, rec.built, 3)

	// evicted types keep working; a new request just builds a new one
	rebuilt, err := c.GetOrCreate(ctx, pool[1])
	require.NoError(t, err)
	assert.Equal(t, pool[1].Key(), rebuilt.Key())
	assert.EqualValues(t, 4, b.calls.Load())
}

func TestTTL(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	b := &counting{comp: composer.New()}
	c, err := cache.New(b.build, append(cache.FromConfig(apis.Config{Retention: apis.TTL, CacheTTL: time.Minute}), cache.WithClock(clk.Now))...)
	require.NoError(t, err)
	require.Equal(t, apis.TTL, c.Retention())

	t1, err := c.GetOrCreate(ctx, pool[0])
	require.NoError(t, err)
	_, err = c.GetOrCreate(ctx, pool[1])
	require.NoError(t, err)

	clk.Advance(30 * time.Second)
	_, ok := c.Lookup(pool[0]) // refreshes pool[0]
	require.True(t, ok)

	clk.Advance(45 * time.Second)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, []string{pool[0].Key()}, c.Keys())

	clk.Advance(2 * time.Minute)
	t2, err := c.GetOrCreate(ctx, pool[0])
	require.NoError(t, err)
	assert.NotSame(t, t1, t2)
	assert.EqualValues(t, 3, b.calls.Load())
	assert.EqualValues(t, 2, c.Stats().Evictions)
}

func TestEvictAndReset(t *testing.T) {
	ctx := context.Background()
	c, err := cache.New((&counting{comp: composer.New()}).build)
	require.NoError(t, err)

	for _, req := range pool {
		_, err := c.GetOrCreate(ctx, req)
		require.NoError(t, err)
	}
	require.Equal(t, len(pool), c.Len())

	assert.True(t, c.Evict(pool[0]))
	assert.False(t, c.Evict(pool[0]))
	assert.False(t, c.Evict(nil))
	assert.Equal(t, len(pool)-1, c.Len())
	assert.Equal(t, 0, c.Sweep(), "sweep is a no-op outside TTL retention")

	c.Reset()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Keys())
}

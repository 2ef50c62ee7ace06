// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTTLCache_GetSet(t *testing.T) {
	clock := newFakeClock()
	c := NewTTLCache[int64, string](time.Minute)
	c.now = clock.Now

	if _, ok := c.Get(1); ok {
		t.Fatal("Get on empty cache returned ok")
	}

	c.Set(1, "Jita")
	if v, ok := c.Get(1); !ok || v != "Jita" {
		t.Fatalf("Get(1) = (%q, %v), want (Jita, true)", v, ok)
	}

	clock.Advance(61 * time.Second)
	if _, ok := c.Get(1); ok {
		t.Error("entry still returned after TTL")
	}

	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 2 || stats.Evictions != 1 {
		t.Errorf("stats = %+v, want 1 hit, 2 misses, 1 eviction", stats)
	}
	if rate := stats.HitRate(); rate < 33 || rate > 34 {
		t.Errorf("HitRate() = %.2f, want ~33.3", rate)
	}
}

func TestTTLCache_GetOrLoadCoalesces(t *testing.T) {
	c := NewTTLCache[int64, int](time.Minute)

	var calls atomic.Int32
	release := make(chan struct{})
	load := func() (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrLoad(30000142, load)
			if err != nil {
				t.Errorf("GetOrLoad() error = %v", err)
			}
			results[i] = v
		}(i)
	}

	// Give the goroutines a chance to pile onto the flight
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, v := range results {
		if v != 7 {
			t.Errorf("results[%d] = %d, want 7", i, v)
		}
	}
	// Late arrivals may hit the cache instead of the flight, but nobody loads twice
	if got := calls.Load(); got != 1 {
		t.Errorf("load called %d times, want 1", got)
	}

	if _, err := c.GetOrLoad(30000142, func() (int, error) {
		t.Error("load called for cached key")
		return 0, nil
	}); err != nil {
		t.Errorf("GetOrLoad() error = %v", err)
	}
}

func TestTTLCache_GetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := NewTTLCache[string, int](time.Minute)
	boom := errors.New("esi down")

	if _, err := c.GetOrLoad("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("GetOrLoad() error = %v, want %v", err, boom)
	}
	v, err := c.GetOrLoad("k", func() (int, error) { return 3, nil })
	if err != nil || v != 3 {
		t.Errorf("GetOrLoad() after failure = (%d, %v), want (3, nil)", v, err)
	}
}

func TestTTLCache_ZeroTTLStoresNothing(t *testing.T) {
	c := NewTTLCache[int, int](0)

	var calls int
	for i := 0; i < 3; i++ {
		if _, err := c.GetOrLoad(1, func() (int, error) { calls++; return 1, nil }); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 3 {
		t.Errorf("load called %d times, want 3", calls)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestTTLCache_CleanupAndClear(t *testing.T) {
	clock := newFakeClock()
	c := NewTTLCache[int, int](time.Minute)
	c.now = clock.Now

	c.Set(1, 1)
	c.Set(2, 2)
	clock.Advance(2 * time.Minute)
	c.Set(3, 3)

	if removed := c.Cleanup(); removed != 2 {
		t.Errorf("Cleanup() = %d, want 2", removed)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	c.Delete(3)
	c.Set(4, 4)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
}

func TestTTLCache_GetOrLoadContext_WaiterCancellation(t *testing.T) {
	c := NewTTLCache[int64, int](time.Minute)

	started := make(chan struct{})
	release := make(chan struct{})
	var loadErr atomic.Value
	var once sync.Once
	load := func(ctx context.Context) (int, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			loadErr.Store(err)
			return 0, err
		}
		return 11, nil
	}

	first, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoadContext(first, 1, load)
		firstDone <- err
	}()
	<-started

	secondDone := make(chan int, 1)
	go func() {
		v, err := c.GetOrLoadContext(context.Background(), 1, load)
		if err != nil {
			t.Errorf("second caller error = %v", err)
		}
		secondDone <- v
	}()

	cancelFirst()
	if err := <-firstDone; !errors.Is(err, context.Canceled) {
		t.Errorf("first caller error = %v, want context.Canceled", err)
	}
	close(release)

	if v := <-secondDone; v != 11 {
		t.Errorf("second caller value = %d, want 11", v)
	}
	if err := loadErr.Load(); err != nil {
		t.Errorf("shared load saw %v after the first caller left", err)
	}
	if v, ok := c.Get(1); !ok || v != 11 {
		t.Errorf("Get(1) = (%d, %v), want (11, true)", v, ok)
	}
}

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"go.viam.com/test"
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
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func TestTTLCacheExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := New[string](time.Minute).WithClock(clock.Now)

	_, ok := c.Get("missing")
	test.That(t, ok, test.ShouldBeFalse)

	c.Set("a", "first")
	v, ok := c.Get("a")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, "first")

	clock.Advance(59 * time.Second)
	c.Set("a", "second")
	clock.Advance(59 * time.Second)
	v, ok = c.Get("a")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, "second")

	clock.Advance(2 * time.Second)
	_, ok = c.Get("a")
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, c.Len(), test.ShouldEqual, 0)
}

func TestTTLCacheTouch(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := New[int](10 * time.Second).WithClock(clock.Now)

	test.That(t, c.Touch("x"), test.ShouldBeFalse)
	c.Set("x", 7)
	clock.Advance(8 * time.Second)
	test.That(t, c.Touch("x"), test.ShouldBeTrue)
	clock.Advance(8 * time.Second)
	v, ok := c.Get("x")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 7)
}

func TestTTLCacheConcurrent(t *testing.T) {
	c := New[int](time.Hour)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%20)
				if _, ok := c.Get(key); !ok {
					c.Set(key, i%20)
				}
			}
		}(w)
	}
	wg.Wait()

	test.That(t, c.Len(), test.ShouldEqual, 20)
	for i := 0; i < 20; i++ {
		v, ok := c.Get(fmt.Sprintf("k%d", i))
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, v, test.ShouldEqual, i)
	}
}

package codelens

import (
	"sync"
	"testing"
)

func TestLatchFiresOnceAtZero(t *testing.T) {
	calls := 0
	l := NewLatch(3, func() { calls++ })
	l.Done()
	l.Done()
	if calls != 0 {
		t.Fatalf("fired early: %d", calls)
	}
	l.Done()
	l.Done()
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if l.Pending() != 0 {
		t.Fatalf("expected 0 pending, got %d", l.Pending())
	}
}

func TestLatchZeroFiresImmediately(t *testing.T) {
	calls := 0
	NewLatch(0, func() { calls++ })
	if calls != 1 {
		t.Fatalf("expected immediate call, got %d", calls)
	}
}

func TestLatchConcurrentDone(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	const n = 64
	l := NewLatch(n, func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	var wg sync.WaitGroup
	for range 2 * n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Done()
		}()
	}
	wg.Wait()
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSlotPoolCapacityInvariant(t *testing.T) {
	p := NewSlotPool(2)
	ctx := context.Background()

	if err := p.Acquire(ctx, "a"); err != nil {
		t.Fatalf("Acquire(a): %v", err)
	}
	if err := p.Acquire(ctx, "b"); err != nil {
		t.Fatalf("Acquire(b): %v", err)
	}

	active, stale, queued := p.Counts()
	if active != 2 || stale != 0 || queued != 0 {
		t.Fatalf("counts = (%d, %d, %d), want (2, 0, 0)", active, stale, queued)
	}

	// Third acquire blocks until a slot frees.
	acquired := make(chan error, 1)
	go func() { acquired <- p.Acquire(ctx, "c") }()

	select {
	case err := <-acquired:
		t.Fatalf("Acquire(c) returned %v before capacity freed", err)
	case <-time.After(50 * time.Millisecond):
	}

	if !p.Contended() {
		t.Error("Contended() = false with a waiter on a full pool")
	}

	p.Release("a")
	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("Acquire(c) after release: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire(c) never unblocked after release")
	}

	active, stale, _ = p.Counts()
	if active+stale > p.Capacity() {
		t.Errorf("capacity invariant violated: %d+%d > %d", active, stale, p.Capacity())
	}
}

func TestSlotPoolStaleCountsAgainstCapacity(t *testing.T) {
	p := NewSlotPool(1)
	ctx := context.Background()

	if err := p.Acquire(ctx, "idle"); err != nil {
		t.Fatal(err)
	}
	p.MarkStale("idle")

	// A stale connection still occupies the budget.
	acquired := make(chan error, 1)
	go func() { acquired <- p.Acquire(ctx, "busy") }()

	select {
	case <-acquired:
		t.Fatal("Acquire succeeded past a stale connection, capacity ignored")
	case <-time.After(50 * time.Millisecond):
	}

	// The idle light notices contention and yields.
	if !p.Contended() {
		t.Fatal("Contended() = false, idle light would never yield")
	}
	p.Release("idle")

	select {
	case err := <-acquired:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire never unblocked after stale eviction")
	}
}

func TestSlotPoolReacquireHeldSlot(t *testing.T) {
	p := NewSlotPool(1)
	ctx := context.Background()

	if err := p.Acquire(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	// Re-acquiring while active is a no-op, not a deadlock.
	if err := p.Acquire(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	// Promoting a stale slot back to active reuses the held slot.
	p.MarkStale("a")
	if err := p.Acquire(ctx, "a"); err != nil {
		t.Fatal(err)
	}

	active, stale, _ := p.Counts()
	if active != 1 || stale != 0 {
		t.Errorf("counts = (%d, %d), want (1, 0)", active, stale)
	}
}

func TestSlotPoolAcquireCancellable(t *testing.T) {
	p := NewSlotPool(1)
	if err := p.Acquire(context.Background(), "holder"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	acquired := make(chan error, 1)
	go func() { acquired <- p.Acquire(ctx, "waiter") }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-acquired:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Acquire error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled Acquire never returned")
	}

	// The cancelled waiter must not linger in the queued set.
	_, _, queued := p.Counts()
	if queued != 0 {
		t.Errorf("queued = %d after cancellation, want 0", queued)
	}
}

func TestSlotPoolConcurrentChurn(t *testing.T) {
	const capacity = 3
	const devices = 10

	p := NewSlotPool(capacity)
	ctx := context.Background()

	var wg sync.WaitGroup
	violation := make(chan string, 1)

	for i := 0; i < devices; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if err := p.Acquire(ctx, id); err != nil {
					return
				}
				active, stale, _ := p.Counts()
				if active+stale > capacity {
					select {
					case violation <- fmt.Sprintf("%d+%d > %d", active, stale, capacity):
					default:
					}
				}
				p.MarkStale(id)
				p.Release(id)
			}
		}(fmt.Sprintf("dev-%d", i))
	}

	wg.Wait()
	select {
	case v := <-violation:
		t.Fatalf("capacity invariant violated: %s", v)
	default:
	}
}

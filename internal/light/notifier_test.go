package light

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNotifierCoalescesBursts(t *testing.T) {
	var fired atomic.Int32
	n := NewNotifier(func() { fired.Add(1) }, NotifierConfig{
		MinDelay: 20 * time.Millisecond,
		MaxDelay: 200 * time.Millisecond,
		Penalty:  10 * time.Millisecond,
	})
	defer n.Stop()

	// A burst of requests while one delivery is pending collapses into
	// that single delivery.
	for i := 0; i < 10; i++ {
		n.RequestUpdate()
	}

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("deliveries = %d, want 1 for a coalesced burst", got)
	}
}

func TestNotifierFirstDeliveryPrompt(t *testing.T) {
	delivered := make(chan time.Time, 1)
	n := NewNotifier(func() { delivered <- time.Now() }, NotifierConfig{
		MinDelay: 10 * time.Millisecond,
		MaxDelay: time.Second,
		Penalty:  10 * time.Millisecond,
	})
	defer n.Stop()

	start := time.Now()
	n.RequestUpdate()

	select {
	case at := <-delivered:
		// No prior delivery: the elapsed-time credit swallows the whole
		// minimum delay.
		if at.Sub(start) > 100*time.Millisecond {
			t.Errorf("first delivery took %v, want nearly immediate", at.Sub(start))
		}
	case <-time.After(time.Second):
		t.Fatal("first delivery never fired")
	}
}

func TestNotifierAdaptiveBackoff(t *testing.T) {
	var mu sync.Mutex
	var times []time.Time
	n := NewNotifier(func() {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
	}, NotifierConfig{
		MinDelay: 10 * time.Millisecond,
		MaxDelay: 10 * time.Second, // no reset during the test
		Penalty:  20 * time.Millisecond,
	})
	defer n.Stop()

	// Fire several successive notifications; each one lands within
	// MaxDelay of the previous, incrementing the successive counter and
	// stretching the gap.
	for i := 0; i < 4; i++ {
		n.RequestUpdate()
		deadline := time.After(2 * time.Second)
		for {
			mu.Lock()
			got := len(times)
			mu.Unlock()
			if got > i {
				break
			}
			select {
			case <-deadline:
				t.Fatalf("delivery %d never fired", i)
			case <-time.After(time.Millisecond):
			}
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(times) < 4 {
		t.Fatalf("got %d deliveries, want 4", len(times))
	}
	// Gaps between consecutive deliveries grow by roughly one penalty
	// each round. Allow generous slack; the property is growth, not
	// exact timing.
	gap1 := times[2].Sub(times[1])
	gap2 := times[3].Sub(times[2])
	if gap2 < gap1 {
		t.Errorf("gaps shrank under load: %v then %v, want non-decreasing", gap1, gap2)
	}
}

func TestNotifierSuccessiveResetAfterQuietGap(t *testing.T) {
	var fired atomic.Int32
	n := NewNotifier(func() { fired.Add(1) }, NotifierConfig{
		MinDelay: 5 * time.Millisecond,
		MaxDelay: 30 * time.Millisecond,
		Penalty:  5 * time.Millisecond,
	})
	defer n.Stop()

	n.RequestUpdate()
	time.Sleep(20 * time.Millisecond)
	n.RequestUpdate()
	time.Sleep(20 * time.Millisecond)

	// Quiet gap of at least MaxDelay resets the successive counter.
	time.Sleep(40 * time.Millisecond)

	start := time.Now()
	done := make(chan struct{})
	prev := fired.Load()
	go func() {
		for fired.Load() == prev {
			time.Sleep(time.Millisecond)
		}
		close(done)
	}()
	n.RequestUpdate()

	select {
	case <-done:
		// After the reset the delivery is prompt again: the elapsed time
		// since the last update exceeds MinDelay.
		if elapsed := time.Since(start); elapsed > 25*time.Millisecond {
			t.Errorf("post-quiet delivery took %v, want prompt", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("post-quiet delivery never fired")
	}
}

func TestNotifierStopDropsPending(t *testing.T) {
	var fired atomic.Int32
	n := NewNotifier(func() { fired.Add(1) }, NotifierConfig{
		MinDelay: 500 * time.Millisecond,
		MaxDelay: time.Second,
		Penalty:  100 * time.Millisecond,
	})

	// Consume the elapsed-time credit so the next request really waits.
	n.mu.Lock()
	n.lastUpdate = time.Now()
	n.mu.Unlock()

	n.RequestUpdate()
	n.Stop()

	if got := fired.Load(); got != 0 {
		t.Errorf("deliveries after Stop = %d, want 0", got)
	}

	// Requests after Stop are ignored.
	n.RequestUpdate()
	time.Sleep(20 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("deliveries after Stop = %d, want 0", got)
	}
}

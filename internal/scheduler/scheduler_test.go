package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeRunner blocks inside Run until released, recording concurrency.
type fakeRunner struct {
	id      string
	release chan struct{}
	pending atomic.Bool

	runs    atomic.Int32
	started chan struct{} // receives one token per run start

	// concurrent tracks how many fakeRunners are inside Run at once.
	gauge *concurrencyGauge
}

type concurrencyGauge struct {
	mu      sync.Mutex
	current int
	max     int
}

func (g *concurrencyGauge) enter() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current++
	if g.current > g.max {
		g.max = g.current
	}
}

func (g *concurrencyGauge) exit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current--
}

func (g *concurrencyGauge) peak() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.max
}

func newFakeRunner(id string, gauge *concurrencyGauge) *fakeRunner {
	return &fakeRunner{
		id:      id,
		release: make(chan struct{}),
		started: make(chan struct{}, 16),
		gauge:   gauge,
	}
}

func (r *fakeRunner) Address() string { return r.id }
func (r *fakeRunner) Pending() bool   { return r.pending.Load() }

func (r *fakeRunner) Run(ctx context.Context) error {
	r.runs.Add(1)
	r.started <- struct{}{}
	if r.gauge != nil {
		r.gauge.enter()
		defer r.gauge.exit()
	}
	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return nil
}

func (r *fakeRunner) finish() {
	r.release <- struct{}{}
}

func waitStarted(t *testing.T, r *fakeRunner) {
	t.Helper()
	select {
	case <-r.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("runner %s never started", r.id)
	}
}

func TestRequestRunIdempotent(t *testing.T) {
	s := New(1)
	defer s.Stop()

	r := newFakeRunner("a", nil)
	s.RequestRun(r)
	waitStarted(t, r)

	// Requests while running are dropped: no second concurrent run.
	s.RequestRun(r)
	s.RequestRun(r)

	running, queued := s.Counts()
	if running != 1 || queued != 0 {
		t.Errorf("counts = (%d running, %d queued), want (1, 0)", running, queued)
	}

	r.finish()
	time.Sleep(50 * time.Millisecond)
	if got := r.runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestParallelismLimitHolds(t *testing.T) {
	const parallel = 2
	const devices = 6

	gauge := &concurrencyGauge{}
	s := New(parallel)
	defer s.Stop()

	runners := make([]*fakeRunner, devices)
	for i := range runners {
		runners[i] = newFakeRunner(fmt.Sprintf("dev-%d", i), gauge)
		s.RequestRun(runners[i])
	}

	// Release everyone as they start; the gauge records the peak.
	finished := 0
	for finished < devices {
		for _, r := range runners {
			select {
			case <-r.started:
				r.finish()
				finished++
			default:
			}
		}
		time.Sleep(time.Millisecond)
	}

	if peak := gauge.peak(); peak > parallel {
		t.Errorf("peak concurrency = %d, want <= %d", peak, parallel)
	}
	for _, r := range runners {
		if got := r.runs.Load(); got != 1 {
			t.Errorf("runner %s ran %d times, want 1", r.id, got)
		}
	}
}

func TestFIFOAdmission(t *testing.T) {
	s := New(1)
	defer s.Stop()

	a := newFakeRunner("a", nil)
	b := newFakeRunner("b", nil)
	c := newFakeRunner("c", nil)

	s.RequestRun(a)
	waitStarted(t, a)
	s.RequestRun(b)
	s.RequestRun(c)

	// B was requested before C; it must be admitted first.
	a.finish()
	waitStarted(t, b)
	if got := c.runs.Load(); got != 0 {
		t.Error("c admitted before b finished")
	}
	b.finish()
	waitStarted(t, c)
	c.finish()
}

func TestContendedReflectsBacklog(t *testing.T) {
	s := New(1)
	defer s.Stop()

	if s.Contended() {
		t.Error("empty scheduler reports contended")
	}

	a := newFakeRunner("a", nil)
	s.RequestRun(a)
	waitStarted(t, a)
	if s.Contended() {
		t.Error("contended with nothing queued")
	}

	b := newFakeRunner("b", nil)
	s.RequestRun(b)
	if !s.Contended() {
		t.Error("not contended with full parallelism and a queued runner")
	}

	a.finish()
	waitStarted(t, b)
	if s.Contended() {
		t.Error("still contended after the queue drained")
	}
	b.finish()
}

func TestPendingRunnerRequeuedAtTail(t *testing.T) {
	s := New(1)
	defer s.Stop()

	chatty := newFakeRunner("chatty", nil)
	waiting := newFakeRunner("waiting", nil)

	s.RequestRun(chatty)
	waitStarted(t, chatty)
	s.RequestRun(waiting)

	// The chattering device accumulates new intent while running; on
	// completion it is requeued behind the waiting device.
	chatty.pending.Store(true)
	chatty.finish()

	waitStarted(t, waiting)
	if got := chatty.runs.Load(); got != 1 {
		t.Error("chatty readmitted before the waiting device")
	}
	chatty.pending.Store(false)
	waiting.finish()

	// Now the requeued chatty device gets its second run.
	waitStarted(t, chatty)
	chatty.finish()

	if got := chatty.runs.Load(); got != 2 {
		t.Errorf("chatty runs = %d, want 2", got)
	}
}

func TestStopCancelsRuns(t *testing.T) {
	s := New(2)
	r := newFakeRunner("a", nil)
	s.RequestRun(r)
	waitStarted(t, r)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the in-flight run")
	}

	// Requests after Stop are no-ops.
	s.RequestRun(newFakeRunner("b", nil))
	running, queued := s.Counts()
	if running != 0 || queued != 0 {
		t.Errorf("counts after Stop = (%d, %d), want (0, 0)", running, queued)
	}
}

package scheduler

import (
	"context"
	"sync"
	"time"
)

// Default admission tuning.
const (
	// defaultParallelUpdates bounds how many lights run concurrently.
	// Deliberately smaller than the slot capacity: the headroom is what
	// lets stale idle connections survive between updates.
	defaultParallelUpdates = 3

	// stopTimeout bounds how long Stop waits for in-flight runs.
	stopTimeout = 30 * time.Second
)

// Runner is the unit of schedulable work. Implemented by *light.Light.
type Runner interface {
	// Address is the stable identity used for dedup.
	Address() string

	// Run executes one update cycle. Transient conditions are absorbed
	// inside; a returned non-ctx error is a programming error.
	Run(ctx context.Context) error

	// Pending reports whether the runner accumulated new work while its
	// run was completing, in which case it is requeued at the tail.
	Pending() bool
}

// Logger interface used by the scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Scheduler admits light update runs into bounded concurrent execution.
//
// Invariants:
//   - A given light never has two concurrent runs.
//   - At most `parallel` lights are inside a run at once.
//   - Admission order is FIFO; a light requeued by new intent goes to the
//     tail, behind lights already waiting.
type Scheduler struct {
	parallel int

	mu      sync.Mutex
	queue   []Runner
	waiting map[string]struct{} // queued, by address
	running map[string]struct{} // admitted, by address
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a scheduler; parallel <= 0 takes the default.
func New(parallel int) *Scheduler {
	if parallel <= 0 {
		parallel = defaultParallelUpdates
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		parallel: parallel,
		waiting:  make(map[string]struct{}),
		running:  make(map[string]struct{}),
		ctx:      ctx,
		cancel:   cancel,
		logger:   noopLogger{},
	}
}

// SetLogger sets an optional logger.
func (s *Scheduler) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	defer s.loggerMu.Unlock()
	s.logger = logger
}

func (s *Scheduler) log() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// RequestRun queues r for execution. Idempotent: if r is already queued
// or running this is a no-op (a running light picks new intent up inside
// its current cycle, or is requeued on completion via Pending).
func (s *Scheduler) RequestRun(r Runner) {
	id := r.Address()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if _, queued := s.waiting[id]; queued {
		s.mu.Unlock()
		s.log().Debug("run already queued", "light", id)
		return
	}
	if _, active := s.running[id]; active {
		s.mu.Unlock()
		s.log().Debug("run already in progress", "light", id)
		return
	}

	s.waiting[id] = struct{}{}
	s.queue = append(s.queue, r)
	s.admitLocked()
	s.mu.Unlock()
}

// admitLocked starts queued runners while capacity allows. Caller holds
// s.mu.
func (s *Scheduler) admitLocked() {
	for len(s.running) < s.parallel && len(s.queue) > 0 {
		r := s.queue[0]
		s.queue = s.queue[1:]
		id := r.Address()
		delete(s.waiting, id)
		s.running[id] = struct{}{}

		s.wg.Add(1)
		go s.execute(r)
	}
}

// execute runs one cycle and handles completion bookkeeping.
func (s *Scheduler) execute(r Runner) {
	defer s.wg.Done()
	id := r.Address()

	if err := r.Run(s.ctx); err != nil && s.ctx.Err() == nil {
		// Only programming errors (payload validation) surface here;
		// transient radio conditions are absorbed inside the run.
		s.log().Error("run failed", "light", id, "error", err)
	}

	s.mu.Lock()
	delete(s.running, id)

	// Intent that arrived as the run wound down would otherwise be lost:
	// RequestRun saw "running" and dropped the request. Requeue at the
	// tail so waiting lights go first.
	if !s.stopped && r.Pending() {
		if _, queued := s.waiting[id]; !queued {
			s.waiting[id] = struct{}{}
			s.queue = append(s.queue, r)
		}
	}

	s.admitLocked()
	s.mu.Unlock()
}

// Contended reports whether lights with pending work are waiting behind
// full parallelism. Idle lights poll this during keep-alive and end
// their run when it is true, freeing an admission slot for the queue.
func (s *Scheduler) Contended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running) >= s.parallel && len(s.queue) > 0
}

// Counts returns the number of running and queued lights.
func (s *Scheduler) Counts() (running, queued int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running), len(s.queue)
}

// Stop cancels in-flight runs and waits for them to finish, bounded by a
// timeout. Further RequestRun calls become no-ops.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.queue = nil
	s.waiting = make(map[string]struct{})
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopTimeout):
		s.log().Warn("timed out waiting for runs to stop")
	}
}

package scheduler

import (
	"context"
	"sync"
)

// defaultSlotCapacity matches what a stock BlueZ adapter sustains
// reliably before connection attempts start timing out.
const defaultSlotCapacity = 5

// SlotPool is the process-wide budget of simultaneous BLE connections.
//
// A slot is either active (carrying traffic) or stale (open but idle,
// first to be evicted under contention). The invariant
// |active| + |stale| <= capacity holds at all times; every
// check-and-update runs under one mutex.
//
// Eviction is cooperative: Acquire never tears down someone else's
// connection. It waits, and idle lights observe Contended() on their next
// keep-alive tick and yield. The wait is therefore bounded by the idle
// poll interval, not by a keep-alive period.
type SlotPool struct {
	capacity int

	mu     sync.Mutex
	active map[string]struct{}
	stale  map[string]struct{}
	queued map[string]struct{}

	// wait is closed and replaced whenever a slot frees up, waking all
	// blocked Acquire calls to re-check.
	wait chan struct{}
}

// NewSlotPool creates a pool with the given capacity; capacity <= 0 takes
// the default.
func NewSlotPool(capacity int) *SlotPool {
	if capacity <= 0 {
		capacity = defaultSlotCapacity
	}
	return &SlotPool{
		capacity: capacity,
		active:   make(map[string]struct{}),
		stale:    make(map[string]struct{}),
		queued:   make(map[string]struct{}),
		wait:     make(chan struct{}),
	}
}

// Acquire reserves a slot for id, blocking until one is free or ctx is
// done. Re-acquiring an already-held slot is a no-op.
func (p *SlotPool) Acquire(ctx context.Context, id string) error {
	for {
		p.mu.Lock()
		if _, held := p.active[id]; held {
			p.mu.Unlock()
			return nil
		}
		if _, held := p.stale[id]; held {
			// Promote: the light still has its connection open.
			delete(p.stale, id)
			p.active[id] = struct{}{}
			p.mu.Unlock()
			return nil
		}
		if len(p.active)+len(p.stale) < p.capacity {
			p.active[id] = struct{}{}
			delete(p.queued, id)
			p.mu.Unlock()
			return nil
		}

		// Full: register as waiting and block until something releases.
		p.queued[id] = struct{}{}
		wait := p.wait
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			p.mu.Lock()
			delete(p.queued, id)
			p.mu.Unlock()
			return ctx.Err()
		case <-wait:
		}
	}
}

// MarkActive flags id's slot as carrying live traffic.
func (p *SlotPool) MarkActive(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, held := p.stale[id]; held {
		delete(p.stale, id)
		p.active[id] = struct{}{}
	}
}

// MarkStale flags id's slot as idle and evictable.
func (p *SlotPool) MarkStale(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, held := p.active[id]; held {
		delete(p.active, id)
		p.stale[id] = struct{}{}
	}
}

// Release frees id's slot and wakes waiters.
func (p *SlotPool) Release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, wasActive := p.active[id]
	_, wasStale := p.stale[id]
	if !wasActive && !wasStale {
		return
	}
	delete(p.active, id)
	delete(p.stale, id)

	close(p.wait)
	p.wait = make(chan struct{})
}

// Contended reports whether lights are waiting on a full pool. Idle
// lights poll this to decide whether to yield their connection.
func (p *SlotPool) Contended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queued) > 0 && len(p.active)+len(p.stale) >= p.capacity
}

// Counts returns the current active/stale/queued sizes, for health
// reporting.
func (p *SlotPool) Counts() (active, stale, queued int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active), len(p.stale), len(p.queued)
}

// Capacity returns the configured slot capacity.
func (p *SlotPool) Capacity() int { return p.capacity }

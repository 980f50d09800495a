package light

import (
	"sync"
	"time"
)

// Default notifier tuning, from field experience with chattering lights:
// a quiet light notifies within a second, a light flooding updates is
// throttled down to one notification a minute.
const (
	defaultNotifyMinDelay = time.Second
	defaultNotifyMaxDelay = 60 * time.Second
	defaultNotifyPenalty  = time.Second
)

// NotifierConfig tunes the throttled notifier. Zero values take defaults.
type NotifierConfig struct {
	// MinDelay is the shortest gap between notifications.
	MinDelay time.Duration

	// MaxDelay caps the adaptive backoff, and is also the quiet gap after
	// which the successive-update counter resets.
	MaxDelay time.Duration

	// Penalty is added to the delay per successive rapid notification.
	Penalty time.Duration
}

func (c NotifierConfig) withDefaults() NotifierConfig {
	if c.MinDelay == 0 {
		c.MinDelay = defaultNotifyMinDelay
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = defaultNotifyMaxDelay
	}
	if c.Penalty == 0 {
		c.Penalty = defaultNotifyPenalty
	}
	return c
}

// Notifier coalesces bursts of change notifications with adaptive
// backoff. RequestUpdate schedules at most one pending delivery; the
// delivery waits min(maxDelay, minDelay + successive×penalty) minus the
// time already elapsed since the last delivery, then invokes the callback
// exactly once.
//
// The successive counter increments each time a delivery fires within
// MaxDelay of the previous one and resets after a quiet gap of at least
// MaxDelay, so a chattering light converges to a bounded notification
// rate while a quiet one stays prompt.
type Notifier struct {
	cfg      NotifierConfig
	callback func()

	mu         sync.Mutex
	lastUpdate time.Time
	successive int
	pending    bool

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewNotifier creates a notifier delivering through callback.
func NewNotifier(callback func(), cfg NotifierConfig) *Notifier {
	return &Notifier{
		cfg:      cfg.withDefaults(),
		callback: callback,
		done:     make(chan struct{}),
	}
}

// RequestUpdate schedules a delivery if none is pending. Never blocks.
func (n *Notifier) RequestUpdate() {
	n.mu.Lock()
	if n.pending {
		n.mu.Unlock()
		return
	}
	select {
	case <-n.done:
		n.mu.Unlock()
		return
	default:
	}
	n.pending = true
	delay := n.delayLocked(time.Now())
	n.mu.Unlock()

	n.wg.Add(1)
	go n.deliver(delay)
}

// delayLocked computes the remaining wait before the next delivery may
// fire. Caller holds n.mu.
func (n *Notifier) delayLocked(now time.Time) time.Duration {
	delay := n.cfg.MinDelay + time.Duration(n.successive)*n.cfg.Penalty
	if delay > n.cfg.MaxDelay {
		delay = n.cfg.MaxDelay
	}
	remaining := delay - now.Sub(n.lastUpdate)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (n *Notifier) deliver(delay time.Duration) {
	defer n.wg.Done()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-n.done:
			// Shutdown drops the pending notification; observers are
			// going away with it.
			n.mu.Lock()
			n.pending = false
			n.mu.Unlock()
			return
		case <-timer.C:
		}
	}

	n.mu.Lock()
	if time.Since(n.lastUpdate) >= n.cfg.MaxDelay {
		n.successive = 0
	} else {
		n.successive++
	}
	n.mu.Unlock()

	n.callback()

	n.mu.Lock()
	n.lastUpdate = time.Now()
	n.pending = false
	n.mu.Unlock()
}

// Stop prevents further deliveries and waits for an in-flight one.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() { close(n.done) })
	n.wg.Wait()
}

package light

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/azndibs/govee-ble-core/internal/govee"
)

// Reconnect jitter bounds: each attempt adds attempts × uniform(min, max)
// on top of the base backoff.
const (
	jitterMin = 100 * time.Millisecond
	jitterMax = 300 * time.Millisecond
)

// category identifies one dirty attribute to drain.
type category int

const (
	catPower category = iota
	catBrightness
	catColor
	catCount
)

// Run is the scheduler-invoked unit of work: one full cycle of the state
// machine. It loops until the light has no dirty work and has yielded or
// lost its connection, or until ctx is cancelled.
//
// Transient link errors never escape: they are retried with jittered
// backoff up to the configured ceiling, after which the light is reported
// unavailable and the cycle ends. The only error Run returns (besides
// ctx.Err) is ErrInvalidIntent, which indicates a bug, not a radio
// condition.
func (l *Light) Run(ctx context.Context) error {
	// Per-cycle counters start clean; the previous cycle's attempt count
	// stays visible in state snapshots until here.
	l.mu.Lock()
	l.reconnectAttempts = 0
	l.pingCounter = 0
	l.mu.Unlock()

	defer l.teardown()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.reapDroppedLink()

		switch {
		case l.Pending() && !l.isConnected():
			done, err := l.stepConnect(ctx)
			if err != nil || done {
				return err
			}

		case l.Pending():
			if err := l.stepSend(ctx); err != nil {
				return err
			}

		case l.isConnected():
			if yielded := l.stepKeepAlive(ctx); yielded {
				return nil
			}

		default:
			// Nothing dirty, not connected: cycle complete.
			l.setStatus(StatusDisconnected)
			return nil
		}
	}
}

// stepConnect performs one connect attempt, with backoff on failure.
// Returns done=true when the cycle should end (reconnect ceiling hit).
func (l *Light) stepConnect(ctx context.Context) (done bool, err error) {
	l.setStatus(StatusEstablishing)

	if !l.slotHeld {
		if acquireErr := l.pool.Acquire(ctx, l.address); acquireErr != nil {
			return true, ctx.Err()
		}
		l.slotHeld = true
	}
	l.pool.MarkActive(l.address)

	l.mu.Lock()
	l.lastConnectAttempt = time.Now()
	attempts := l.reconnectAttempts
	if attempts == 0 {
		l.connectStart = l.lastConnectAttempt
	}
	start := l.connectStart
	l.mu.Unlock()

	connectCtx, cancel := context.WithTimeout(ctx, l.cfg.ConnectTimeout)
	conn, connErr := l.transport.Connect(connectCtx, l.address, l.handleLinkDrop)
	cancel()

	if connErr != nil {
		attempts++
		l.mu.Lock()
		l.reconnectAttempts = attempts
		l.mu.Unlock()

		if attempts >= l.cfg.MaxReconnectAttempts {
			// Ceiling reached: abandon this cycle rather than retrying
			// forever. The next intent change starts a fresh cycle.
			l.logger.Warn("reconnect ceiling reached, abandoning cycle",
				"light", l.name,
				"attempts", attempts,
				"error", connErr,
			)
			l.setStatus(StatusUnavailable)
			if l.metrics != nil {
				l.metrics.WriteLinkCycle(l.address, attempts, time.Since(start).Seconds(), false)
			}
			return true, nil
		}

		l.logger.Debug("connect failed, backing off",
			"light", l.name,
			"attempt", attempts,
			"error", connErr,
		)
		l.setStatus(StatusFailed)
		if !l.sleep(ctx, l.backoff(attempts)) {
			return false, ctx.Err()
		}
		return false, nil
	}

	l.mu.Lock()
	l.conn = conn
	l.linkDropped = false
	l.reconnectAttempts = 0
	l.mu.Unlock()

	l.setStatus(StatusConnected)
	l.logger.Debug("connected", "light", l.name)
	if l.metrics != nil {
		l.metrics.WriteLinkCycle(l.address, attempts+1, time.Since(start).Seconds(), true)
	}
	return false, nil
}

// stepSend transmits exactly one dirty category, in priority order
// power > brightness > colour. On success the flag is cleared and the
// desired value becomes confirmed; on link failure the connection is torn
// down and the flag stays dirty for the retry.
func (l *Light) stepSend(ctx context.Context) error {
	cat, cmd, payload, ok := l.nextDirty()
	if !ok {
		return nil
	}

	// A light resuming work after idling carries live traffic again.
	l.pool.MarkActive(l.address)

	if err := l.send(ctx, cmd, payload); err != nil {
		if isValidation(err) {
			return fmt.Errorf("%w: %w", ErrInvalidIntent, err)
		}
		l.logger.Warn("send failed, forcing disconnect",
			"light", l.name,
			"command", cmd.String(),
			"error", err,
		)
		l.forceDisconnect()
		l.sleep(ctx, l.cfg.SendDelay)
		return nil
	}

	l.confirm(cat)
	l.notifier.RequestUpdate()
	l.sleep(ctx, l.cfg.SendDelay)
	return nil
}

// stepKeepAlive handles one idle tick: low-rate periodic traffic to
// detect silent disconnects, and voluntary eviction when either the slot
// pool or the scheduler's admission queue is contended. Returns true when
// the cycle should end.
func (l *Light) stepKeepAlive(ctx context.Context) bool {
	// Idle lights yield to lights with pending work. Pool contention is
	// pressure on the connection budget; scheduler contention is queued
	// lights waiting on the admission slot this run is holding.
	l.pool.MarkStale(l.address)
	if l.pool.Contended() || l.schedulerBacklogged() {
		l.logger.Debug("contended, yielding", "light", l.name)
		l.disconnect()
		l.setStatus(StatusDisconnected)
		return true
	}

	l.mu.Lock()
	l.pingCounter++
	ticks := l.pingCounter
	ping := ticks%l.cfg.PingInterval == 0
	l.mu.Unlock()

	if ticks > l.cfg.KeepAliveTicks {
		// Idle budget spent. End the cycle so the admission slot is
		// returned even with nobody waiting; the next intent change
		// reconnects.
		l.logger.Debug("idle budget spent, disconnecting", "light", l.name)
		l.disconnect()
		l.setStatus(StatusDisconnected)
		return true
	}

	if ping {
		cmd, payload := l.keepAlivePacket()
		if err := l.send(ctx, cmd, payload); err != nil {
			// A failed keep-alive is how silent disconnects surface.
			// Drop the link; the next iteration decides whether anything
			// is dirty enough to warrant reconnecting.
			l.logger.Debug("keep-alive failed, dropping link",
				"light", l.name,
				"error", err,
			)
			l.forceDisconnect()
			return false
		}
	}

	l.sleepInterruptible(ctx, l.cfg.IdleDelay)
	// ctx cancellation is picked up at the top of the run loop.
	return false
}

// schedulerBacklogged reports whether lights with dirty work are queued
// behind full parallelism; this run's admission slot is what they wait
// for. Tolerates an unwired requester.
func (l *Light) schedulerBacklogged() bool {
	l.requesterMu.RLock()
	requester := l.requester
	l.requesterMu.RUnlock()
	return requester != nil && requester.Contended()
}

// nextDirty picks the highest-priority dirty category and builds its
// command + payload under the lock.
func (l *Light) nextDirty() (category, govee.Command, []byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.dirtyPower:
		return catPower, govee.CmdPower, govee.PowerPayload(l.wantPower), true
	case l.dirtyBrightness:
		return catBrightness, govee.CmdBrightness, govee.BrightnessPayload(l.wantBrightness, l.spec), true
	case l.dirtyColor:
		payload := govee.ColorPayload(l.spec, l.wantControl, l.wantRGB[0], l.wantRGB[1], l.wantRGB[2], l.wantKelvin)
		return catColor, govee.CmdColor, payload, true
	default:
		return 0, 0, nil, false
	}
}

// keepAlivePacket builds a no-op confirmation packet, rotating through
// the three categories so all characteristic paths stay exercised.
func (l *Light) keepAlivePacket() (govee.Command, []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.keepAliveRR = (l.keepAliveRR + 1) % int(catCount)
	switch category(l.keepAliveRR) {
	case catBrightness:
		return govee.CmdBrightness, govee.BrightnessPayload(l.brightness, l.spec)
	case catColor:
		return govee.CmdColor, govee.ColorPayload(l.spec, l.controlMode, l.rgb[0], l.rgb[1], l.rgb[2], l.kelvin)
	default:
		return govee.CmdPower, govee.PowerPayload(l.power)
	}
}

// send encodes and writes one frame on the owned connection.
func (l *Light) send(ctx context.Context, cmd govee.Command, payload []byte) error {
	frame, err := govee.Encode(cmd, payload)
	if err != nil {
		return err
	}

	l.mu.Lock()
	conn := l.conn
	l.lastPacketAttempt = time.Now()
	l.mu.Unlock()

	if conn == nil {
		return errConnGone
	}

	writeCtx, cancel := context.WithTimeout(ctx, l.cfg.WriteTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, frame); err != nil {
		return err
	}

	l.logger.Debug("frame sent",
		"light", l.name,
		"command", cmd.String(),
		"frame", fmt.Sprintf("% x", frame),
	)
	if l.metrics != nil {
		l.metrics.WritePacket(l.address, cmd.String())
	}
	return nil
}

// errConnGone marks a send attempted after the link dropped. Transient.
var errConnGone = errors.New("light: connection gone")

// confirm clears one dirty flag and copies the desired value into
// confirmed state.
func (l *Light) confirm(cat category) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch cat {
	case catPower:
		l.power = l.wantPower
		l.dirtyPower = false
	case catBrightness:
		l.brightness = l.wantBrightness
		l.dirtyBrightness = false
	case catColor:
		l.rgb = l.wantRGB
		l.kelvin = l.wantKelvin
		l.controlMode = l.wantControl
		l.dirtyColor = false
	}
}

// isValidation reports whether an error is a payload construction error,
// which must surface immediately instead of being retried.
func isValidation(err error) bool {
	return errors.Is(err, govee.ErrPayloadTooLong)
}

// backoff computes the jittered reconnect delay for the given attempt
// count: base + attempts × uniform(jitterMin, jitterMax).
func (l *Light) backoff(attempts int) time.Duration {
	jitter := jitterMin + time.Duration(rand.Int63n(int64(jitterMax-jitterMin)))
	return l.cfg.BackoffBase + time.Duration(attempts)*jitter
}

// handleLinkDrop is the transport's disconnect callback. It runs on an
// arbitrary goroutine; the machine notices the flag on its next iteration.
func (l *Light) handleLinkDrop() {
	l.mu.Lock()
	l.linkDropped = true
	l.mu.Unlock()

	// Wake a sleeping keep-alive so the drop is handled promptly.
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// reapDroppedLink discards a connection the transport reported dead.
func (l *Light) reapDroppedLink() {
	l.mu.Lock()
	dropped := l.linkDropped
	l.mu.Unlock()

	if dropped {
		l.forceDisconnect()
		l.setStatus(StatusDisconnected)
	}
}

func (l *Light) isConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// disconnect closes the connection deliberately and releases the slot.
func (l *Light) disconnect() {
	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	l.linkDropped = false
	l.mu.Unlock()

	if conn != nil {
		if err := conn.Disconnect(); err != nil {
			l.logger.Debug("disconnect error", "light", l.name, "error", err)
		}
	}
	l.releaseSlot()
}

// forceDisconnect tears down a failed link. Same mechanics as disconnect;
// kept separate for log clarity at call sites.
func (l *Light) forceDisconnect() {
	l.disconnect()
}

func (l *Light) releaseSlot() {
	if l.slotHeld {
		l.pool.Release(l.address)
		l.slotHeld = false
	}
}

// teardown runs when a cycle ends for any reason: the connection and slot
// must never outlive the run that owns them. A keep-alive yield has
// already released both, making this a no-op.
func (l *Light) teardown() {
	l.disconnect()
}

// sleep waits for d or ctx, whichever first. Returns false on ctx done.
func (l *Light) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// sleepInterruptible additionally wakes early when new intent arrives or
// the link drops. Returns false on ctx done.
func (l *Light) sleepInterruptible(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-l.wake:
		return true
	case <-timer.C:
		return true
	}
}

package ble

import (
	"context"
	"sync/atomic"
	"time"
)

// ControlCharacteristicUUID is the GATT characteristic Govee lights accept
// control frames on. Identical across every known model.
const ControlCharacteristicUUID = "00010203-0405-0607-0809-0a0b0c0d2b11"

// Transport opens connections to lights by address.
type Transport interface {
	// Connect establishes a connection to the light at addr and resolves
	// the control characteristic. onDisconnect is invoked at most once,
	// from an arbitrary goroutine, if the link drops without Disconnect
	// being called.
	Connect(ctx context.Context, addr string, onDisconnect func()) (Connection, error)
}

// Connection is an open link to one light. It is exclusively owned by that
// light's state machine and never shared.
type Connection interface {
	// Write sends one 20-byte frame to the control characteristic.
	Write(ctx context.Context, frame []byte) error

	// Disconnect closes the link. Safe to call more than once.
	Disconnect() error
}

// Stats holds transport-level counters, updated atomically.
type Stats struct {
	FramesTx     uint64
	ConnectsOK   uint64
	ConnectsFail uint64
	WriteErrors  uint64
	LastActivity time.Time
}

// statCounters is the embeddable atomic backing for Stats. Transports
// update it on the hot path without locking.
type statCounters struct {
	framesTx     atomic.Uint64
	connectsOK   atomic.Uint64
	connectsFail atomic.Uint64
	writeErrors  atomic.Uint64
	lastActivity atomic.Int64 // Unix nanos
}

func (s *statCounters) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

func (s *statCounters) snapshot() Stats {
	st := Stats{
		FramesTx:     s.framesTx.Load(),
		ConnectsOK:   s.connectsOK.Load(),
		ConnectsFail: s.connectsFail.Load(),
		WriteErrors:  s.writeErrors.Load(),
	}
	if ns := s.lastActivity.Load(); ns > 0 {
		st.LastActivity = time.Unix(0, ns)
	}
	return st
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// noopLogger is the default logger.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

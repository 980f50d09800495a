package light

import (
	"context"
	"sync"
	"time"

	"github.com/azndibs/govee-ble-core/internal/ble"
	"github.com/azndibs/govee-ble-core/internal/govee"
)

// Status is the observable connection status of a light.
type Status string

// Connection status values, published with every state update.
const (
	StatusDisconnected Status = "disconnected"
	StatusEstablishing Status = "establishing"
	StatusConnected    Status = "connected"
	StatusFailed       Status = "failed_to_connect"

	// StatusUnavailable means the reconnect ceiling was exceeded. The
	// light returns to idle and is retried on the next intent change.
	StatusUnavailable Status = "unavailable"
)

// Intent carries desired attribute changes. Nil fields are left untouched,
// so a single call may dirty any subset of power, brightness and colour.
type Intent struct {
	// Power switches the light on or off.
	Power *bool

	// Brightness is the caller-facing 0-255 scale.
	Brightness *uint8

	// BrightnessPct is a 0-100 convenience alternative to Brightness.
	// Ignored when Brightness is also set.
	BrightnessPct *uint8

	// RGB sets an explicit colour and switches the light to RGB control.
	RGB *[3]uint8

	// Kelvin sets a colour temperature and switches the light to
	// temperature control. Values outside the model's native range are
	// approximated as RGB per the model catalog policy.
	Kelvin *uint32
}

// State is a point-in-time snapshot of a light's confirmed state,
// suitable for publishing and journaling.
type State struct {
	Power              bool      `json:"power"`
	Brightness         uint8     `json:"brightness"`
	RGB                [3]uint8  `json:"rgb"`
	Kelvin             uint32    `json:"kelvin"`
	ControlMode        string    `json:"control_mode"`
	Status             Status    `json:"status"`
	SendAttempts       int       `json:"send_attempts"`
	LastConnectAttempt time.Time `json:"last_connect_attempt,omitzero"`
	LastPacketAttempt  time.Time `json:"last_packet_attempt,omitzero"`
}

// RunRequester asks the scheduler to run a light. Implemented by the
// scheduler package; injected so this package stays dependency-free of it.
type RunRequester interface {
	RequestRun(l *Light)

	// Contended reports whether lights with pending work are queued
	// behind full admission. An idle light polls this between keep-alive
	// ticks and ends its run when true, handing its slot to the queue.
	Contended() bool
}

// SlotPool is the shared connection budget. The state machine acquires a
// slot before connecting, downgrades it to stale while idling, and
// releases it on disconnect. Implemented by the scheduler package.
type SlotPool interface {
	// Acquire reserves a slot, waiting until one is free or ctx is done.
	Acquire(ctx context.Context, id string) error

	// MarkActive flags the slot as carrying live traffic.
	MarkActive(id string)

	// MarkStale flags the slot as idle and evictable.
	MarkStale(id string)

	// Release frees the slot.
	Release(id string)

	// Contended reports whether devices are waiting on a full pool.
	Contended() bool
}

// StateRecorder journals confirmed state changes. Optional; implemented by
// SQLiteHistory.
type StateRecorder interface {
	RecordStateChange(ctx context.Context, address string, state State, source string) error
}

// Metrics receives link and packet telemetry. Optional; implemented by
// the InfluxDB client. Calls must not block; the InfluxDB client batches
// asynchronously.
type Metrics interface {
	// WriteLinkCycle records the outcome of one connect sequence: total
	// attempts, wall time, and whether a link came up.
	WriteLinkCycle(lightID string, attempts int, seconds float64, success bool)

	// WritePacket records one successfully written frame.
	WritePacket(lightID string, command string)
}

// Logger interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config tunes the state machine. Zero values take the defaults below.
type Config struct {
	// MaxReconnectAttempts is the reconnect ceiling per cycle before the
	// light is reported unavailable. Default 5.
	MaxReconnectAttempts int

	// BackoffBase is the base reconnect delay; each attempt adds
	// attempts × uniform(100ms, 300ms) of jitter. Default 700ms.
	BackoffBase time.Duration

	// SendDelay paces iterations while commands are draining. Default 50ms.
	SendDelay time.Duration

	// IdleDelay paces keep-alive iterations. Default 1s.
	IdleDelay time.Duration

	// PingInterval sends one keep-alive confirmation packet every Nth
	// idle tick. Default 5.
	PingInterval int

	// KeepAliveTicks caps how many idle ticks a run spends keeping the
	// connection warm before it disconnects and returns. Bounding the
	// cycle guarantees the admission slot is eventually freed even
	// without contention. Default 60.
	KeepAliveTicks int

	// ConnectTimeout bounds a single connect attempt. Default 10s.
	ConnectTimeout time.Duration

	// WriteTimeout bounds a single frame write. Default 5s.
	WriteTimeout time.Duration
}

// Default machine tuning.
const (
	defaultMaxReconnectAttempts = 5
	defaultBackoffBase          = 700 * time.Millisecond
	defaultSendDelay            = 50 * time.Millisecond
	defaultIdleDelay            = time.Second
	defaultPingInterval         = 5
	defaultKeepAliveTicks       = 60
	defaultConnectTimeout       = 10 * time.Second
	defaultWriteTimeout         = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.SendDelay == 0 {
		c.SendDelay = defaultSendDelay
	}
	if c.IdleDelay == 0 {
		c.IdleDelay = defaultIdleDelay
	}
	if c.PingInterval == 0 {
		c.PingInterval = defaultPingInterval
	}
	if c.KeepAliveTicks == 0 {
		c.KeepAliveTicks = defaultKeepAliveTicks
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	return c
}

// Options wires a Light to its collaborators.
type Options struct {
	// Address is the light's BLE MAC address. Immutable identity.
	Address string

	// Name is the human-readable name. Defaults to "<model> <last 4 of
	// address>" like the original firmware apps.
	Name string

	// Model is the catalog key (e.g. "H6008"). Unknown models degrade to
	// generic default behaviour.
	Model string

	// Transport opens BLE connections.
	Transport ble.Transport

	// Pool is the shared connection slot budget.
	Pool SlotPool

	// Requester schedules runs. May be set later via SetRequester (the
	// scheduler and lights are constructed in either order).
	Requester RunRequester

	// Recorder journals state changes. Optional.
	Recorder StateRecorder

	// Metrics receives link and packet telemetry. Optional.
	Metrics Metrics

	// OnState is invoked (throttled) with a state snapshot whenever the
	// confirmed state or connection status changes. Optional.
	OnState func(State)

	// Notifier tunes the throttled state notifier.
	Notifier NotifierConfig

	// Machine tunes the state machine.
	Machine Config

	// Logger is optional.
	Logger Logger
}

// Light is the per-fixture state machine. One instance per physical light.
type Light struct {
	address string
	name    string
	model   string
	spec    govee.ModelSpec

	transport ble.Transport
	pool      SlotPool
	recorder  StateRecorder
	metrics   Metrics
	notifier  *Notifier
	onState   func(State)
	cfg       Config
	logger    Logger

	requester   RunRequester
	requesterMu sync.RWMutex

	mu sync.Mutex // guards everything below

	// Desired intent.
	wantPower      bool
	wantBrightness uint8
	wantRGB        [3]uint8
	wantKelvin     uint32
	wantControl    govee.ControlMode

	// Dirty flags: true exactly when the desired value has not been
	// confirmed sent since it last changed.
	dirtyPower      bool
	dirtyBrightness bool
	dirtyColor      bool

	// Confirmed state, updated only after a successful send.
	power       bool
	brightness  uint8
	rgb         [3]uint8
	kelvin      uint32
	controlMode govee.ControlMode

	status Status

	// Liveness counters.
	reconnectAttempts  int
	pingCounter        int
	keepAliveRR        int // round-robin index for keep-alive packets
	lastConnectAttempt time.Time
	lastPacketAttempt  time.Time
	connectStart       time.Time // first attempt of the current connect sequence

	// Connection handle, owned exclusively by Run.
	conn        ble.Connection
	linkDropped bool
	slotHeld    bool

	// wake interrupts keep-alive sleeps when new intent arrives.
	wake chan struct{}
}

// New creates a light from options. It does not touch the radio; nothing
// happens until the first SetIntent.
func New(opts Options) *Light {
	name := opts.Name
	if name == "" {
		name = fallbackName(opts.Model, opts.Address)
	}

	l := &Light{
		address:   opts.Address,
		name:      name,
		model:     opts.Model,
		spec:      govee.LookupModel(opts.Model),
		transport: opts.Transport,
		pool:      opts.Pool,
		recorder:  opts.Recorder,
		metrics:   opts.Metrics,
		onState:   opts.OnState,
		cfg:       opts.Machine.withDefaults(),
		logger:    opts.Logger,
		requester: opts.Requester,
		status:    StatusDisconnected,
		wake:      make(chan struct{}, 1),
	}
	if l.logger == nil {
		l.logger = noopLogger{}
	}
	l.notifier = NewNotifier(l.publishState, opts.Notifier)
	return l
}

// fallbackName builds "<model> <last 4 of address>" when no name is
// configured, e.g. "H6008 2B11".
func fallbackName(model, address string) string {
	sanitized := ""
	for _, r := range address {
		if r != ':' {
			sanitized += string(r)
		}
	}
	if len(sanitized) > 4 {
		sanitized = sanitized[len(sanitized)-4:]
	}
	if model == "" {
		return sanitized
	}
	return model + " " + sanitized
}

// Address returns the light's immutable BLE address.
func (l *Light) Address() string { return l.address }

// Name returns the human-readable name.
func (l *Light) Name() string { return l.name }

// Model returns the catalog key.
func (l *Light) Model() string { return l.model }

// SetRequester wires the scheduler after construction.
func (l *Light) SetRequester(r RunRequester) {
	l.requesterMu.Lock()
	defer l.requesterMu.Unlock()
	l.requester = r
}

// SetIntent merges the given fields into desired state, marks the
// corresponding dirty flags, and requests scheduling. It never blocks and
// never returns an error; validation problems surface from Run.
//
// Calling twice with identical values is idempotent: a value equal to the
// confirmed state (and not already dirty) marks nothing, and a value
// already pending stays pending without generating a second packet.
func (l *Light) SetIntent(intent Intent) {
	l.mu.Lock()

	if intent.Power != nil {
		l.wantPower = *intent.Power
		// Dirty exactly when desired differs from confirmed. This also
		// clears a pending flag whose intent returned to the confirmed
		// value before it was sent.
		l.dirtyPower = l.wantPower != l.power
	}

	if intent.Brightness != nil || intent.BrightnessPct != nil {
		want := l.wantBrightness
		if intent.Brightness != nil {
			want = *intent.Brightness
		} else {
			pct := *intent.BrightnessPct
			if pct > 100 {
				pct = 100
			}
			want = uint8(int(pct) * 255 / 100)
		}
		l.wantBrightness = want
		l.dirtyBrightness = want != l.brightness
	}

	if intent.RGB != nil {
		l.wantRGB = *intent.RGB
		l.wantControl = govee.ControlColor
		l.dirtyColor = l.rgb != l.wantRGB || l.controlMode != govee.ControlColor
	} else if intent.Kelvin != nil {
		l.wantKelvin = *intent.Kelvin
		l.wantControl = govee.ControlTemperature
		l.dirtyColor = l.kelvin != l.wantKelvin || l.controlMode != govee.ControlTemperature
	}

	dirty := l.dirtyPower || l.dirtyBrightness || l.dirtyColor
	l.mu.Unlock()

	if !dirty {
		return
	}

	// Interrupt a keep-alive sleep so new intent is picked up promptly.
	select {
	case l.wake <- struct{}{}:
	default:
	}

	l.requesterMu.RLock()
	requester := l.requester
	l.requesterMu.RUnlock()
	if requester != nil {
		requester.RequestRun(l)
	}
}

// Pending reports whether any dirty flag is set. The scheduler uses it to
// requeue a light that received intent while its run was finishing.
func (l *Light) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirtyPower || l.dirtyBrightness || l.dirtyColor
}

// Snapshot returns the current confirmed state and status.
func (l *Light) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Light) snapshotLocked() State {
	return State{
		Power:              l.power,
		Brightness:         l.brightness,
		RGB:                l.rgb,
		Kelvin:             l.kelvin,
		ControlMode:        l.controlMode.String(),
		Status:             l.status,
		SendAttempts:       l.reconnectAttempts,
		LastConnectAttempt: l.lastConnectAttempt,
		LastPacketAttempt:  l.lastPacketAttempt,
	}
}

// Status returns the current connection status.
func (l *Light) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// setStatus updates the status and notifies observers on change.
func (l *Light) setStatus(s Status) {
	l.mu.Lock()
	changed := l.status != s
	l.status = s
	l.mu.Unlock()

	if changed {
		l.notifier.RequestUpdate()
	}
}

// publishState is the notifier callback: deliver a snapshot to the
// observer and journal it.
func (l *Light) publishState() {
	state := l.Snapshot()
	if l.onState != nil {
		l.onState(state)
	}
	if l.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := l.recorder.RecordStateChange(ctx, l.address, state, "controller"); err != nil {
			l.logger.Warn("state history write failed", "light", l.name, "error", err)
		}
	}
}

// Close stops the notifier. The scheduler is responsible for cancelling
// any in-flight run before a light is discarded.
func (l *Light) Close() {
	l.notifier.Stop()
}

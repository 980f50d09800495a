package light

import (
	"context"
	"sync"
	"time"

	"github.com/azndibs/govee-ble-core/internal/ble"
	"github.com/azndibs/govee-ble-core/internal/govee"
)

// fakeTransport implements ble.Transport in memory. Frames written to any
// connection are recorded in order; connect behaviour is scriptable.
type fakeTransport struct {
	mu sync.Mutex

	// connectErrs is consumed one per Connect call; nil entries succeed.
	// Once exhausted, connects succeed.
	connectErrs []error

	// writeErrs is consumed one per Write call across all connections.
	writeErrs []error

	connects int
	frames   [][]byte

	// lastDrop holds the disconnect callback of the latest connection.
	lastDrop func()
}

func (t *fakeTransport) Connect(_ context.Context, _ string, onDisconnect func()) (ble.Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.connects++
	if len(t.connectErrs) > 0 {
		err := t.connectErrs[0]
		t.connectErrs = t.connectErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	t.lastDrop = onDisconnect
	return &fakeConnection{transport: t}, nil
}

func (t *fakeTransport) sentFrames() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	frames := make([][]byte, len(t.frames))
	copy(frames, t.frames)
	return frames
}

func (t *fakeTransport) sentCommands() []govee.Command {
	var cmds []govee.Command
	for _, f := range t.sentFrames() {
		cmds = append(cmds, govee.Command(f[1]))
	}
	return cmds
}

func (t *fakeTransport) connectCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connects
}

type fakeConnection struct {
	transport    *fakeTransport
	disconnected bool
}

func (c *fakeConnection) Write(_ context.Context, frame []byte) error {
	t := c.transport
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.writeErrs) > 0 {
		err := t.writeErrs[0]
		t.writeErrs = t.writeErrs[1:]
		if err != nil {
			return err
		}
	}

	cp := make([]byte, len(frame))
	copy(cp, frame)
	t.frames = append(t.frames, cp)
	return nil
}

func (c *fakeConnection) Disconnect() error {
	c.disconnected = true
	return nil
}

// fakePool implements SlotPool without capacity limits; contention is
// toggled by tests to trigger keep-alive yield.
type fakePool struct {
	mu        sync.Mutex
	contended bool
	acquired  map[string]int
	released  map[string]int
	marks     []string // "active"/"stale" transitions in order
}

func newFakePool() *fakePool {
	return &fakePool{
		acquired: make(map[string]int),
		released: make(map[string]int),
	}
}

func (p *fakePool) Acquire(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquired[id]++
	return nil
}

func (p *fakePool) MarkActive(string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marks = append(p.marks, "active")
}

func (p *fakePool) MarkStale(string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marks = append(p.marks, "stale")
}

func (p *fakePool) markSequence() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.marks))
	copy(out, p.marks)
	return out
}

func (p *fakePool) Release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released[id]++
}

func (p *fakePool) Contended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.contended
}

func (p *fakePool) setContended(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.contended = v
}

// fakeRequester counts scheduling requests; contention is toggled by
// tests to trigger the keep-alive admission yield.
type fakeRequester struct {
	mu        sync.Mutex
	requests  int
	contended bool
}

func (r *fakeRequester) RequestRun(*Light) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests++
}

func (r *fakeRequester) Contended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contended
}

func (r *fakeRequester) setContended(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contended = v
}

func (r *fakeRequester) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests
}

// recordingMetrics implements Metrics in memory.
type recordingMetrics struct {
	mu      sync.Mutex
	cycles  []linkCycle
	packets []string
}

type linkCycle struct {
	attempts int
	success  bool
}

func (m *recordingMetrics) WriteLinkCycle(_ string, attempts int, _ float64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles = append(m.cycles, linkCycle{attempts: attempts, success: success})
}

func (m *recordingMetrics) WritePacket(_ string, command string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packets = append(m.packets, command)
}

func (m *recordingMetrics) linkCycles() []linkCycle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]linkCycle, len(m.cycles))
	copy(out, m.cycles)
	return out
}

func (m *recordingMetrics) packetCommands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.packets))
	copy(out, m.packets)
	return out
}

// fastMachine is machine tuning that keeps tests quick.
func fastMachine() Config {
	return Config{
		MaxReconnectAttempts: 3,
		BackoffBase:          time.Millisecond,
		SendDelay:            time.Millisecond,
		IdleDelay:            5 * time.Millisecond,
		PingInterval:         1,
		KeepAliveTicks:       1000,
		ConnectTimeout:       time.Second,
		WriteTimeout:         time.Second,
	}
}

func boolPtr(v bool) *bool     { return &v }
func u8Ptr(v uint8) *uint8     { return &v }
func u32Ptr(v uint32) *uint32  { return &v }
func rgbPtr(r, g, b uint8) *[3]uint8 {
	v := [3]uint8{r, g, b}
	return &v
}

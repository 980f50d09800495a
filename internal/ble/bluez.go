package ble

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"tinygo.org/x/bluetooth"
)

// BlueZTransport implements Transport over tinygo.org/x/bluetooth, which
// talks to BlueZ via D-Bus on Linux.
//
// One BlueZTransport wraps the single system adapter and hands out
// per-light Connections. Disconnect callbacks are dispatched from the
// adapter-wide connect handler, keyed by device address.
type BlueZTransport struct {
	adapter *bluetooth.Adapter

	// onDrop maps device address (uppercase MAC) to the registered
	// disconnect callback for the currently open connection.
	onDrop   map[string]func()
	onDropMu sync.Mutex

	logger   Logger
	loggerMu sync.RWMutex

	statCounters
}

// NewBlueZTransport enables the default Bluetooth adapter and returns a
// transport ready to open connections.
func NewBlueZTransport() (*BlueZTransport, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAdapterUnavailable, err)
	}

	t := &BlueZTransport{
		adapter: adapter,
		onDrop:  make(map[string]func()),
		logger:  noopLogger{},
	}

	// BlueZ reports link drops through the adapter-wide handler, not per
	// device. Fan out to the callback registered for that address.
	adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		addr := strings.ToUpper(device.Address.String())

		t.onDropMu.Lock()
		cb := t.onDrop[addr]
		delete(t.onDrop, addr)
		t.onDropMu.Unlock()

		if cb != nil {
			t.log().Debug("link dropped", "address", addr)
			cb()
		}
	})

	return t, nil
}

// SetLogger sets an optional logger.
func (t *BlueZTransport) SetLogger(logger Logger) {
	t.loggerMu.Lock()
	defer t.loggerMu.Unlock()
	t.logger = logger
}

func (t *BlueZTransport) log() Logger {
	t.loggerMu.RLock()
	defer t.loggerMu.RUnlock()
	return t.logger
}

// Stats returns transport counters.
func (t *BlueZTransport) Stats() Stats {
	return t.snapshot()
}

// Connect establishes a connection to the light at addr and locates the
// control characteristic. The returned Connection is exclusively owned by
// the caller.
func (t *BlueZTransport) Connect(ctx context.Context, addr string, onDisconnect func()) (Connection, error) {
	mac, err := bluetooth.ParseMAC(strings.ToUpper(addr))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, addr, err)
	}
	address := bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	device, err := t.adapter.Connect(address, bluetooth.ConnectionParams{})
	if err != nil {
		t.connectsFail.Add(1)
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, addr, err)
	}

	char, err := t.findControlCharacteristic(device)
	if err != nil {
		t.connectsFail.Add(1)
		_ = device.Disconnect()
		return nil, err
	}

	key := strings.ToUpper(address.String())
	if onDisconnect != nil {
		t.onDropMu.Lock()
		t.onDrop[key] = onDisconnect
		t.onDropMu.Unlock()
	}

	t.connectsOK.Add(1)
	t.touch()
	t.log().Debug("connected", "address", addr)

	return &bluezConnection{
		transport: t,
		device:    device,
		char:      char,
		key:       key,
	}, nil
}

// findControlCharacteristic walks the device's GATT tree looking for the
// Govee control characteristic. Services are not filtered up front: some
// firmwares advertise the characteristic under a vendor service UUID that
// varies by model generation.
func (t *BlueZTransport) findControlCharacteristic(device bluetooth.Device) (bluetooth.DeviceCharacteristic, error) {
	var zero bluetooth.DeviceCharacteristic

	controlUUID, err := bluetooth.ParseUUID(ControlCharacteristicUUID)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrCharacteristicNotFound, err)
	}

	services, err := device.DiscoverServices(nil)
	if err != nil {
		return zero, fmt.Errorf("%w: service discovery: %w", ErrCharacteristicNotFound, err)
	}

	for _, service := range services {
		chars, err := service.DiscoverCharacteristics([]bluetooth.UUID{controlUUID})
		if err != nil {
			continue
		}
		if len(chars) > 0 {
			return chars[0], nil
		}
	}

	return zero, fmt.Errorf("%w: %s", ErrCharacteristicNotFound, ControlCharacteristicUUID)
}

// bluezConnection is one open link. Owned by a single state machine; no
// internal locking beyond the close flag.
type bluezConnection struct {
	transport *BlueZTransport
	device    bluetooth.Device
	char      bluetooth.DeviceCharacteristic
	key       string

	closed   bool
	closedMu sync.Mutex
}

// Write sends one frame via write-without-response, matching the original
// protocol (Govee lights do not acknowledge control writes).
func (c *bluezConnection) Write(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.closedMu.Lock()
	closed := c.closed
	c.closedMu.Unlock()
	if closed {
		return ErrDisconnected
	}

	if _, err := c.char.WriteWithoutResponse(frame); err != nil {
		c.transport.writeErrors.Add(1)
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	c.transport.framesTx.Add(1)
	c.transport.touch()
	return nil
}

// Disconnect closes the link and unregisters the drop callback so the
// deliberate close is not reported as a drop.
func (c *bluezConnection) Disconnect() error {
	c.closedMu.Lock()
	if c.closed {
		c.closedMu.Unlock()
		return nil
	}
	c.closed = true
	c.closedMu.Unlock()

	c.transport.onDropMu.Lock()
	delete(c.transport.onDrop, c.key)
	c.transport.onDropMu.Unlock()

	if err := c.device.Disconnect(); err != nil {
		return fmt.Errorf("%w: %w", ErrDisconnected, err)
	}
	return nil
}

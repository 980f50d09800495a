package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/azndibs/govee-ble-core/internal/infrastructure/mqtt"
	"github.com/azndibs/govee-ble-core/internal/light"
)

// MQTTClient is the broker surface the bridge needs. Implemented by
// *mqtt.Client.
type MQTTClient interface {
	// Publish sends a message to a topic with the specified QoS and
	// retention.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic filter.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected reports whether the broker session is up.
	IsConnected() bool
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

// Options configures a Bridge.
type Options struct {
	// Client is the MQTT connection. Required.
	Client MQTTClient

	// QoS for inbound subscriptions and outbound state. Default 1.
	QoS byte

	// Logger is optional.
	Logger Logger
}

// Bridge routes MQTT commands to lights and light state back to MQTT.
type Bridge struct {
	client MQTTClient
	topics mqtt.Topics
	qos    byte
	logger Logger

	mu       sync.RWMutex
	lights   map[string]*light.Light
	lastAvty map[string]string // last published availability per light id

	stopOnce sync.Once
}

// New creates a Bridge. Register lights before calling Start.
func New(opts Options) (*Bridge, error) {
	if opts.Client == nil {
		return nil, ErrNoClient
	}
	qos := opts.QoS
	if qos == 0 {
		qos = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{
		client:   opts.Client,
		qos:      qos,
		logger:   logger,
		lights:   make(map[string]*light.Light),
		lastAvty: make(map[string]string),
	}, nil
}

// Register adds a light under its effective id. The id becomes the topic
// segment for the light's set/state/availability topics.
func (b *Bridge) Register(id string, l *light.Light) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.lights[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateLight, id)
	}
	b.lights[id] = l
	return nil
}

// StateHandler returns a callback suitable for light Options.OnState,
// bound to the given id. Publish failures are logged, not surfaced; the
// state machine must never block on the broker.
func (b *Bridge) StateHandler(id string) func(light.State) {
	return func(st light.State) {
		if err := b.PublishState(id, st); err != nil {
			b.logger.Warn("state publish failed", "light_id", id, "error", err)
		}
	}
}

// Start subscribes to the per-light command topics. Call after all lights
// are registered.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.client.Subscribe(b.topics.AllLightSets(), b.qos, b.handleSet); err != nil {
		return fmt.Errorf("bridge: subscribe failed: %w", err)
	}

	b.mu.RLock()
	count := len(b.lights)
	b.mu.RUnlock()
	b.logger.Info("bridge started", "lights", count, "filter", b.topics.AllLightSets())
	return nil
}

// Stop marks every registered light offline. Best-effort; called during
// graceful shutdown after the lights are closed.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for id := range b.lights {
			topic := b.topics.LightAvailability(id)
			if err := b.client.Publish(topic, []byte(AvailabilityOffline), b.qos, true); err != nil {
				b.logger.Warn("availability publish failed", "light_id", id, "error", err)
			}
			b.lastAvty[id] = AvailabilityOffline
		}
	})
}

// StatusCounts reports per-status light totals for health reporting.
func (b *Bridge) StatusCounts() (total, connected, unavailable int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, l := range b.lights {
		total++
		switch l.Status() {
		case light.StatusConnected:
			connected++
		case light.StatusUnavailable:
			unavailable++
		}
	}
	return total, connected, unavailable
}

// PublishState publishes a retained state snapshot for a light, plus an
// availability message when the derived availability changed.
func (b *Bridge) PublishState(id string, st light.State) error {
	b.mu.RLock()
	l, ok := b.lights[id]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLight, id)
	}

	msg := NewStateMessage(id, l, st)
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("bridge: state marshal failed: %w", err)
	}
	if err := b.client.Publish(b.topics.LightState(id), payload, b.qos, true); err != nil {
		return err
	}

	avty := AvailabilityFor(st.Status)
	b.mu.Lock()
	changed := b.lastAvty[id] != avty
	if changed {
		b.lastAvty[id] = avty
	}
	b.mu.Unlock()
	if changed {
		if err := b.client.Publish(b.topics.LightAvailability(id), []byte(avty), b.qos, true); err != nil {
			return err
		}
	}
	return nil
}

// handleSet routes an inbound command payload to its light. Errors are
// returned to the MQTT layer, which logs them.
func (b *Bridge) handleSet(topic string, payload []byte) error {
	id, err := lightIDFromTopic(topic)
	if err != nil {
		return err
	}

	b.mu.RLock()
	l, ok := b.lights[id]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLight, id)
	}

	intent, err := ParseIntent(payload)
	if err != nil {
		return fmt.Errorf("light %s: %w", id, err)
	}

	b.logger.Debug("intent received", "light_id", id, "payload", string(payload))
	l.SetIntent(intent)
	return nil
}

// lightIDFromTopic extracts the id segment from govee/light/{id}/set.
func lightIDFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0]+"/"+parts[1] != mqtt.TopicPrefixLight ||
		parts[3] != "set" || parts[2] == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	return parts[2], nil
}

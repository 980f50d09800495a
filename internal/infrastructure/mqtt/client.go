package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/azndibs/govee-ble-core/internal/infrastructure/config"
)

const (
	// connectTimeout bounds the initial broker handshake.
	connectTimeout = 10 * time.Second

	// tokenTimeout bounds publish, subscribe and unsubscribe acknowledgements.
	tokenTimeout = 5 * time.Second

	// disconnectQuiesceMs is how long Disconnect waits for in-flight work.
	disconnectQuiesceMs = 1000

	keepAlive = 60 * time.Second

	maxQoS = 2
)

// Client is the broker connection shared by the whole controller.
// It wraps paho.mqtt.golang and adds subscription tracking so that
// handlers survive a broker reconnect, plus panic recovery around
// inbound message callbacks.
//
// All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	// mu guards connected, the connection callbacks and the logger.
	mu           sync.RWMutex
	connected    bool
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger

	// subscriptions is replayed against the broker after every reconnect.
	subMu         sync.RWMutex
	subscriptions map[string]subscription
}

// Logger is the minimal logging surface the client needs.
// *logging.Logger and *slog.Logger both satisfy it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler receives inbound messages. Paho invokes handlers on its
// own goroutines; a returned error is logged, it does not nack the message.
type MessageHandler func(topic string, payload []byte) error

// systemStatus is the payload published (and willed) on govee/system/status.
type systemStatus struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func statusPayload(clientID, status, reason string) []byte {
	b, _ := json.Marshal(systemStatus{
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return b
}

// Connect dials the broker described by cfg and returns a ready client.
//
// The connection carries a retained Last Will on govee/system/status so
// observers can tell a crashed controller from a gracefully stopped one,
// and reconnects automatically with backoff between cfg.Reconnect's
// initial and max delays. Tracked subscriptions are replayed after each
// reconnect and the online status is re-published.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}

	opts := c.pahoOptions()
	c.client = pahomqtt.NewClient(opts)

	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler runs asynchronously; mark connected here so
	// IsConnected is true as soon as Connect returns.
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	return c, nil
}

// pahoOptions translates controller config into paho client options.
func (c *Client) pahoOptions() *pahomqtt.ClientOptions {
	cfg := c.cfg
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)

	// Broker publishes this if we vanish without a graceful Close.
	will := statusPayload(cfg.Broker.ClientID, "offline", "unexpected_disconnect")
	opts.SetBinaryWill(Topics{}.SystemStatus(), will, 1, true)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.brokerUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.brokerDown(err) })

	return opts
}

// brokerUp runs on every (re)connect: replay subscriptions, announce
// ourselves, then notify the owner.
func (c *Client) brokerUp() {
	c.mu.Lock()
	c.connected = true
	cb := c.onConnect
	c.mu.Unlock()

	c.subMu.RLock()
	for _, sub := range c.subscriptions {
		c.client.Subscribe(sub.topic, sub.qos, c.adaptHandler(sub.handler))
	}
	c.subMu.RUnlock()

	c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
		statusPayload(c.cfg.Broker.ClientID, "online", ""))

	if cb != nil {
		cb()
	}
}

func (c *Client) brokerDown(err error) {
	c.mu.Lock()
	c.connected = false
	cb := c.onDisconnect
	c.mu.Unlock()

	if cb != nil {
		cb(err)
	}
}

// Close publishes a graceful offline status, distinct from the crash
// will, then disconnects. Safe to call on an already-closed client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		token := c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
			statusPayload(c.cfg.Broker.ClientID, "offline", "graceful_shutdown"))
		token.WaitTimeout(tokenTimeout)
	}

	c.client.Disconnect(disconnectQuiesceMs)

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	return nil
}

// HealthCheck reports whether the broker link is up.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// SetOnConnect registers a callback invoked on initial connect and on
// every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.mu.Lock()
	c.onConnect = callback
	c.mu.Unlock()
}

// SetOnDisconnect registers a callback invoked when the broker link drops.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger attaches a logger for handler errors and recovered panics.
// Without one those are dropped silently.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// adaptHandler bridges our handler signature to paho's, recovering
// panics so one bad payload cannot take the router down.
func (c *Client) adaptHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("mqtt handler panic", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("mqtt handler error", "topic", msg.Topic(), "error", err)
			}
		}
	}
}

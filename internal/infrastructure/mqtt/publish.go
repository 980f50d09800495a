package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadSize caps outbound payloads at 1MB, in line with common
// broker limits. State snapshots and health reports are a few hundred
// bytes, so hitting this indicates a bug upstream.
const maxPayloadSize = 1 << 20

// awaitToken waits for a paho token and folds timeout and transport
// errors into the given sentinel.
func awaitToken(token pahomqtt.Token, sentinel error) error {
	if !token.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("%w: timeout after %v", sentinel, tokenTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}

// Publish sends payload to topic at the given QoS level (0, 1 or 2).
//
// Retained messages are stored by the broker and delivered immediately
// to new subscribers; use retained for state and availability topics,
// never for commands.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	return awaitToken(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// PublishString publishes a string payload.
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishRetained publishes a retained message at the configured
// default QoS. Meant for state topics where late subscribers need the
// current value.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}

package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// subackFailure is the SUBACK return code for a rejected subscription.
const subackFailure = 0x80

// Subscribe subscribes to a topic filter.
//
// Messages matching the filter are delivered on the consumption channel,
// not to a per-subscription handler, so messages of a resumed session
// (which arrive before any Subscribe call) are handled identically.
//
// Parameters:
//   - topic: The topic filter (wildcards + and # allowed)
//   - qos: Maximum QoS level requested (0, 1, or 2)
//
// Returns:
//   - byte: QoS level granted by the broker
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Subscribe(topic string, qos byte) (byte, error) {
	if err := ValidateTopicFilter(topic); err != nil {
		return 0, err
	}
	if qos > maxQoS {
		return 0, ErrInvalidQoS
	}

	if !c.IsConnected() {
		return 0, ErrNotConnected
	}

	token := c.client.Subscribe(topic, qos, nil)
	if !token.WaitTimeout(defaultOperationTimeout) {
		return 0, fmt.Errorf("%w: %w after %v", ErrSubscribeFailed, ErrTimeout, defaultOperationTimeout)
	}
	if err := token.Error(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	granted := qos
	if st, ok := token.(*pahomqtt.SubscribeToken); ok {
		if g, found := st.Result()[topic]; found {
			granted = g
		}
	}
	if granted == subackFailure {
		return 0, fmt.Errorf("%w: broker rejected subscription to %q", ErrSubscribeFailed, topic)
	}

	return granted, nil
}

// Unsubscribe removes a subscription.
//
// Any messages in flight may still be delivered.
//
// Parameters:
//   - topic: The exact topic filter that was subscribed to
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Unsubscribe(topic)
	if !token.WaitTimeout(defaultOperationTimeout) {
		return fmt.Errorf("%w: %w after %v", ErrUnsubscribeFailed, ErrTimeout, defaultOperationTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}

	return nil
}

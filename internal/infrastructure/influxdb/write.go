package influxdb

import (
	"context"
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Point tag and field keys for stored messages.
const (
	topicTag     = "topic"
	payloadField = "payload"
)

// NewMessagePoint builds the point recorded for one received message.
//
// The topic is a tag so queries can filter by it; the payload is stored
// as a string field.
func NewMessagePoint(measurement, topic, payload string, ts time.Time) *write.Point {
	return write.NewPoint(
		measurement,
		map[string]string{topicTag: topic},
		map[string]interface{}{payloadField: payload},
		ts,
	)
}

// WriteMessage writes a single message point and waits for the result.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - measurement: The measurement name (e.g., "mqtt_messages")
//   - topic: MQTT topic the message arrived on
//   - payload: Message payload as text
//   - ts: Receive time
//
// Returns:
//   - error: ErrNotConnected after Close, ErrWriteFailed wrapping the server error
func (c *Client) WriteMessage(ctx context.Context, measurement, topic, payload string, ts time.Time) error {
	return c.WritePoint(ctx, NewMessagePoint(measurement, topic, payload, ts))
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(ctx context.Context, point *write.Point) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if err := c.writeAPI.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

package sink

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MessageWriter writes one message point per call.
// Implemented by *influxdb.Client.
type MessageWriter interface {
	WriteMessage(ctx context.Context, measurement, topic, payload string, ts time.Time) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// InfluxSink stores one InfluxDB point per record, tagged by topic.
type InfluxSink struct {
	client      MessageWriter
	measurement string
	mu          sync.Mutex
	closed      bool
}

// NewInflux creates a sink writing points with the given measurement name.
// Close closes the client.
func NewInflux(client MessageWriter, measurement string) *InfluxSink {
	return &InfluxSink{client: client, measurement: measurement}
}

// Append writes rec and waits for the server to accept it.
func (s *InfluxSink) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return ErrClosed
	}

	if err := s.client.WriteMessage(ctx, s.measurement, rec.Topic, rec.Text(), rec.Time); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// HealthCheck pings the InfluxDB server.
func (s *InfluxSink) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Close closes the underlying client. Later calls are no-ops.
func (s *InfluxSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

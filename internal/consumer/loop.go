package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/mqttlog/internal/infrastructure/mqtt"
	"github.com/nerrad567/mqttlog/internal/sink"
)

// drainTimeout bounds the writes of messages still buffered at shutdown.
const drainTimeout = 10 * time.Second

// Session is the part of the broker session the loop needs.
// Implemented by *session.Manager.
type Session interface {
	IsConnected() bool
	Reconnect(ctx context.Context) error
}

// Logger defines the logging interface for the consumption loop.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Stats holds loop counters.
type Stats struct {
	// Received counts messages taken from the channel.
	Received uint64

	// Written counts messages the sink accepted.
	Written uint64

	// Failed counts messages the sink rejected.
	Failed uint64

	// Spurious counts disconnect signals received while connected.
	Spurious uint64

	// Reconnects counts sessions restored after a connection loss.
	Reconnects uint64
}

// Loop consumes broker items and appends messages to a sink.
type Loop struct {
	session Session
	sink    sink.Sink
	logger  Logger
	now     func() time.Time

	received   atomic.Uint64
	written    atomic.Uint64
	failed     atomic.Uint64
	spurious   atomic.Uint64
	reconnects atomic.Uint64
}

// New creates a consumption loop.
func New(session Session, s sink.Sink) *Loop {
	return &Loop{
		session: session,
		sink:    s,
		logger:  noopLogger{},
		now:     time.Now,
	}
}

// SetLogger sets the logger for the loop.
func (l *Loop) SetLogger(logger Logger) {
	l.logger = logger
}

// SetClock sets the time source for record timestamps.
func (l *Loop) SetClock(now func() time.Time) {
	l.now = now
}

// Run processes items until the channel closes, ctx is cancelled, or the
// session is terminated. Items are handled strictly one at a time.
//
// The broker has already been acknowledged for every buffered message, so
// on cancellation the messages still in items are written before Run
// returns (see Drain).
//
// Parameters:
//   - ctx: Context for cancellation
//   - items: Consumption channel from mqtt.Client.StartConsuming
//
// Returns:
//   - error: nil when the channel closes, ctx.Err() on cancellation,
//     or an error wrapping ErrTerminated when reconnecting failed
func (l *Loop) Run(ctx context.Context, items <-chan mqtt.Item) error {
	l.logger.Info("consumption loop started")

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("consumption loop cancelled")
			l.drain(ctx, items)
			return ctx.Err()

		case item, ok := <-items:
			if !ok {
				l.logger.Info("consumption channel closed")
				return nil
			}

			// Cancellation raced with a ready item.
			if err := ctx.Err(); err != nil {
				l.logger.Info("consumption loop cancelled")
				l.drain(ctx, items, item)
				return err
			}

			switch it := item.(type) {
			case mqtt.Message:
				l.handleMessage(ctx, it)
			case mqtt.Disconnect:
				if err := l.handleDisconnect(ctx, it); err != nil {
					if ctx.Err() != nil {
						l.drain(ctx, items)
					}
					return err
				}
			default:
				l.logger.Warn("ignoring unknown item", "type", fmt.Sprintf("%T", item))
			}
		}
	}
}

// Drain writes the messages already buffered in items without waiting for
// new ones, and returns how many it took. Disconnect signals are skipped.
//
// Writes are detached from ctx cancellation and bounded by a fixed timeout,
// so Drain can run after a shutdown signal. Call it after
// mqtt.Client.StopConsuming to pick up deliveries that raced with Run
// returning.
func (l *Loop) Drain(ctx context.Context, items <-chan mqtt.Item) int {
	return l.drain(ctx, items)
}

func (l *Loop) drain(ctx context.Context, items <-chan mqtt.Item, pending ...mqtt.Item) int {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()

	n := 0
	take := func(item mqtt.Item) {
		if msg, ok := item.(mqtt.Message); ok {
			l.handleMessage(writeCtx, msg)
			n++
		}
	}

	for _, item := range pending {
		take(item)
	}

	for {
		select {
		case item, ok := <-items:
			if !ok {
				l.logDrained(n)
				return n
			}
			take(item)
		default:
			l.logDrained(n)
			return n
		}
	}
}

func (l *Loop) logDrained(n int) {
	if n > 0 {
		l.logger.Info("buffered messages written", "count", n)
	}
}

// Stats returns a snapshot of the loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Received:   l.received.Load(),
		Written:    l.written.Load(),
		Failed:     l.failed.Load(),
		Spurious:   l.spurious.Load(),
		Reconnects: l.reconnects.Load(),
	}
}

// handleMessage stamps and stores one message. Sink failures are logged
// and do not stop the loop.
func (l *Loop) handleMessage(ctx context.Context, msg mqtt.Message) {
	l.received.Add(1)

	rec := sink.Record{
		Time:    l.now(),
		Topic:   msg.Topic,
		Payload: msg.Payload,
	}

	if err := l.sink.Append(ctx, rec); err != nil {
		l.failed.Add(1)
		l.logger.Error("writing message failed",
			"topic", msg.Topic,
			"bytes", len(msg.Payload),
			"error", err,
		)
		return
	}

	l.written.Add(1)
	l.logger.Debug("message stored", "topic", msg.Topic, "bytes", len(msg.Payload))
}

// handleDisconnect restores the session after a connection loss.
func (l *Loop) handleDisconnect(ctx context.Context, d mqtt.Disconnect) error {
	if l.session.IsConnected() {
		l.spurious.Add(1)
		l.logger.Debug("ignoring disconnect signal while connected", "error", d.Err)
		return nil
	}

	l.logger.Warn("connection lost", "error", d.Err)

	err := l.session.Reconnect(ctx)
	if err == nil {
		l.reconnects.Add(1)
		l.logger.Info("session restored")
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		l.logger.Info("reconnect cancelled")
		return ctxErr
	}

	l.logger.Error("session could not be restored", "error", err)
	return fmt.Errorf("%w: %w", ErrTerminated, err)
}

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/mqttlog/internal/infrastructure/config"
	"github.com/nerrad567/mqttlog/internal/infrastructure/mqtt"
)

// Default reconnect policy.
const (
	DefaultMaxAttempts = 12
	DefaultInterval    = 5 * time.Second
)

// State represents the connectivity state of a session.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateTerminated   State = "terminated"
)

// Broker is the broker capability a session drives.
// Implemented by *mqtt.Client.
type Broker interface {
	Connect() (mqtt.ConnectResponse, error)
	Reconnect() (mqtt.ConnectResponse, error)
	Subscribe(topic string, qos byte) (byte, error)
	Unsubscribe(topic string) error
	Disconnect() error
	IsConnected() bool
}

// Options holds the subscription and reconnect policy of a session.
type Options struct {
	// Topic is the topic filter subscribed after connecting.
	Topic string

	// QoS is the requested subscription QoS.
	QoS byte

	// MaxAttempts bounds reconnect attempts after a connection loss.
	MaxAttempts int

	// Interval is the wait before each reconnect attempt.
	Interval time.Duration
}

// OptionsFromConfig derives session options from the MQTT configuration.
func OptionsFromConfig(cfg config.MQTTConfig) Options {
	return Options{
		Topic:       cfg.Topic,
		QoS:         byte(cfg.QoS), //nolint:gosec // QoS validated to 0-2 by config.Validate
		MaxAttempts: cfg.Reconnect.MaxAttempts,
		Interval:    cfg.Reconnect.Interval,
	}
}

// Logger defines the logging interface for the session manager.
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

// Manager owns the broker session: connect, subscribe, reconnect, shutdown.
type Manager struct {
	broker Broker
	opts   Options
	logger Logger

	mu     sync.RWMutex
	state  State
	topics []string
}

// New creates a session manager. Zero MaxAttempts or Interval select
// the defaults (12 attempts, 5 seconds).
func New(broker Broker, opts Options) *Manager {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	return &Manager{
		broker: broker,
		opts:   opts,
		logger: noopLogger{},
		state:  StateDisconnected,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Connect makes a single connection attempt and subscribes to the topic
// unless the broker resumed a persisted session.
//
// A failed subscription disconnects again; neither failure is retried.
//
// Returns:
//   - mqtt.ConnectResponse: broker URI, protocol version, session-present flag
//   - error: ErrConnectFailed, ErrSubscribeFailed, ErrTerminated or ctx.Err()
func (m *Manager) Connect(ctx context.Context) (mqtt.ConnectResponse, error) {
	if m.State() == StateTerminated {
		return mqtt.ConnectResponse{}, ErrTerminated
	}
	if err := ctx.Err(); err != nil {
		return mqtt.ConnectResponse{}, err
	}

	m.setState(StateConnecting)

	resp, err := m.broker.Connect()
	if err != nil {
		m.setState(StateDisconnected)
		return mqtt.ConnectResponse{}, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	m.logger.Info("connected to broker",
		"server_uri", resp.ServerURI,
		"protocol_version", resp.ProtocolVersion,
		"session_present", resp.SessionPresent,
	)

	if err := m.ensureSubscribed(resp); err != nil {
		if dErr := m.broker.Disconnect(); dErr != nil {
			m.logger.Warn("disconnect after failed subscribe", "error", dErr)
		}
		m.setState(StateDisconnected)
		return mqtt.ConnectResponse{}, err
	}

	m.setState(StateConnected)
	return resp, nil
}

// Reconnect restores the session after a connection loss.
//
// It makes up to MaxAttempts attempts, waiting Interval before each one.
// After a successful attempt the topic is subscribed again unless the
// broker resumed the session. When all attempts fail, or the subscription
// cannot be restored, the session is terminated.
//
// Returns:
//   - error: nil once connected and subscribed; ErrReconnectExhausted,
//     ErrSubscribeFailed or ErrTerminated when the session is over;
//     ctx.Err() if cancelled while waiting
func (m *Manager) Reconnect(ctx context.Context) error {
	if m.State() == StateTerminated {
		return ErrTerminated
	}

	m.setState(StateConnecting)

	for attempt := 1; attempt <= m.opts.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			m.setState(StateDisconnected)
			return ctx.Err()
		case <-time.After(m.opts.Interval):
		}

		m.logger.Info("reconnecting to broker",
			"attempt", attempt,
			"max_attempts", m.opts.MaxAttempts,
		)

		resp, err := m.broker.Reconnect()
		if err != nil {
			m.logger.Warn("reconnect attempt failed",
				"attempt", attempt,
				"max_attempts", m.opts.MaxAttempts,
				"error", err,
			)
			continue
		}

		m.logger.Info("reconnected to broker",
			"attempt", attempt,
			"server_uri", resp.ServerURI,
			"session_present", resp.SessionPresent,
		)

		if err := m.ensureSubscribed(resp); err != nil {
			m.terminate()
			return err
		}

		m.setState(StateConnected)
		return nil
	}

	m.terminate()
	m.logger.Error("reconnect attempts exhausted", "attempts", m.opts.MaxAttempts)
	return fmt.Errorf("%w after %d attempts", ErrReconnectExhausted, m.opts.MaxAttempts)
}

// Shutdown unsubscribes and disconnects if the broker connection is open.
// Failures are logged, never returned.
func (m *Manager) Shutdown() {
	if !m.broker.IsConnected() {
		m.logger.Debug("not connected, skipping unsubscribe and disconnect")
		m.leave()
		return
	}

	for _, topic := range m.Topics() {
		if err := m.broker.Unsubscribe(topic); err != nil {
			m.logger.Warn("unsubscribe failed", "topic", topic, "error", err)
		}
	}

	if err := m.broker.Disconnect(); err != nil {
		m.logger.Warn("disconnect failed", "error", err)
	} else {
		m.logger.Info("disconnected from broker")
	}

	m.leave()
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected reports whether the broker connection is currently open.
func (m *Manager) IsConnected() bool {
	return m.broker.IsConnected()
}

// Topics returns the topic filters held by the session.
func (m *Manager) Topics() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.topics))
	copy(out, m.topics)
	return out
}

// ensureSubscribed subscribes to the configured topic unless the broker
// resumed a session that already holds it.
func (m *Manager) ensureSubscribed(resp mqtt.ConnectResponse) error {
	if resp.SessionPresent {
		m.logger.Info("resumed persisted session, keeping subscriptions", "topic", m.opts.Topic)
		m.addTopic(m.opts.Topic)
		return nil
	}

	granted, err := m.broker.Subscribe(m.opts.Topic, m.opts.QoS)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, m.opts.Topic, err)
	}

	m.logger.Info("subscribed",
		"topic", m.opts.Topic,
		"requested_qos", m.opts.QoS,
		"granted_qos", granted,
	)
	m.addTopic(m.opts.Topic)
	return nil
}

func (m *Manager) addTopic(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.topics {
		if t == topic {
			return
		}
	}
	m.topics = append(m.topics, topic)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) terminate() {
	m.setState(StateTerminated)
}

// leave moves to disconnected unless the session is terminated.
func (m *Manager) leave() {
	m.mu.Lock()
	if m.state != StateTerminated {
		m.state = StateDisconnected
	}
	m.mu.Unlock()
}

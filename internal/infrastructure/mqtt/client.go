package mqtt

import (
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/mqttlog/internal/infrastructure/config"
)

// generatedClientIDPrefix prefixes client IDs generated when none is configured.
const generatedClientIDPrefix = "mqttlog-"

// Client wraps paho.mqtt.golang as an explicit, pull-based broker capability.
//
// Unlike a callback-driven client, every received message and every
// connection loss is delivered as an Item on a single channel (see
// StartConsuming). Connect and Reconnect are single attempts; the retry
// policy belongs to the caller.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client   pahomqtt.Client
	options  *pahomqtt.ClientOptions
	cfg      config.MQTTConfig
	uri      string
	clientID string

	// Consumption channel state, see consume.go.
	items     chan Item
	stop      chan struct{}
	stopOnce  sync.Once
	stopped   bool
	consumeMu sync.RWMutex

	// logger for diagnostics (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ConnectResponse describes the outcome of a successful connect.
type ConnectResponse struct {
	// ServerURI is the broker the client connected to.
	ServerURI string

	// ProtocolVersion is the MQTT protocol level (4 = MQTT 3.1.1).
	ProtocolVersion uint

	// SessionPresent is true when the broker resumed a persisted session,
	// in which case existing subscriptions are still in place.
	SessionPresent bool
}

// NewClient builds a client from configuration without connecting.
//
// It performs the following setup:
//  1. Validates host, port and QoS
//  2. Resolves the client ID (generated if empty)
//  3. Builds connection options (URI, credentials, keepalive, clean session)
//  4. Routes every publish and connection loss onto the consumption channel
//  5. Configures Last Will and Testament when a status topic is set
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//
// Returns:
//   - *Client: Client ready for StartConsuming and Connect
//   - error: ErrInvalidOptions if the configuration cannot produce a client
func NewClient(cfg config.MQTTConfig) (*Client, error) {
	if cfg.Broker.Host == "" {
		return nil, fmt.Errorf("%w: broker host is required", ErrInvalidOptions)
	}
	if cfg.Broker.Port < 1 || cfg.Broker.Port > 65535 {
		return nil, fmt.Errorf("%w: broker port %d out of range", ErrInvalidOptions, cfg.Broker.Port)
	}
	if cfg.QoS < 0 || cfg.QoS > maxQoS {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, ErrInvalidQoS)
	}

	clientID := cfg.Broker.ClientID
	if clientID == "" {
		clientID = generatedClientIDPrefix + uuid.NewString()
	}

	opts := buildClientOptions(cfg, clientID)
	if cfg.StatusTopic != "" {
		configureLWT(opts, cfg.StatusTopic, clientID)
	}

	c := &Client{
		options:  opts,
		cfg:      cfg,
		uri:      serverURI(cfg),
		clientID: clientID,
		items:    make(chan Item, consumeBufferSize),
		stop:     make(chan struct{}),
	}

	opts.SetDefaultPublishHandler(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.deliver(Message{
			Topic:     msg.Topic(),
			Payload:   msg.Payload(),
			QoS:       msg.Qos(),
			Retained:  msg.Retained(),
			Duplicate: msg.Duplicate(),
		})
	})

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.deliver(Disconnect{Err: err})
	})

	c.client = pahomqtt.NewClient(opts)

	return c, nil
}

// ClientID returns the client identifier presented to the broker.
func (c *Client) ClientID() string {
	return c.clientID
}

// ServerURI returns the broker URI derived from host and port.
func (c *Client) ServerURI() string {
	return c.uri
}

// GeneratedClientID reports whether the client ID was generated because
// none was configured. A generated ID cannot resume a persisted session
// across restarts.
func (c *Client) GeneratedClientID() bool {
	return c.cfg.Broker.ClientID == ""
}

// Connect performs a single connection attempt.
//
// Parameters: none; options were fixed by NewClient.
//
// Returns:
//   - ConnectResponse: server URI, protocol version and session-present flag
//   - error: wrapped ErrConnectionFailed if the attempt fails or times out
func (c *Client) Connect() (ConnectResponse, error) {
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return ConnectResponse{}, fmt.Errorf("%w: %w after %v", ErrConnectionFailed, ErrTimeout, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return ConnectResponse{}, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	resp := ConnectResponse{
		ServerURI:       c.uri,
		ProtocolVersion: protocolVersion,
	}
	if ct, ok := token.(*pahomqtt.ConnectToken); ok {
		resp.SessionPresent = ct.SessionPresent()
	}

	c.publishOnlineStatus()

	return resp, nil
}

// Reconnect performs one further connection attempt with the same options.
//
// If the transport is already connected it reports a present session, so
// callers do not subscribe twice.
func (c *Client) Reconnect() (ConnectResponse, error) {
	if c.IsConnected() {
		return ConnectResponse{
			ServerURI:       c.uri,
			ProtocolVersion: protocolVersion,
			SessionPresent:  true,
		}, nil
	}
	return c.Connect()
}

// Disconnect gracefully closes the connection.
//
// It performs:
//  1. Publishes graceful offline status (if a status topic is configured)
//  2. Waits up to the quiesce period for pending operations
//  3. Disconnects from broker
//
// Returns:
//   - error: ErrNotConnected if there was no open connection
func (c *Client) Disconnect() error {
	if c.client == nil || !c.IsConnected() {
		return ErrNotConnected
	}

	c.publishOfflineStatus()
	c.client.Disconnect(defaultDisconnectQuiesce)

	return nil
}

// IsConnected returns true only while the network connection is open.
//
// A connection that was lost reports false until Connect or Reconnect
// succeeds again.
func (c *Client) IsConnected() bool {
	if c.client == nil {
		return false
	}
	return c.client.IsConnectionOpen()
}

// SetLogger sets a logger for diagnostics.
// If not set, diagnostics are discarded.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// publishOnlineStatus publishes the retained online status, if enabled.
func (c *Client) publishOnlineStatus() {
	if c.cfg.StatusTopic == "" {
		return
	}
	if err := c.PublishString(c.cfg.StatusTopic, buildOnlinePayload(c.clientID), 1, true); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("publishing online status failed", "topic", c.cfg.StatusTopic, "error", err)
		}
	}
}

// publishOfflineStatus publishes the retained graceful offline status, if enabled.
func (c *Client) publishOfflineStatus() {
	if c.cfg.StatusTopic == "" {
		return
	}
	if err := c.PublishString(c.cfg.StatusTopic, buildOfflinePayload(c.clientID), 1, true); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("publishing offline status failed", "topic", c.cfg.StatusTopic, "error", err)
		}
	}
}

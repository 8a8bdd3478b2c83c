package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Sink types selectable via sink.type.
const (
	SinkFile     = "file"
	SinkConsole  = "console"
	SinkSQLite   = "sqlite"
	SinkInfluxDB = "influxdb"
)

// Config is the root configuration structure for mqttlog.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Sink    SinkConfig    `yaml:"sink"`
	API     APIConfig     `yaml:"api"`
	Logging LoggingConfig `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection and subscription settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`

	// Topic is the topic filter to subscribe to (wildcards allowed).
	Topic string `yaml:"topic"`
	QoS   int    `yaml:"qos"`

	// KeepAlive is the interval between keepalive PINGs.
	KeepAlive time.Duration `yaml:"keep_alive"`

	// CleanSession discards the broker-side session on connect.
	// Default: false (the broker keeps the subscription and queued
	// messages while we are away).
	CleanSession bool `yaml:"clean_session"`

	// StatusTopic, when set, receives a retained online/offline status
	// message and is used as the Last Will topic.
	StatusTopic string `yaml:"status_topic"`

	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains the bounded reconnect policy.
type MQTTReconnectConfig struct {
	// MaxAttempts is the number of reconnect attempts before giving up.
	// Default: 12
	MaxAttempts int `yaml:"max_attempts"`

	// Interval is the fixed delay before each attempt.
	// Default: 5s
	Interval time.Duration `yaml:"interval"`
}

// SinkConfig selects and configures the message sink.
type SinkConfig struct {
	Type     string             `yaml:"type"`
	File     FileSinkConfig     `yaml:"file"`
	SQLite   SQLiteSinkConfig   `yaml:"sqlite"`
	InfluxDB InfluxDBSinkConfig `yaml:"influxdb"`
}

// FileSinkConfig contains append-only log file settings.
type FileSinkConfig struct {
	Path string `yaml:"path"`

	// CreateIfMissing creates an empty file at startup if Path does not exist.
	// Writes never create the file.
	CreateIfMissing bool `yaml:"create_if_missing"`
}

// SQLiteSinkConfig contains SQLite database settings.
type SQLiteSinkConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBSinkConfig contains InfluxDB connection settings.
type InfluxDBSinkConfig struct {
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

// APIConfig contains settings for the optional HTTP status server.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MQTTLOG_SECTION_KEY
// For example: MQTTLOG_MQTT_HOST, MQTTLOG_OUTPUT_FILE
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// normalize canonicalises values that are matched case-insensitively, so
// later comparisons can use the Sink* constants directly.
func (c *Config) normalize() {
	c.Sink.Type = strings.ToLower(strings.TrimSpace(c.Sink.Type))
	if c.Sink.Type == "" {
		c.Sink.Type = SinkFile
	}
}

// Default returns a Config with sensible defaults.
//
// The reconnect policy defaults to 12 attempts spaced 5 seconds apart,
// bounding a broker outage to roughly one minute before giving up.
func Default() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "mqttlog",
			},
			QoS:          1,
			KeepAlive:    20 * time.Second,
			CleanSession: false,
			Reconnect: MQTTReconnectConfig{
				MaxAttempts: 12,
				Interval:    5 * time.Second,
			},
		},
		Sink: SinkConfig{
			Type: SinkFile,
			File: FileSinkConfig{
				Path: "./out.log",
			},
			SQLite: SQLiteSinkConfig{
				Path:        "./data/mqttlog.db",
				WALMode:     true,
				BusyTimeout: 5,
			},
			InfluxDB: InfluxDBSinkConfig{
				Measurement: "mqtt_messages",
			},
		},
		API: APIConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    9091,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MQTTLOG_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// MQTT
	if v := os.Getenv("MQTTLOG_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MQTTLOG_MQTT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MQTTLOG_MQTT_PORT: %w", err)
		}
		cfg.MQTT.Broker.Port = port
	}
	if v := os.Getenv("MQTTLOG_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.Broker.ClientID = v
	}
	if v := os.Getenv("MQTTLOG_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MQTTLOG_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("MQTTLOG_MQTT_TOPIC"); v != "" {
		cfg.MQTT.Topic = v
	}

	// Sink
	if v := os.Getenv("MQTTLOG_SINK_TYPE"); v != "" {
		cfg.Sink.Type = v
	}
	if v := os.Getenv("MQTTLOG_OUTPUT_FILE"); v != "" {
		cfg.Sink.File.Path = v
	}
	if v := os.Getenv("MQTTLOG_INFLUXDB_TOKEN"); v != "" {
		cfg.Sink.InfluxDB.Token = v
	}

	// API
	if v := os.Getenv("MQTTLOG_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MQTTLOG_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}

	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Topic == "" {
		errs = append(errs, "mqtt.topic is required")
	}
	if strings.ContainsAny(c.MQTT.StatusTopic, "+#") {
		errs = append(errs, "mqtt.status_topic must not contain wildcards")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.KeepAlive < time.Second {
		errs = append(errs, "mqtt.keep_alive must be at least 1s")
	}
	if c.MQTT.Reconnect.MaxAttempts < 0 {
		errs = append(errs, "mqtt.reconnect.max_attempts must not be negative")
	}
	if c.MQTT.Reconnect.Interval < 0 {
		errs = append(errs, "mqtt.reconnect.interval must not be negative")
	}

	// Sink validation
	switch strings.ToLower(c.Sink.Type) {
	case SinkFile:
		if c.Sink.File.Path == "" {
			errs = append(errs, "sink.file.path is required for the file sink")
		}
	case SinkConsole:
	case SinkSQLite:
		if c.Sink.SQLite.Path == "" {
			errs = append(errs, "sink.sqlite.path is required for the sqlite sink")
		}
	case SinkInfluxDB:
		if c.Sink.InfluxDB.URL == "" {
			errs = append(errs, "sink.influxdb.url is required for the influxdb sink")
		}
		if c.Sink.InfluxDB.Org == "" {
			errs = append(errs, "sink.influxdb.org is required for the influxdb sink")
		}
		if c.Sink.InfluxDB.Bucket == "" {
			errs = append(errs, "sink.influxdb.bucket is required for the influxdb sink")
		}
		if c.Sink.InfluxDB.Measurement == "" {
			errs = append(errs, "sink.influxdb.measurement is required for the influxdb sink")
		}
	default:
		errs = append(errs, fmt.Sprintf("sink.type %q must be one of file, console, sqlite, influxdb", c.Sink.Type))
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 0 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 0 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// BrokerAddress returns the broker host:port pair for logging.
func (c *MQTTConfig) BrokerAddress() string {
	return fmt.Sprintf("%s:%d", c.Broker.Host, c.Broker.Port)
}

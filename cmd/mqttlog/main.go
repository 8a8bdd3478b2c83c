// mqttlog subscribes to an MQTT topic filter and records every received
// message as one line of an append-only log:
//
//	<RFC 3339 timestamp>;<topic>;<payload>
//
// After a connection loss it retries a bounded number of times and exits
// with an error when the broker stays unreachable. Alternative sinks
// (console, SQLite, InfluxDB) store the same records elsewhere.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/mqttlog/internal/api"
	"github.com/nerrad567/mqttlog/internal/consumer"
	"github.com/nerrad567/mqttlog/internal/infrastructure/config"
	"github.com/nerrad567/mqttlog/internal/infrastructure/logging"
	"github.com/nerrad567/mqttlog/internal/infrastructure/mqtt"
	"github.com/nerrad567/mqttlog/internal/session"
	"github.com/nerrad567/mqttlog/internal/sink"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// defaultConfigPath is used when neither --config nor MQTTLOG_CONFIG is set.
	defaultConfigPath = "configs/config.yaml"

	// configEnvVar overrides the default configuration path.
	configEnvVar = "MQTTLOG_CONFIG"
)

// options holds command-line settings for run.
type options struct {
	configPath string
	console    bool

	// stdout receives console sink output; stderr receives logs in console mode.
	stdout io.Writer
	stderr io.Writer
}

func main() {
	// Cancel on Ctrl+C or SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called explicitly above
	}
}

// newRootCmd builds the mqttlog command.
func newRootCmd() *cobra.Command {
	opts := options{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	cmd := &cobra.Command{
		Use:   "mqttlog",
		Short: "Record MQTT messages to an append-only log",
		Long: `Subscribe to an MQTT topic filter and append every received message
to a log file as "<timestamp>;<topic>;<payload>".

Examples:
  # Use configs/config.yaml
  mqttlog

  # Use another configuration file
  mqttlog --config /etc/mqttlog/config.yaml

  # Print messages instead of writing the log file
  mqttlog --console`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", configPathFromEnv(),
		"config file path (env "+configEnvVar+")")
	cmd.Flags().BoolVar(&opts.console, "console", false,
		"print messages to stdout instead of the configured sink")

	return cmd
}

// configPathFromEnv returns the configuration path from the environment,
// or the default path.
func configPathFromEnv() string {
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - opts: Command-line options
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, opts options) error {
	if opts.stdout == nil {
		opts.stdout = os.Stdout
	}
	if opts.stderr == nil {
		opts.stderr = os.Stderr
	}

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting mqttlog",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.console {
		cfg.Sink.Type = config.SinkConsole
	}

	// Console mode owns stdout, so logs move to stderr.
	if cfg.Sink.Type == config.SinkConsole {
		log = logging.NewWithWriter(cfg.Logging, version, opts.stderr)
	} else {
		log = logging.New(cfg.Logging, version)
	}
	log.Info("configuration loaded",
		"path", opts.configPath,
		"sink", cfg.Sink.Type,
		"level", cfg.Logging.Level,
	)

	out, err := sink.Open(ctx, cfg.Sink, opts.stdout)
	if err != nil {
		return fmt.Errorf("opening sink: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil {
			log.Error("error closing sink", "error", closeErr)
		}
	}()
	if fileSink, ok := out.(*sink.FileSink); ok {
		log.Info("appending to log file", "path", fileSink.Path())
	}

	client, err := mqtt.NewClient(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("creating MQTT client: %w", err)
	}
	client.SetLogger(log)
	if client.GeneratedClientID() {
		log.Warn("no client_id configured, using a generated one; the broker session will not survive restarts",
			"client_id", client.ClientID(),
		)
	}

	// Start consuming before connecting so messages of a resumed session
	// are not lost.
	items := client.StartConsuming()
	defer client.StopConsuming()

	sess := session.New(client, session.OptionsFromConfig(cfg.MQTT))
	sess.SetLogger(log)

	if _, err := sess.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.MQTT.BrokerAddress(), err)
	}
	log.Info("recording messages",
		"broker", client.ServerURI(),
		"client_id", client.ClientID(),
		"topic", cfg.MQTT.Topic,
	)

	loop := consumer.New(sess, out)
	loop.SetLogger(log)

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log,
			Session: sess,
			Loop:    loop,
			Sink:    out,
			Version: version,
		})
		if err != nil {
			sess.Shutdown()
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := apiServer.Start(ctx); err != nil {
			sess.Shutdown()
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	// A missing log file or unreachable database is not fatal: records
	// fail individually until the backend recovers.
	if err := healthCheck(ctx, client, out, apiServer); err != nil {
		log.Warn("startup health check failed", "error", err)
	}

	runErr := loop.Run(ctx, items)

	sess.Shutdown()

	// Pick up deliveries that raced with a shutdown signal. The broker has
	// acknowledged them already.
	client.StopConsuming()
	if errors.Is(runErr, context.Canceled) {
		loop.Drain(ctx, items)
	}

	stats := loop.Stats()
	log.Info("mqttlog stopped",
		"received", stats.Received,
		"written", stats.Written,
		"failed", stats.Failed,
		"reconnects", stats.Reconnects,
	)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// healthCheck verifies the broker connection, the sink and, when enabled,
// the status API.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - client: MQTT client to check
//   - out: Sink to check
//   - apiServer: Status API to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, client *mqtt.Client, out sink.Sink, apiServer *api.Server) error {
	if !client.IsConnected() {
		return mqtt.ErrNotConnected
	}

	if err := sink.Check(ctx, out); err != nil {
		return err
	}

	if apiServer != nil {
		if err := apiServer.HealthCheck(ctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}

	return nil
}

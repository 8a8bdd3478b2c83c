package sink

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nerrad567/mqttlog/internal/infrastructure/config"
	"github.com/nerrad567/mqttlog/internal/infrastructure/database"
	"github.com/nerrad567/mqttlog/internal/infrastructure/influxdb"
)

// Open builds the sink selected by cfg.Type.
//
// Parameters:
//   - ctx: Context for connecting to database backends
//   - cfg: Sink section of the configuration
//   - stdout: Destination for the console sink
//
// Returns:
//   - Sink: Ready for Append; the caller must Close it
//   - error: ErrUnknownType, or the backend's construction error
func Open(ctx context.Context, cfg config.SinkConfig, stdout io.Writer) (Sink, error) {
	switch strings.ToLower(cfg.Type) {
	case config.SinkFile, "":
		return NewFile(FileOptions{
			Path:            cfg.File.Path,
			CreateIfMissing: cfg.File.CreateIfMissing,
		})

	case config.SinkConsole:
		return NewConsole(stdout), nil

	case config.SinkSQLite:
		return NewSQLite(ctx, database.Config{
			Path:        cfg.SQLite.Path,
			WALMode:     cfg.SQLite.WALMode,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})

	case config.SinkInfluxDB:
		client, err := influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
		return NewInflux(client, cfg.InfluxDB.Measurement), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
}

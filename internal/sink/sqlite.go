package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/mqttlog/internal/infrastructure/database"

	// Registers the messages schema with the database package.
	_ "github.com/nerrad567/mqttlog/migrations"
)

const insertMessageSQL = `INSERT INTO messages (received_at, topic, payload) VALUES (?, ?, ?)`

// SQLiteSink stores one row per record in the messages table.
//
// The payload is stored as raw bytes, so invalid UTF-8 survives unchanged.
type SQLiteSink struct {
	db     *database.DB
	mu     sync.Mutex
	closed bool
}

// NewSQLite opens the database and applies pending migrations.
//
// Parameters:
//   - ctx: Context for opening and migrating
//   - cfg: Database path, WAL mode and busy timeout
//
// Returns:
//   - *SQLiteSink: Sink ready for Append
//   - error: If the database cannot be opened or migrated
func NewSQLite(ctx context.Context, cfg database.Config) (*SQLiteSink, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	return &SQLiteSink{db: db}, nil
}

// Append inserts rec as a new row.
func (s *SQLiteSink) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	payload := rec.Payload
	if payload == nil {
		payload = []byte{}
	}

	if _, err := s.db.ExecContext(ctx, insertMessageSQL, rec.Timestamp(), rec.Topic, payload); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// HealthCheck runs a trivial query against the database.
func (s *SQLiteSink) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, s.db.Path(), err)
	}
	return nil
}

// Close closes the database. Later calls are no-ops.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

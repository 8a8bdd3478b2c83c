package sink

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/mqttlog/internal/infrastructure/database"
)

func newSQLiteSink(t *testing.T) *SQLiteSink {
	t.Helper()

	s, err := NewSQLite(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "mqttlog.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() {
		s.Close() //nolint:errcheck // Test cleanup
	})
	return s
}

func TestSQLiteSink_Append(t *testing.T) {
	s := newSQLiteSink(t)
	ctx := context.Background()

	ts := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	records := []Record{
		{Time: ts, Topic: "sensors/temp", Payload: []byte("21.5")},
		{Time: ts.Add(time.Second), Topic: "sensors/raw", Payload: []byte{0x00, 0xff, 0x10}},
		{Time: ts.Add(2 * time.Second), Topic: "sensors/empty", Payload: nil},
	}
	for _, rec := range records {
		if err := s.Append(ctx, rec); err != nil {
			t.Fatalf("Append(%s) error = %v", rec.Topic, err)
		}
	}

	rows, err := s.db.QueryContext(ctx, "SELECT received_at, topic, payload FROM messages ORDER BY id")
	if err != nil {
		t.Fatalf("query error = %v", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		var receivedAt, topic string
		var payload []byte
		if err := rows.Scan(&receivedAt, &topic, &payload); err != nil {
			t.Fatalf("scan error = %v", err)
		}
		if i >= len(records) {
			t.Fatalf("more rows than records")
		}
		want := records[i]
		if receivedAt != want.Timestamp() {
			t.Errorf("row %d received_at = %q, want %q", i, receivedAt, want.Timestamp())
		}
		if topic != want.Topic {
			t.Errorf("row %d topic = %q, want %q", i, topic, want.Topic)
		}
		if !bytes.Equal(payload, want.Payload) {
			t.Errorf("row %d payload = %v, want %v", i, payload, want.Payload)
		}
		i++
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows error = %v", err)
	}
	if i != len(records) {
		t.Errorf("got %d rows, want %d", i, len(records))
	}
}

func TestSQLiteSink_Closed(t *testing.T) {
	s := newSQLiteSink(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := s.Append(context.Background(), Record{Time: time.Now(), Topic: "t"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Append() after Close error = %v, want ErrClosed", err)
	}
}

func TestNewSQLite_InvalidPath(t *testing.T) {
	_, err := NewSQLite(context.Background(), database.Config{})
	if !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("NewSQLite() error = %v, want ErrInvalidOptions", err)
	}
}

func TestSQLiteSink_HealthCheck(t *testing.T) {
	s := newSQLiteSink(t)

	if err := Check(context.Background(), s); err != nil {
		t.Errorf("Check() error = %v", err)
	}

	s.Close() //nolint:errcheck // Closing to exercise the closed path
	if err := s.HealthCheck(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrClosed", err)
	}
}

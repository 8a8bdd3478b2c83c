package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type writtenPoint struct {
	measurement string
	topic       string
	payload     string
	ts          time.Time
}

// fakeWriter records WriteMessage calls.
type fakeWriter struct {
	mu       sync.Mutex
	points   []writtenPoint
	writeErr  error
	healthErr error
	closed    int
}

func (f *fakeWriter) WriteMessage(_ context.Context, measurement, topic, payload string, ts time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.points = append(f.points, writtenPoint{measurement, topic, payload, ts})
	return nil
}

func (f *fakeWriter) HealthCheck(context.Context) error {
	return f.healthErr
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

func TestInfluxSink_Append(t *testing.T) {
	w := &fakeWriter{}
	s := NewInflux(w, "mqtt_messages")

	ts := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	if err := s.Append(context.Background(), Record{Time: ts, Topic: "sensors/temp", Payload: []byte{'2', 0xff}}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if len(w.points) != 1 {
		t.Fatalf("points written = %d, want 1", len(w.points))
	}
	got := w.points[0]
	want := writtenPoint{"mqtt_messages", "sensors/temp", "2�", ts}
	if got.measurement != want.measurement || got.topic != want.topic || got.payload != want.payload || !got.ts.Equal(want.ts) {
		t.Errorf("point = %+v, want %+v", got, want)
	}
}

func TestInfluxSink_WriteError(t *testing.T) {
	w := &fakeWriter{writeErr: errors.New("bucket not found")}
	s := NewInflux(w, "mqtt_messages")

	err := s.Append(context.Background(), Record{Time: time.Now(), Topic: "t"})
	if !errors.Is(err, ErrWriteFailed) {
		t.Errorf("Append() error = %v, want ErrWriteFailed", err)
	}
}

func TestInfluxSink_Close(t *testing.T) {
	w := &fakeWriter{}
	s := NewInflux(w, "mqtt_messages")

	s.Close()
	s.Close()

	if w.closed != 1 {
		t.Errorf("client closed %d times, want 1", w.closed)
	}
	if err := s.Append(context.Background(), Record{Time: time.Now(), Topic: "t"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Append() after Close error = %v, want ErrClosed", err)
	}
}

func TestInfluxSink_HealthCheck(t *testing.T) {
	w := &fakeWriter{}
	s := NewInflux(w, "mqtt_messages")

	if err := Check(context.Background(), s); err != nil {
		t.Errorf("Check() error = %v", err)
	}

	w.healthErr = errors.New("connection refused")
	if err := Check(context.Background(), s); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Check() error = %v, want ErrUnavailable", err)
	}

	s.Close()
	if err := s.HealthCheck(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrClosed", err)
	}
}

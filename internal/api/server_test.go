package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/mqttlog/internal/consumer"
	"github.com/nerrad567/mqttlog/internal/infrastructure/config"
	"github.com/nerrad567/mqttlog/internal/infrastructure/logging"
	"github.com/nerrad567/mqttlog/internal/session"
	"github.com/nerrad567/mqttlog/internal/sink"
)

// ─── Test Helpers ──────────────────────────────────────────────────

type fakeStatus struct {
	state  session.State
	topics []string
}

func (f *fakeStatus) State() session.State { return f.state }
func (f *fakeStatus) IsConnected() bool    { return f.state == session.StateConnected }
func (f *fakeStatus) Topics() []string     { return f.topics }

type fakeStats struct {
	stats consumer.Stats
}

func (f *fakeStats) Stats() consumer.Stats { return f.stats }

// checkedSink is a sink with a scripted health hook.
type checkedSink struct {
	healthErr error
}

func (c *checkedSink) Append(context.Context, sink.Record) error { return nil }
func (c *checkedSink) Close() error                              { return nil }
func (c *checkedSink) HealthCheck(context.Context) error         { return c.healthErr }

func testLogger() *logging.Logger {
	return logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
}

func testServer(t *testing.T, state session.State) *Server {
	t.Helper()

	srv, err := New(Deps{
		Config:  config.APIConfig{Enabled: true, Host: "127.0.0.1", Port: 0},
		Logger:  testLogger(),
		Session: &fakeStatus{state: state, topics: []string{"sensors/#"}},
		Loop: &fakeStats{stats: consumer.Stats{
			Received:   5,
			Written:    4,
			Failed:     1,
			Spurious:   2,
			Reconnects: 3,
		}},
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func serve(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

// ─── New ───────────────────────────────────────────────────────────

func TestNew_MissingDeps(t *testing.T) {
	tests := []struct {
		name string
		deps Deps
	}{
		{"no logger", Deps{Session: &fakeStatus{}, Loop: &fakeStats{}}},
		{"no session", Deps{Logger: testLogger(), Loop: &fakeStats{}}},
		{"no loop", Deps{Logger: testLogger(), Session: &fakeStatus{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() should fail")
			}
		})
	}
}

// ─── Health ────────────────────────────────────────────────────────

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		state      session.State
		wantCode   int
		wantStatus string
	}{
		{session.StateConnected, http.StatusOK, "ok"},
		{session.StateConnecting, http.StatusServiceUnavailable, "disconnected"},
		{session.StateDisconnected, http.StatusServiceUnavailable, "disconnected"},
		{session.StateTerminated, http.StatusServiceUnavailable, "terminated"},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			rec := serve(t, testServer(t, tt.state), http.MethodGet, "/api/v1/health")

			if rec.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantCode)
			}

			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if resp.Session != string(tt.state) {
				t.Errorf("session = %q, want %q", resp.Session, tt.state)
			}
			if resp.Version != "test" {
				t.Errorf("version = %q, want test", resp.Version)
			}
			if len(resp.Topics) != 1 || resp.Topics[0] != "sensors/#" {
				t.Errorf("topics = %v, want [sensors/#]", resp.Topics)
			}
		})
	}
}

func TestHandleHealth_Sink(t *testing.T) {
	tests := []struct {
		name       string
		state      session.State
		healthErr  error
		wantCode   int
		wantStatus string
		wantSink   string
	}{
		{"healthy", session.StateConnected, nil, http.StatusOK, "ok", "ok"},
		{"sink unavailable", session.StateConnected, sink.ErrUnavailable, http.StatusServiceUnavailable, "sink_unavailable", sink.ErrUnavailable.Error()},
		{"session reported first", session.StateDisconnected, sink.ErrUnavailable, http.StatusServiceUnavailable, "disconnected", sink.ErrUnavailable.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, tt.state)
			srv.sink = &checkedSink{healthErr: tt.healthErr}

			rec := serve(t, srv, http.MethodGet, "/api/v1/health")
			if rec.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantCode)
			}

			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if resp.Sink != tt.wantSink {
				t.Errorf("sink = %q, want %q", resp.Sink, tt.wantSink)
			}
		})
	}
}

// ─── Metrics ───────────────────────────────────────────────────────

func TestHandleMetrics(t *testing.T) {
	rec := serve(t, testServer(t, session.StateConnected), http.MethodGet, "/api/v1/metrics")

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}

	var m SystemMetrics
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if !m.MQTT.Connected || m.MQTT.Session != "connected" {
		t.Errorf("mqtt = %+v, want connected", m.MQTT)
	}
	if m.MQTT.Reconnects != 3 || m.MQTT.Spurious != 2 {
		t.Errorf("mqtt counters = %+v", m.MQTT)
	}
	if m.Messages.Received != 5 || m.Messages.Written != 4 || m.Messages.Failed != 1 {
		t.Errorf("messages = %+v", m.Messages)
	}
	if m.Runtime.Goroutines <= 0 {
		t.Errorf("goroutines = %d, want > 0", m.Runtime.Goroutines)
	}
	if _, err := time.Parse(time.RFC3339, m.Timestamp); err != nil {
		t.Errorf("timestamp %q: %v", m.Timestamp, err)
	}
}

// ─── Routing & Middleware ──────────────────────────────────────────

func TestRouter_NotFound(t *testing.T) {
	rec := serve(t, testServer(t, session.StateConnected), http.MethodGet, "/api/v1/devices")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status code = %d, want 404", rec.Code)
	}

	var e Error
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if e.Code != ErrCodeNotFound {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeNotFound)
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	rec := serve(t, testServer(t, session.StateConnected), http.MethodPost, "/api/v1/health")

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status code = %d, want 405", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	srv := testServer(t, session.StateConnected)

	rec := serve(t, srv, http.MethodGet, "/api/v1/health")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-id")
	rec = httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-id" {
		t.Errorf("X-Request-ID = %q, want client-id", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := testServer(t, session.StateConnected)
	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status code = %d, want 500", rec.Code)
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestServer_StartClose(t *testing.T) {
	srv := testServer(t, session.StateConnected)

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if srv.Addr() != "" {
		t.Errorf("Addr() before Start = %q, want empty", srv.Addr())
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })

	if err := srv.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}
	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET /api/v1/health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status code = %d, want 200", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestServer_HealthCheckCancelled(t *testing.T) {
	srv := testServer(t, session.StateConnected)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := srv.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() with cancelled context should fail")
	}
}

func TestServer_CloseWithoutStart(t *testing.T) {
	if err := testServer(t, session.StateConnected).Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

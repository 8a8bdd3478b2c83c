// Package api implements the optional HTTP status server for mqttlog.
//
// This package provides:
//   - GET /api/v1/health: session state, 200 while connected, 503 otherwise
//   - GET /api/v1/metrics: runtime statistics and consumption loop counters
//   - Middleware stack (request ID, logging, recovery)
//
// The server only reads state; it never changes the session or the sink.
// It is disabled unless api.enabled is set in config.yaml.
package api

package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	MQTT          MQTTMetrics    `json:"mqtt"`
	Messages      MessageMetrics `json:"messages"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// MQTTMetrics contains broker session statistics.
type MQTTMetrics struct {
	Connected  bool   `json:"connected"`
	Session    string `json:"session"`
	Reconnects uint64 `json:"reconnects"`
	Spurious   uint64 `json:"spurious_disconnects"`
}

// MessageMetrics contains consumption loop counters.
type MessageMetrics struct {
	Received uint64 `json:"received"`
	Written  uint64 `json:"written"`
	Failed   uint64 `json:"failed"`
}

// bytesPerMB converts byte counts to megabytes.
const bytesPerMB = 1024 * 1024

// handleMetrics returns runtime, session and loop metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := s.loop.Stats()

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / bytesPerMB,
			MemoryTotalMB: float64(memStats.TotalAlloc) / bytesPerMB,
			NumGC:         memStats.NumGC,
		},
		MQTT: MQTTMetrics{
			Connected:  s.session.IsConnected(),
			Session:    string(s.session.State()),
			Reconnects: stats.Reconnects,
			Spurious:   stats.Spurious,
		},
		Messages: MessageMetrics{
			Received: stats.Received,
			Written:  stats.Written,
			Failed:   stats.Failed,
		},
	}

	writeJSON(w, http.StatusOK, metrics)
}

// Package influxdb provides InfluxDB connectivity for the mqttlog InfluxDB sink.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, per-message point writing, and health monitoring.
//
// # Usage
//
//	cfg := config.InfluxDBSinkConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "mqttlog",
//	    Bucket: "messages",
//	}
//
//	client, err := influxdb.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.WriteMessage(ctx, "mqtt_messages", "sensors/temp", "21.5", time.Now())
//
// # Error Handling
//
// Writes use the blocking write API, so every write reports its own error.
// This keeps one point per received message and lets the caller decide
// whether a failed write is fatal.
package influxdb

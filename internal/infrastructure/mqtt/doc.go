// Package mqtt provides the broker client capability for mqttlog.
//
// This package manages:
//   - Building connection options (URI, client ID, credentials, keepalive,
//     persistent session)
//   - Single-attempt Connect and Reconnect, reporting whether the broker
//     resumed a persisted session
//   - Subscribe/Unsubscribe with topic filter validation
//   - A consumption channel carrying received messages and disconnect signals
//   - Optional retained online/offline status with Last Will and Testament
//
// # Architecture
//
// paho.mqtt.golang runs its own network goroutines. Every publish that
// reaches the client (including messages replayed by a resumed session)
// and every connection loss is converted to an Item and pushed onto one
// buffered channel, preserving arrival order:
//
//	paho router ──► Message{Topic, Payload} ──┐
//	conn lost   ──► Disconnect{Err}         ──┴──► <-chan Item ──► consumer
//
// Automatic reconnection in paho is disabled. The session manager decides
// when and how often to call Reconnect.
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS=true) for brokers outside the host
//   - Credentials are validated against the broker ACL
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.NewClient(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	items := client.StartConsuming()
//
//	resp, err := client.Connect()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !resp.SessionPresent {
//	    client.Subscribe("sensors/#", 1)
//	}
//
//	for item := range items {
//	    switch it := item.(type) {
//	    case mqtt.Message:
//	        fmt.Printf("%s = %s\n", it.Topic, it.Payload)
//	    case mqtt.Disconnect:
//	        // reconnect policy
//	    }
//	}
package mqtt

package mqtt

// consumeBufferSize is the capacity of the consumption channel.
// When full, paho's router blocks, which in turn delays PUBACKs to the broker.
const consumeBufferSize = 64

// Item is a value delivered on the consumption channel.
//
// It is either a Message or a Disconnect. Consumers should handle both in
// a type switch:
//
//	switch it := item.(type) {
//	case mqtt.Message:
//	    // append it.Topic / it.Payload
//	case mqtt.Disconnect:
//	    // check IsConnected, maybe reconnect
//	}
type Item interface {
	isItem()
}

// Message is a publish received from the broker.
type Message struct {
	Topic     string
	Payload   []byte
	QoS       byte
	Retained  bool
	Duplicate bool
}

// Disconnect signals that the transport dropped the session.
// Err carries the reason reported by the transport, if any.
type Disconnect struct {
	Err error
}

func (Message) isItem()    {}
func (Disconnect) isItem() {}

// StartConsuming returns the channel on which received messages and
// disconnect signals are delivered, in arrival order.
//
// Call it before Connect so that messages queued by a persisted session
// are not lost. Calling it again returns the same channel. The channel is
// closed by StopConsuming.
func (c *Client) StartConsuming() <-chan Item {
	return c.items
}

// StopConsuming closes the consumption channel.
//
// Deliveries racing with the close are dropped rather than panicking.
// Safe to call more than once.
func (c *Client) StopConsuming() {
	c.stopOnce.Do(func() {
		close(c.stop)

		// Wait for in-flight deliveries to observe stop before closing.
		c.consumeMu.Lock()
		c.stopped = true
		close(c.items)
		c.consumeMu.Unlock()
	})
}

// deliver pushes an item onto the consumption channel.
//
// It blocks while the channel is full, unless consumption is stopped.
func (c *Client) deliver(item Item) {
	c.consumeMu.RLock()
	defer c.consumeMu.RUnlock()

	if c.stopped {
		return
	}

	select {
	case c.items <- item:
	case <-c.stop:
	}
}

// Package consumer drives the consumption loop of the subscriber.
//
// The loop reads items from the broker client's consumption channel in
// order. Each message is turned into a sink.Record stamped with its receive
// time and appended to the sink. A disconnect signal triggers the session's
// bounded reconnect, unless the session is still connected, in which case
// the signal is spurious and ignored.
//
// The loop ends when the channel is closed, the context is cancelled, or
// the session cannot be restored.
package consumer

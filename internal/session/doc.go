// Package session manages the broker session of the subscriber.
//
// A Manager performs the initial connect and subscribe, and restores the
// session after a connection loss with a bounded retry policy: up to
// MaxAttempts single attempts, each preceded by a fixed Interval wait.
// When every attempt fails the session is terminated for good and the
// caller is expected to exit.
//
// The topic is subscribed again after a reconnect only when the broker
// did not resume a persisted session, since a resumed session keeps its
// subscriptions.
//
// State transitions:
//
//	disconnected --Connect ok--> connected --loss--> disconnected
//	disconnected --Reconnect ok--> connected
//	disconnected --Reconnect exhausted--> terminated (absorbing)
package session

package session

import "errors"

// Domain-specific errors for session operations.
var (
	// ErrConnectFailed is returned when the initial connect attempt fails.
	ErrConnectFailed = errors.New("session: connect failed")

	// ErrSubscribeFailed is returned when the topic subscription fails.
	ErrSubscribeFailed = errors.New("session: subscribe failed")

	// ErrReconnectExhausted is returned when every reconnect attempt failed.
	ErrReconnectExhausted = errors.New("session: reconnect attempts exhausted")

	// ErrTerminated is returned by Connect and Reconnect once the session
	// has been terminated.
	ErrTerminated = errors.New("session: terminated")
)

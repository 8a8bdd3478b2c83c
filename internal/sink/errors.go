package sink

import "errors"

// Domain-specific errors for sink operations.
var (
	// ErrClosed is returned by Append after Close.
	ErrClosed = errors.New("sink: closed")

	// ErrWriteFailed is returned when a record could not be stored.
	ErrWriteFailed = errors.New("sink: write failed")

	// ErrUnavailable is returned by HealthCheck when the backing store
	// cannot currently accept records.
	ErrUnavailable = errors.New("sink: unavailable")

	// ErrUnknownType is returned by Open for an unsupported sink type.
	ErrUnknownType = errors.New("sink: unknown type")

	// ErrInvalidOptions is returned when a sink cannot be constructed
	// from the supplied settings.
	ErrInvalidOptions = errors.New("sink: invalid options")
)

package sink

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// ConsoleSink prints each record as a log line to a writer, usually stdout.
type ConsoleSink struct {
	w      io.Writer
	mu     sync.Mutex
	closed bool
}

// NewConsole creates a sink writing to w. Close does not close w.
func NewConsole(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// Append writes rec as a single line.
func (s *ConsoleSink) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, err := io.WriteString(s.w, rec.Format()); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// Close marks the sink closed.
func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

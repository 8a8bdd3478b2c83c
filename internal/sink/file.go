package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// defaultFilePermissions is used when CreateIfMissing creates the log file.
const defaultFilePermissions = 0644

// FileOptions configures a FileSink.
type FileOptions struct {
	// Path is the log file. It must exist unless CreateIfMissing is set.
	Path string

	// CreateIfMissing creates an empty file at construction time.
	// Append never creates the file.
	CreateIfMissing bool

	// Perm is the mode for a file created by CreateIfMissing (default 0644).
	Perm fs.FileMode
}

// FileSink appends one line per record to a log file.
//
// The file is opened in append mode for each record and closed before
// Append returns. No handle is held between records, so the file can be
// rotated or truncated externally. If the file is removed, Append fails
// until it is recreated.
//
// Thread Safety:
//   - All methods are safe for concurrent use; writes are serialised.
type FileSink struct {
	path   string
	mu     sync.Mutex
	closed bool
}

// NewFile creates a file sink.
//
// Parameters:
//   - opts: File path and creation behaviour
//
// Returns:
//   - *FileSink: Sink ready for Append
//   - error: ErrInvalidOptions if the path is empty or the file cannot be created
func NewFile(opts FileOptions) (*FileSink, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: file path is required", ErrInvalidOptions)
	}

	if opts.CreateIfMissing {
		perm := opts.Perm
		if perm == 0 {
			perm = defaultFilePermissions
		}
		f, err := os.OpenFile(opts.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, perm)
		if err != nil {
			return nil, fmt.Errorf("%w: creating %s: %w", ErrInvalidOptions, opts.Path, err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("%w: creating %s: %w", ErrInvalidOptions, opts.Path, err)
		}
	}

	return &FileSink{path: opts.Path}, nil
}

// Path returns the log file path.
func (s *FileSink) Path() string {
	return s.path
}

// Append writes rec as a single line at the end of the file.
//
// Returns:
//   - error: ErrClosed after Close, otherwise a wrapped ErrWriteFailed
//     (errors.Is(err, fs.ErrNotExist) when the file is missing)
func (s *FileSink) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrWriteFailed, s.path, err)
	}

	_, writeErr := f.WriteString(rec.Format())
	closeErr := f.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, s.path, err)
	}

	return nil
}

// HealthCheck verifies the log file exists and is a regular file.
//
// Returns:
//   - error: ErrClosed after Close, otherwise a wrapped ErrUnavailable
func (s *FileSink) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrUnavailable, s.path)
	}
	return nil
}

// Close marks the sink closed. There is no open handle to release.
func (s *FileSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

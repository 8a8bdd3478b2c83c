package sink

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// fieldSeparator separates timestamp, topic and payload in a log line.
const fieldSeparator = ";"

// Sink stores records in arrival order.
//
// Append is called once per received message. An error means the record
// was not stored; callers decide whether to continue.
type Sink interface {
	Append(ctx context.Context, rec Record) error
	Close() error
}

// HealthChecker is implemented by sinks whose backing store can become
// unavailable while the process runs.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Check reports whether s can currently store records. Sinks without a
// health hook are always healthy.
func Check(ctx context.Context, s Sink) error {
	if hc, ok := s.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// Record is one received message as stored by a sink.
type Record struct {
	// Time is when the message was received, not when it was published.
	Time time.Time

	Topic   string
	Payload []byte
}

// Text returns the payload as text. Each maximal subpart of an ill-formed
// UTF-8 sequence is replaced by a single U+FFFD: a truncated multi-byte
// sequence yields one replacement, a stray byte yields one per byte.
func (r Record) Text() string {
	if utf8.Valid(r.Payload) {
		return string(r.Payload)
	}

	var b strings.Builder
	b.Grow(len(r.Payload))
	p := r.Payload
	for len(p) > 0 {
		c, size := utf8.DecodeRune(p)
		if c == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
			p = p[maximalSubpart(p):]
			continue
		}
		b.Write(p[:size])
		p = p[size:]
	}
	return b.String()
}

// maximalSubpart returns how many bytes at the start of p form the longest
// prefix of a well-formed UTF-8 sequence. p must start with an ill-formed
// or truncated sequence, so the result is at least 1 and shorter than the
// sequence its lead byte announces.
func maximalSubpart(p []byte) int {
	lo, hi := byte(0x80), byte(0xBF)

	var trailing int
	switch b := p[0]; {
	case b >= 0xC2 && b <= 0xDF:
		trailing = 1
	case b == 0xE0:
		trailing, lo = 2, 0xA0
	case b == 0xED:
		trailing, hi = 2, 0x9F
	case b >= 0xE1 && b <= 0xEF:
		trailing = 2
	case b == 0xF0:
		trailing, lo = 3, 0x90
	case b == 0xF4:
		trailing, hi = 3, 0x8F
	case b >= 0xF1 && b <= 0xF3:
		trailing = 3
	default:
		return 1
	}

	n := 1
	for n <= trailing && n < len(p) && p[n] >= lo && p[n] <= hi {
		lo, hi = 0x80, 0xBF
		n++
	}
	return n
}

// Timestamp returns the receive time as RFC 3339 in UTC.
func (r Record) Timestamp() string {
	return r.Time.UTC().Format(time.RFC3339Nano)
}

// Format returns the log line for the record, including the trailing newline:
//
//	<timestamp>;<topic>;<payload>\n
func (r Record) Format() string {
	var b strings.Builder
	b.Grow(len(time.RFC3339Nano) + len(r.Topic) + len(r.Payload) + 3)
	b.WriteString(r.Timestamp())
	b.WriteString(fieldSeparator)
	b.WriteString(r.Topic)
	b.WriteString(fieldSeparator)
	b.WriteString(r.Text())
	b.WriteByte('\n')
	return b.String()
}

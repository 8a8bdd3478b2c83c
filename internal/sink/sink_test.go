package sink

import (
	"testing"
	"time"
)

func TestRecordFormat(t *testing.T) {
	ts := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{
			name: "plain payload",
			rec:  Record{Time: ts, Topic: "sensors/temp", Payload: []byte("21.5")},
			want: "2026-10-18T12:00:00Z;sensors/temp;21.5\n",
		},
		{
			name: "empty payload",
			rec:  Record{Time: ts, Topic: "sensors/temp", Payload: nil},
			want: "2026-10-18T12:00:00Z;sensors/temp;\n",
		},
		{
			name: "fractional seconds",
			rec:  Record{Time: ts.Add(123456789 * time.Nanosecond), Topic: "a", Payload: []byte("b")},
			want: "2026-10-18T12:00:00.123456789Z;a;b\n",
		},
		{
			name: "converted to UTC",
			rec: Record{
				Time:    time.Date(2026, 10, 18, 14, 0, 0, 0, time.FixedZone("CEST", 2*60*60)),
				Topic:   "a",
				Payload: []byte("b"),
			},
			want: "2026-10-18T12:00:00Z;a;b\n",
		},
		{
			name: "separator and newline not escaped",
			rec:  Record{Time: ts, Topic: "a/b", Payload: []byte("x;y\nz")},
			want: "2026-10-18T12:00:00Z;a/b;x;y\nz\n",
		},
		{
			name: "stray bytes replaced one each",
			rec:  Record{Time: ts, Topic: "raw", Payload: []byte{'o', 'k', 0xff, 0xfe, '!'}},
			want: "2026-10-18T12:00:00Z;raw;ok��!\n",
		},
		{
			name: "multibyte UTF-8 kept",
			rec:  Record{Time: ts, Topic: "unicode", Payload: []byte("21.5°C")},
			want: "2026-10-18T12:00:00Z;unicode;21.5°C\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Format(); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordText_IllFormedUTF8(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    string
	}{
		{"valid", []byte("a€b"), "a€b"},
		{"truncated three-byte sequence", []byte("a\xE2\x82b"), "a\uFFFDb"},
		{"truncated at end", []byte("a\xE2\x82"), "a\uFFFD"},
		{"truncated four-byte sequence", []byte("\xF0\x9F\x98!"), "\uFFFD!"},
		{"lone continuation bytes", []byte("\x80\x80"), "\uFFFD\uFFFD"},
		{"overlong lead byte", []byte("\xC0\xAF"), "\uFFFD\uFFFD"},
		{"surrogate", []byte("\xED\xA0\x80"), "\uFFFD\uFFFD\uFFFD"},
		{"above U+10FFFF", []byte("\xF4\x90\x80\x80"), "\uFFFD\uFFFD\uFFFD\uFFFD"},
		{"lead byte then new sequence", []byte("\xE2€"), "\uFFFD€"},
		{"encoded replacement character kept", []byte("\uFFFD\xff"), "\uFFFD\uFFFD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Record{Payload: tt.payload}).Text(); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.payload, got, tt.want)
			}
		})
	}
}

func TestRecordTimestamp_Parses(t *testing.T) {
	ts := time.Date(2026, 10, 18, 12, 30, 15, 500, time.UTC)
	rec := Record{Time: ts}

	parsed, err := time.Parse(time.RFC3339Nano, rec.Timestamp())
	if err != nil {
		t.Fatalf("time.Parse(%q) error = %v", rec.Timestamp(), err)
	}
	if !parsed.Equal(ts) {
		t.Errorf("parsed = %v, want %v", parsed, ts)
	}
}

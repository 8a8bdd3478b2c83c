// Package sink stores received MQTT messages.
//
// Every message becomes a Record. The default FileSink appends one line per
// record to a log file, opening and closing the file for each write so that
// external tools may rotate or truncate it between messages:
//
//	2026-10-18T12:00:00.123456789Z;sensors/temp;21.5
//
// The same line format is used by the ConsoleSink. The SQLiteSink and
// InfluxSink store the same three values as a row or a point.
//
// Topics and payloads are written verbatim: a payload containing ';' or a
// newline produces a line that cannot be split unambiguously.
package sink

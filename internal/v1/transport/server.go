package transport

import (
	"bufio"
	"io"

	"github.com/parlor-chat/parlor/internal/v1/metrics"
	"github.com/parlor-chat/parlor/internal/v1/wire"
)

// CommandReader is the server-side inbound half: a lazy sequence of decoded
// commands read from a client stream.
type CommandReader struct {
	s *bufio.Scanner
}

// NewCommandReader wraps the read half of a client connection.
func NewCommandReader(r io.Reader) *CommandReader {
	return &CommandReader{s: newRecordScanner(r)}
}

// Next returns the next decoded command. A malformed or unknown-tag record
// yields a *wire.DecodeError without terminating the sequence; the caller may
// keep reading. io.EOF means the peer closed the stream.
func (r *CommandReader) Next() (wire.Command, error) {
	record, err := nextRecord(r.s)
	if err != nil {
		return nil, err
	}

	cmd, err := wire.DecodeCommand(record)
	if err != nil {
		metrics.TransportDecodeErrors.Inc()
		return nil, err
	}
	return cmd, nil
}

// EventWriter is the server-side outbound half. It is owned by a single
// writer goroutine; writes must not be raced.
type EventWriter struct {
	w io.Writer
}

// NewEventWriter wraps the write half of a client connection.
func NewEventWriter(w io.Writer) *EventWriter {
	return &EventWriter{w: w}
}

// Write serializes the event and sends it as one framed record. A returned
// *WriteError is fatal to the session.
func (w *EventWriter) Write(ev wire.Event) error {
	encoded, err := wire.EncodeEvent(ev)
	if err != nil {
		return err
	}
	if err := writeRecord(w.w, encoded); err != nil {
		return err
	}
	metrics.EventsWritten.WithLabelValues(wire.EventTag(ev)).Inc()
	return nil
}

package transport

import (
	"bufio"
	"io"

	"github.com/parlor-chat/parlor/internal/v1/wire"
)

// EventReader is the client-side inbound half: a lazy sequence of decoded
// events read from the server stream. Used by the load generator and tests.
type EventReader struct {
	s *bufio.Scanner
}

// NewEventReader wraps the read half of a server connection.
func NewEventReader(r io.Reader) *EventReader {
	return &EventReader{s: newRecordScanner(r)}
}

// Next returns the next decoded event. A malformed or unknown-tag record
// yields a *wire.DecodeError without terminating the sequence. io.EOF means
// the server closed the stream.
func (r *EventReader) Next() (wire.Event, error) {
	record, err := nextRecord(r.s)
	if err != nil {
		return nil, err
	}
	return wire.DecodeEvent(record)
}

// CommandWriter is the client-side outbound half. It is owned by a single
// writer goroutine; writes must not be raced.
type CommandWriter struct {
	w io.Writer
}

// NewCommandWriter wraps the write half of a server connection.
func NewCommandWriter(w io.Writer) *CommandWriter {
	return &CommandWriter{w: w}
}

// Write serializes the command and sends it as one framed record.
func (w *CommandWriter) Write(cmd wire.Command) error {
	encoded, err := wire.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	return writeRecord(w.w, encoded)
}

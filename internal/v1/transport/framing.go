// Package transport frames wire records onto a byte stream. A record is the
// UTF-8 JSON encoding of a command or event terminated by "\r\n". Reads accept
// a bare "\n" terminator as well; writes always emit the full two-byte
// sequence in a single Write call so record boundaries survive partial writes.
//
// The server side of a connection reads commands and writes events; the client
// side reads events and writes commands. Both directions live here so the load
// generator and end-to-end tests can speak the protocol with the same code.
package transport

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

const (
	// maxRecordBytes bounds a single framed record. A peer that exceeds it is
	// treated as broken and its stream terminates with a read error.
	maxRecordBytes = 1024 * 1024

	initialScanBuffer = 64 * 1024
)

var terminator = []byte("\r\n")

// WriteError reports a failed write of a record to the underlying stream.
// It is fatal to the session that observes it.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("transport: write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// newRecordScanner returns a line scanner over the stream with the record
// size cap applied. bufio.ScanLines strips the optional "\r" before "\n".
func newRecordScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, initialScanBuffer), maxRecordBytes)
	s.Split(bufio.ScanLines)
	return s
}

// writeRecord appends the terminator and writes the whole record in one call.
// Callers must not race writes to the same stream.
func writeRecord(w io.Writer, encoded []byte) error {
	record := make([]byte, 0, len(encoded)+len(terminator))
	record = append(record, encoded...)
	record = append(record, terminator...)

	if _, err := w.Write(record); err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

// nextRecord advances the scanner to the next non-empty record.
// It returns io.EOF when the peer closes the stream cleanly.
func nextRecord(s *bufio.Scanner) ([]byte, error) {
	for {
		if !s.Scan() {
			if err := s.Err(); err != nil {
				return nil, fmt.Errorf("transport: read failed: %w", err)
			}
			return nil, io.EOF
		}
		line := bytes.TrimSpace(s.Bytes())
		if len(line) > 0 {
			return line, nil
		}
	}
}

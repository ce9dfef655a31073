package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrWriterClosed is returned by Write after Close.
var ErrWriterClosed = errors.New("message writer is closed")

// frameTerminator ends every outbound envelope.
var frameTerminator = []byte("\r\n")

// MessageWriter serializes envelopes onto an output stream, one per line.
// Each Write is a single call on the underlying writer, and concurrent Writes
// never interleave.
type MessageWriter struct {
	mu     sync.Mutex
	out    io.Writer
	closed bool
}

// NewMessageWriter returns a MessageWriter writing to out.
func NewMessageWriter(out io.Writer) *MessageWriter {
	return &MessageWriter{out: out}
}

// Write encodes v and writes it followed by the line terminator.
func (w *MessageWriter) Write(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	data = append(data, frameTerminator...)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	if _, err := w.out.Write(data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close stops all further writes. It does not close the underlying writer.
func (w *MessageWriter) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

// Closed reports whether Close has been called.
func (w *MessageWriter) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

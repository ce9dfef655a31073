package mcp

import "bytes"

const lineTerminator = '\n'

// FrameReader splits a byte stream into newline-delimited frames. Bytes after
// the last terminator stay buffered until a later Feed completes the line.
type FrameReader struct {
	buf []byte
	// maxBuffered bounds an unterminated line; zero means unbounded.
	maxBuffered int
	discarding  bool
	// Overflowed counts lines dropped for exceeding maxBuffered.
	Overflowed int
}

// NewFrameReader returns a FrameReader that drops any line longer than
// maxBuffered bytes, whether or not it arrived in a single chunk. A maxBuffered of zero disables the limit.
func NewFrameReader(maxBuffered int) *FrameReader {
	return &FrameReader{maxBuffered: maxBuffered}
}

// Feed appends chunk to the buffer and returns every complete, non-empty
// frame it now contains, trimmed of surrounding whitespace, in arrival order.
func (r *FrameReader) Feed(chunk []byte) [][]byte {
	r.buf = append(r.buf, chunk...)

	var frames [][]byte
	for {
		idx := bytes.IndexByte(r.buf, lineTerminator)
		if idx < 0 {
			break
		}

		raw := r.buf[:idx]
		skip := r.discarding
		r.discarding = false
		if !skip && r.maxBuffered > 0 && len(raw) > r.maxBuffered {
			r.Overflowed++
			skip = true
		}

		line := bytes.TrimSpace(raw)
		if !skip && len(line) > 0 {
			frame := make([]byte, len(line))
			copy(frame, line)
			frames = append(frames, frame)
		}
		r.buf = r.buf[idx+1:]
	}

	if r.maxBuffered > 0 && len(r.buf) > r.maxBuffered {
		r.buf = nil
		if !r.discarding {
			r.Overflowed++
		}
		r.discarding = true
	}

	if len(r.buf) == 0 {
		r.buf = nil
	}
	return frames
}

// Pending returns the number of buffered bytes not yet forming a frame.
func (r *FrameReader) Pending() int {
	return len(r.buf)
}

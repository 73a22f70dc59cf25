// Package parser implements the character-level CSV state machine.
// It turns a stream of code points into logical rows without materializing
// the whole input, exposing each field as a slice into a pooled row buffer.
package parser

import (
	"bufio"
	"context"
	"io"
)

// CharSource supplies decoded characters into a caller-provided buffer.
// It returns how many characters were read; 0 together with io.EOF means
// end of stream.
type CharSource interface {
	ReadChars(p []rune) (n int, err error)
}

// ContextCharSource is a CharSource that honors cancellation.
// Cancellation is checked once per refill, before any characters are read.
type ContextCharSource interface {
	CharSource
	ReadCharsContext(ctx context.Context, p []rune) (n int, err error)
}

// CharSink accepts a run of characters. Flush forces buffered output
// through to the underlying stream.
type CharSink interface {
	WriteChars(s string) error
	Flush() error
}

// ContextCharSink is a CharSink that honors cancellation.
// Cancellation is checked once per write and once per flush.
type ContextCharSink interface {
	CharSink
	WriteCharsContext(ctx context.Context, s string) error
	FlushContext(ctx context.Context) error
}

// readerSource adapts an io.Reader into a CharSource by decoding UTF-8.
type readerSource struct {
	br *bufio.Reader
}

// NewReaderSource creates a CharSource reading UTF-8 from r.
// bufSize is a hint for the underlying byte buffer.
func NewReaderSource(r io.Reader, bufSize int) ContextCharSource {
	if bufSize < minBufferSize {
		bufSize = minBufferSize
	}
	return &readerSource{br: bufio.NewReaderSize(r, bufSize)}
}

// ReadChars implements CharSource.
func (s *readerSource) ReadChars(p []rune) (int, error) {
	n := 0
	for n < len(p) {
		c, _, err := s.br.ReadRune()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}
		p[n] = c
		n++
		// Return early once the buffered bytes are drained so the caller
		// is not blocked waiting to fill the whole slice.
		if s.br.Buffered() == 0 {
			break
		}
	}
	return n, nil
}

// ReadCharsContext implements ContextCharSource.
func (s *readerSource) ReadCharsContext(ctx context.Context, p []rune) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.ReadChars(p)
}

// writerSink adapts an io.Writer into a CharSink.
type writerSink struct {
	bw *bufio.Writer
}

// NewWriterSink creates a CharSink writing UTF-8 to w.
// bufSize is a hint for the underlying byte buffer.
func NewWriterSink(w io.Writer, bufSize int) ContextCharSink {
	if bufSize < minBufferSize {
		bufSize = minBufferSize
	}
	return &writerSink{bw: bufio.NewWriterSize(w, bufSize)}
}

// WriteChars implements CharSink.
func (s *writerSink) WriteChars(str string) error {
	_, err := s.bw.WriteString(str)
	return err
}

// Flush implements CharSink.
func (s *writerSink) Flush() error {
	return s.bw.Flush()
}

// WriteCharsContext implements ContextCharSink.
func (s *writerSink) WriteCharsContext(ctx context.Context, str string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.WriteChars(str)
}

// FlushContext implements ContextCharSink.
func (s *writerSink) FlushContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Flush()
}

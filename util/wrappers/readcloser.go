// Package wrappers shields stdin and stdout from consumers that close
// their streams: closing a wrapper marks it dead without touching the
// wrapped file.
package wrappers

import (
	"errors"
	"io"
)

var ErrClosed = errors.New("closed")

type ReaderWrapper struct {
	isClosed bool
	wrapped  io.Reader
}

func NewReaderWrapper(wraps io.Reader) *ReaderWrapper {
	return &ReaderWrapper{wrapped: wraps}
}

// Close implements repl.ReadCloser.
func (r *ReaderWrapper) Close() error {
	r.isClosed = true
	return nil
}

// Read implements repl.ReadCloser.
func (r *ReaderWrapper) Read(p []byte) (n int, err error) {
	if r.isClosed {
		return 0, ErrClosed
	}
	return r.wrapped.Read(p)
}

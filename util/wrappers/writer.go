package wrappers

import (
	"io"
)

type WriterWrapper struct {
	isClosed bool
	wrapped  io.Writer
}

func NewWriterWrapper(wraps io.Writer) *WriterWrapper {
	return &WriterWrapper{wrapped: wraps}
}

func (w *WriterWrapper) Close() error {
	w.isClosed = true
	return nil
}

func (w *WriterWrapper) Write(p []byte) (n int, err error) {
	if w.isClosed {
		return 0, ErrClosed
	}
	return w.wrapped.Write(p)
}

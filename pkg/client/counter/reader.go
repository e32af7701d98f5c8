// Package counter provides a byte-counting wrapper for request and response bodies.
// The counts feed the trace hooks, see the trace package.
package counter

import (
	"errors"
	"io"
)

// OnClose callback is invoked once, when the wrapped reader is closed.
// It receives the total bytes count and the first error, if any.
type OnClose func(bytes int64, err error)

// ReadCloser counts bytes read through the wrapped io.ReadCloser.
type ReadCloser struct {
	wrapped io.ReadCloser
	onClose OnClose
	bytes   int64
	readErr error
}

// NewReadCloser wraps the reader, the onClose callback is optional.
func NewReadCloser(wrapped io.ReadCloser, onClose OnClose) *ReadCloser {
	return &ReadCloser{wrapped: wrapped, onClose: onClose}
}

// Bytes method returns the count of bytes read so far.
func (w *ReadCloser) Bytes() int64 {
	return w.bytes
}

func (w *ReadCloser) Read(b []byte) (int, error) {
	n, err := w.wrapped.Read(b)
	w.bytes += int64(n)
	w.readErr = err
	return n, err
}

func (w *ReadCloser) Close() error {
	closeErr := w.wrapped.Close()
	if w.onClose != nil {
		// A read error is usually more useful than a close error, report it first
		var onCloseErr error
		if !errors.Is(w.readErr, io.EOF) {
			onCloseErr = w.readErr
		} else if closeErr != nil {
			onCloseErr = closeErr
		}
		w.onClose(w.bytes, onCloseErr)
	}
	return closeErr
}

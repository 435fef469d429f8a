//go:build !unix

package netpoll

import "time"

// Wait is not available on this platform.
func Wait(fdm FDMap, timeout time.Duration) (int, error) {
	fdm.clearGot()
	return 0, ErrUnsupported
}

// Waker is not available on this platform.
type Waker struct{}

// NewWaker always fails on this platform.
func NewWaker() (*Waker, error) { return nil, ErrUnsupported }

// FD returns -1.
func (w *Waker) FD() int { return -1 }

// Wake is a no-op.
func (w *Waker) Wake() {}

// Drain is a no-op.
func (w *Waker) Drain() {}

// Close is a no-op.
func (w *Waker) Close() error { return nil }

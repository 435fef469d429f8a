//go:build unix

package netpoll

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Wait blocks until a registered descriptor is ready or timeout elapses, and
// records the reported events in fdm. A negative timeout waits indefinitely.
// It returns the number of ready descriptors. An interrupted wait returns 0.
func Wait(fdm FDMap, timeout time.Duration) (int, error) {
	fdm.clearGot()
	fds := make([]unix.PollFd, 0, len(fdm))
	for fd, in := range fdm {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: toPoll(in.Want)})
	}

	ms := -1
	if timeout >= 0 {
		ms = int((timeout + time.Millisecond - 1) / time.Millisecond)
	}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, err
	}
	for _, p := range fds {
		if p.Revents != 0 {
			fdm[int(p.Fd)].Got = fromPoll(p.Revents)
		}
	}
	return n, nil
}

func toPoll(ev Events) int16 {
	var out int16
	if ev&Readable != 0 {
		out |= unix.POLLIN
	}
	if ev&Writable != 0 {
		out |= unix.POLLOUT
	}
	return out
}

func fromPoll(rev int16) Events {
	var out Events
	if rev&unix.POLLIN != 0 {
		out |= Readable
	}
	if rev&unix.POLLOUT != 0 {
		out |= Writable
	}
	if rev&unix.POLLHUP != 0 {
		out |= Hangup
	}
	if rev&(unix.POLLERR|unix.POLLNVAL) != 0 {
		out |= Failed
	}
	return out
}

// Waker is a self-pipe: goroutines that produce results call Wake, the
// poller registers FD for reading, and the consumer calls Drain.
type Waker struct {
	mu     sync.Mutex
	r, w   int
	closed bool
}

// NewWaker creates a non-blocking pipe.
func NewWaker() (*Waker, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, err
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, err
		}
	}
	return &Waker{r: p[0], w: p[1]}, nil
}

// FD returns the descriptor to register for Readable, or -1 once closed.
func (w *Waker) FD() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return -1
	}
	return w.r
}

// Wake makes FD readable. A full pipe already signals readiness, so
// EAGAIN is ignored.
func (w *Waker) Wake() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	_, _ = unix.Write(w.w, []byte{1})
}

// Drain consumes pending wake-ups.
func (w *Waker) Drain() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	var buf [64]byte
	for {
		n, err := unix.Read(w.r, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close releases both ends. It is safe to call more than once.
func (w *Waker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	err := unix.Close(w.r)
	if cerr := unix.Close(w.w); err == nil {
		err = cerr
	}
	return err
}

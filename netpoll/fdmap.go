package netpoll

import "errors"

// Events is a bit set of readiness conditions.
type Events uint16

const (
	// Readable means the descriptor can be read without blocking.
	Readable Events = 1 << iota
	// Writable means the descriptor can be written without blocking.
	Writable
	// Hangup means the peer closed its end.
	Hangup
	// Failed means the descriptor is in an error state.
	Failed
)

// ErrUnsupported is returned on platforms without poll(2).
var ErrUnsupported = errors.New("netpoll: not supported on this platform")

// Interest is one descriptor's requested and returned events.
type Interest struct {
	Want Events
	Got  Events
}

// FDMap maps a descriptor to its interest. The zero value is not usable;
// create one with NewFDMap.
type FDMap map[int]*Interest

// NewFDMap returns an empty map.
func NewFDMap() FDMap {
	return make(FDMap)
}

// Set adds ev to the interest registered for fd.
func (m FDMap) Set(fd int, ev Events) {
	if fd < 0 {
		return
	}
	in, ok := m[fd]
	if !ok {
		in = &Interest{}
		m[fd] = in
	}
	in.Want |= ev
}

// Ready returns the events Wait reported for fd.
func (m FDMap) Ready(fd int) Events {
	if in, ok := m[fd]; ok {
		return in.Got
	}
	return 0
}

// Has reports whether any of ev were reported for fd.
func (m FDMap) Has(fd int, ev Events) bool {
	return m.Ready(fd)&ev != 0
}

// Reset drops every registration so the map can be reused for the next cycle.
func (m FDMap) Reset() {
	for fd := range m {
		delete(m, fd)
	}
}

func (m FDMap) clearGot() {
	for _, in := range m {
		in.Got = 0
	}
}

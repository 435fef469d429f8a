package https

import (
	"container/list"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/httpsmgr/message"
	"github.com/kbukum/httpsmgr/observability"
	"github.com/kbukum/httpsmgr/transport"
)

// TransactionTimeout is the fixed budget from creation to outcome.
const TransactionTimeout = 300 * time.Second

// Sentinel outcomes synthesized by the manager.
const (
	// StatusDispatchFailed means no connection was attempted: bad target or
	// the socket could not be opened.
	StatusDispatchFailed = 503
	// StatusUnknownOutcome means the connection was lost or timed out while
	// request bytes were still unsent. The peer may or may not have acted.
	StatusUnknownOutcome = 501
	// StatusFailed means the response was malformed, empty or unsuccessful,
	// or the connection was lost after the request was sent.
	StatusFailed = 500
)

// State is a transaction's position in its lifecycle.
type State int32

const (
	StatePending State = iota
	StateActive
	StateCompleted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Transaction is one outbound request and its eventual response.
//
// Accessors are safe to call from any goroutine. Outcome is 0 until the
// transaction completes and never changes afterwards.
type Transaction struct {
	id      string
	url     string
	host    string
	created time.Time
	request *message.Message
	owner   *Manager

	finished atomic.Pointer[time.Time]
	outcome  atomic.Int32
	state    atomic.Int32
	response atomic.Pointer[message.Message]
	// closeQueued records a close requested while the hook held the lock.
	closeQueued atomic.Bool

	// Guarded by owner.mu.
	socket *transport.Socket
	elem   *list.Element
	list   *list.List
	trace  *observability.TransactionTrace
}

func newTransaction(owner *Manager, rawURL, host string, req *message.Message, now time.Time) *Transaction {
	return &Transaction{
		id:      uuid.NewString(),
		url:     rawURL,
		host:    host,
		created: now,
		request: req,
		owner:   owner,
	}
}

// ID returns the transaction's unique identifier.
func (t *Transaction) ID() string { return t.id }

// URL returns the dispatch target as given.
func (t *Transaction) URL() string { return t.url }

// Host returns the host:port the connection was opened to. It is empty
// when the target could not be parsed.
func (t *Transaction) Host() string { return t.host }

// Created returns the creation time.
func (t *Transaction) Created() time.Time { return t.created }

// Request returns the message that was sent.
func (t *Transaction) Request() *message.Message { return t.request }

// Outcome returns the terminal status code, or 0 while pending.
func (t *Transaction) Outcome() int { return int(t.outcome.Load()) }

// Done reports whether the outcome is known.
func (t *Transaction) Done() bool { return t.Outcome() != 0 }

// State returns the lifecycle state.
func (t *Transaction) State() State { return State(t.state.Load()) }

// Response returns the parsed response, or nil if none was received.
func (t *Transaction) Response() *message.Message { return t.response.Load() }

// Finished returns the time the outcome became known, or the zero time.
func (t *Transaction) Finished() time.Time {
	if f := t.finished.Load(); f != nil {
		return *f
	}
	return time.Time{}
}

// Elapsed returns the time from creation to completion, or 0 while pending.
func (t *Transaction) Elapsed() time.Duration {
	if f := t.finished.Load(); f != nil {
		return f.Sub(t.created)
	}
	return 0
}

// Close releases the transaction through its manager. It is the one
// Manager call a ResponseHook may make; see Manager.CloseTransaction.
func (t *Transaction) Close() {
	if t == nil || t.owner == nil {
		return
	}
	t.owner.CloseTransaction(t)
}

func (t *Transaction) markFinished(at time.Time) {
	t.finished.CompareAndSwap(nil, &at)
}

// complete records code as the outcome. It reports false if an outcome
// was already set.
func (t *Transaction) complete(code int, at time.Time) bool {
	if code == 0 || !t.outcome.CompareAndSwap(0, int32(code)) {
		return false
	}
	t.markFinished(at)
	return true
}

func (t *Transaction) statusLine() string {
	if r := t.Response(); r != nil {
		return r.MethodLine
	}
	return ""
}

var (
	errClosed         = stderrors.New("manager closed")
	errIdentityClosed = stderrors.New("tls identity closed")
)

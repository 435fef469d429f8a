package https

import (
	"container/list"
	"crypto/tls"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/httpsmgr/errors"
	"github.com/kbukum/httpsmgr/logger"
	"github.com/kbukum/httpsmgr/netpoll"
	"github.com/kbukum/httpsmgr/observability"
	"github.com/kbukum/httpsmgr/security"
	"github.com/kbukum/httpsmgr/transport"
)

const meterName = "github.com/kbukum/httpsmgr/https"

// SocketLayer is the non-blocking connection layer a Manager drives.
// transport.Manager implements it.
type SocketLayer interface {
	// Open starts connecting to host. It fails only if connecting cannot
	// begin at all, and never blocks.
	Open(host string, tlsConfig *tls.Config) (*transport.Socket, error)
	Close(s *transport.Socket)
	PrePoll(fdm netpoll.FDMap)
	PostPoll(fdm netpoll.FDMap)
}

// shutdowner is implemented by layers the manager creates itself.
type shutdowner interface {
	Shutdown() error
}

// Manager tracks outbound transactions in two lists, active and completed,
// and advances the active ones on every PostPoll.
type Manager struct {
	name     string
	clock    func() time.Time
	hook     ResponseHook
	inHook   atomic.Pointer[Transaction]
	log      *logger.Logger
	metrics  *observability.TransactionMetrics
	identity *security.Identity

	mu        sync.Mutex
	layer     SocketLayer
	ownsLayer bool
	active    *list.List
	completed *list.List
	closed    bool
}

// New creates a Manager. Failing to build the TLS identity is a contract
// violation: the returned error has code CONTRACT_VIOLATION and the caller
// should treat it as fatal.
func New(cfg Config, opts ...Option) (*Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{clock: time.Now, hook: StatusHook{}}
	for _, opt := range opts {
		opt(&o)
	}
	log, layerLog := logger.Get(cfg.Name), logger.Get("transport")
	if o.log != nil {
		log, layerLog = o.log.WithComponent(cfg.Name), o.log.WithComponent("transport")
	}

	identity := o.identity
	if identity == nil {
		var err error
		if identity, err = cfg.TLS.Build(); err != nil {
			return nil, errors.ContractViolation("https: unable to build TLS identity").WithCause(err)
		}
	}

	metrics := o.metrics
	if metrics == nil && cfg.Metrics {
		var err error
		if metrics, err = observability.NewTransactionMetrics(observability.Meter(meterName)); err != nil {
			identity.Close()
			return nil, errors.Internal(err)
		}
	}

	layer, owns := o.layer, false
	if layer == nil {
		tm, err := transport.NewManager(transport.Config{
			DialTimeout:    cfg.DialTimeout,
			ReadBufferSize: cfg.ReadBufferSize,
		}, layerLog)
		if err != nil {
			identity.Close()
			return nil, err
		}
		layer, owns = tm, true
	}

	m := &Manager{
		name:      cfg.Name,
		clock:     o.clock,
		hook:      o.hook,
		log:       log,
		metrics:   metrics,
		identity:  identity,
		layer:     layer,
		ownsLayer: owns,
		active:    list.New(),
		completed: list.New(),
	}
	log.Info("transaction manager ready", logger.Fields(
		"ephemeral_identity", identity.Ephemeral(),
		"metrics", metrics != nil,
	))
	return m, nil
}

// MustNew is like New but panics on error.
func MustNew(cfg Config, opts ...Option) *Manager {
	m, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Name returns the configured manager name.
func (m *Manager) Name() string { return m.name }

// ActiveCount returns the number of transactions awaiting an outcome.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active.Len()
}

// CompletedCount returns the number of completed, unclosed transactions.
func (m *Manager) CompletedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed.Len()
}

// CloseTransaction unlinks t from whichever list holds it, releases its
// socket and marks it closed. It may be called at any time, including
// before the outcome is known, and more than once. Called on the
// transaction a ResponseHook is handling, the close is queued and applied
// when the hook returns, as if it had returned Detach.
func (m *Manager) CloseTransaction(t *Transaction) {
	if t == nil {
		return
	}
	if m.inHook.Load() == t {
		t.closeQueued.Store(true)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked(t)
}

func (m *Manager) closeLocked(t *Transaction) {
	if t.owner != m || t.State() == StateClosed {
		return
	}
	if t.elem != nil {
		t.list.Remove(t.elem)
		t.elem, t.list = nil, nil
	}
	if t.socket != nil {
		m.layer.Close(t.socket)
		t.socket = nil
	}
	if !t.Done() {
		t.trace.Abandon(m.clock())
	}
	t.state.Store(int32(StateClosed))
}

// Close tears the manager down: it closes every remaining transaction,
// active first then completed, each in list order, then the connection
// layer if the manager created it, then the TLS identity. Transactions
// still present are logged as a warning since callers are expected to
// close their own. Close is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true

	if n := m.active.Len(); n > 0 {
		m.log.Warn("closing manager with active transactions", logger.Fields("count", n))
	}
	for m.active.Len() > 0 {
		m.closeLocked(m.active.Front().Value.(*Transaction))
	}
	if n := m.completed.Len(); n > 0 {
		m.log.Warn("closing manager with completed transactions", logger.Fields("count", n))
	}
	for m.completed.Len() > 0 {
		m.closeLocked(m.completed.Front().Value.(*Transaction))
	}

	var err error
	if s, ok := m.layer.(shutdowner); ok && m.ownsLayer {
		err = s.Shutdown()
	}
	m.mu.Unlock()

	m.identity.Close()
	m.log.Info("transaction manager closed")
	return err
}

// Closed reports whether Close has been called.
func (m *Manager) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// pushActive links t at the front of the active list.
func (m *Manager) pushActive(t *Transaction) {
	t.elem, t.list = m.active.PushFront(t), m.active
	t.state.Store(int32(StateActive))
}

// moveToCompleted unlinks t from the active list and appends it to the
// completed list.
func (m *Manager) moveToCompleted(t *Transaction) {
	if t.elem != nil {
		t.list.Remove(t.elem)
	}
	t.elem, t.list = m.completed.PushBack(t), m.completed
	t.state.Store(int32(StateCompleted))
}

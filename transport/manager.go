package transport

import (
	"context"
	"crypto/tls"
	"net"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/httpsmgr/errors"
	"github.com/kbukum/httpsmgr/logger"
	"github.com/kbukum/httpsmgr/netpoll"
)

// Manager owns a set of sockets and the waker they share.
type Manager struct {
	cfg    Config
	log    *logger.Logger
	dialer *net.Dialer
	waker  *netpoll.Waker

	mu      sync.Mutex
	sockets map[string]*Socket
	closed  bool
}

// NewManager creates a connection layer. log may be nil; callers tag it
// with a component name.
func NewManager(cfg Config, log *logger.Logger) (*Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	waker, err := netpoll.NewWaker()
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		cfg:     cfg,
		log:     log,
		dialer:  &net.Dialer{Timeout: cfg.DialTimeout},
		waker:   waker,
		sockets: make(map[string]*Socket),
	}, nil
}

// Open starts connecting to host ("name:port"). TLS is negotiated when
// tlsConfig is non-nil. It returns at once; failures that occur after this
// point surface as the socket's State and Err.
func (m *Manager) Open(host string, tlsConfig *tls.Config) (*Socket, error) {
	if _, port, err := net.SplitHostPort(host); err != nil || port == "" {
		return nil, apperrors.InvalidInput("host", "expected host:port, got "+host)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, apperrors.ConnectionFailed(host, net.ErrClosed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Socket{
		ID:        uuid.NewString(),
		Host:      host,
		State:     StateConnecting,
		tlsConfig: tlsConfig,
		cancel:    cancel,
		writeCh:   make(chan []byte, 1),
	}
	m.sockets[s.ID] = s
	go s.run(ctx, m)

	m.log.Debug("socket opening", logger.Fields(
		logger.FieldSocketID, s.ID,
		logger.FieldHost, host,
		"tls", tlsConfig != nil,
	))
	return s, nil
}

// Close releases s. It is safe to call with a socket already closed.
func (m *Manager) Close(s *Socket) {
	if s == nil {
		return
	}
	m.mu.Lock()
	_, ok := m.sockets[s.ID]
	delete(m.sockets, s.ID)
	m.mu.Unlock()
	if !ok {
		return
	}
	s.shutdown()
	m.log.Debug("socket closed", logger.Fields(logger.FieldSocketID, s.ID, logger.FieldHost, s.Host))
}

// PrePoll registers the shared waker for readability.
func (m *Manager) PrePoll(fdm netpoll.FDMap) {
	if fd := m.waker.FD(); fd >= 0 {
		fdm.Set(fd, netpoll.Readable)
	}
}

// PostPoll publishes everything the socket goroutines produced since the
// previous cycle and starts pending writes.
func (m *Manager) PostPoll(fdm netpoll.FDMap) {
	m.waker.Drain()

	m.mu.Lock()
	sockets := make([]*Socket, 0, len(m.sockets))
	for _, s := range m.sockets {
		sockets = append(sockets, s)
	}
	m.mu.Unlock()

	for _, s := range sockets {
		before := s.State
		s.publish()
		if s.State != before {
			fields := logger.Fields(
				logger.FieldSocketID, s.ID,
				logger.FieldHost, s.Host,
				"state", s.State.String(),
			)
			if s.Err != nil {
				m.log.WithError(s.Err).Debug("socket state changed", fields)
			} else {
				m.log.Debug("socket state changed", fields)
			}
		}
	}
}

// Len returns the number of open sockets.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sockets)
}

// Shutdown closes every socket and the waker. Further Opens fail.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sockets := m.sockets
	m.sockets = make(map[string]*Socket)
	m.mu.Unlock()

	for _, s := range sockets {
		s.shutdown()
	}
	return m.waker.Close()
}

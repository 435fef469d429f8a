package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"sync"

	apperrors "github.com/kbukum/httpsmgr/errors"
)

// State is the coarse lifecycle of a socket.
type State int32

const (
	// StateConnecting covers resolution, TCP connect and the TLS handshake.
	StateConnecting State = iota
	// StateConnected means bytes can flow in both directions.
	StateConnected
	// StateShutdown means the peer closed its side.
	StateShutdown
	// StateClosed means the connection failed or was closed locally.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateShutdown:
		return "shutdown"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Socket is one outbound connection. The exported fields are owned by the
// goroutine driving the poll loop and change only inside Manager.PostPoll.
type Socket struct {
	ID   string
	Host string

	State State
	// Err describes why the socket left StateConnected, if it failed.
	Err error
	// Unreachable is set when the host name could not be resolved, so no
	// connection attempt was ever made.
	Unreachable bool

	// SendBuffer holds bytes not yet written. Callers append to it; the
	// layer trims what the peer has accepted.
	SendBuffer []byte
	// RecvBuffer accumulates bytes read from the peer. Callers consume
	// from the front.
	RecvBuffer []byte

	tlsConfig *tls.Config
	cancel    context.CancelFunc
	writeCh   chan []byte
	inFlight  bool

	mu        sync.Mutex
	conn      net.Conn
	inbox     []byte
	written   int
	writeDone bool
	pending   State
	pendErr   error
	noRoute   bool
}

// run performs the connect phase and then the read loop. Results are staged
// under s.mu and published by Manager.PostPoll.
func (s *Socket) run(ctx context.Context, m *Manager) {
	conn, err := m.dialer.DialContext(ctx, "tcp", s.Host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			s.mu.Lock()
			s.noRoute = true
			s.mu.Unlock()
		}
		s.fail(apperrors.ConnectionFailed(s.Host, err), m)
		return
	}
	if s.tlsConfig != nil {
		tc := tls.Client(conn, s.tlsConfig)
		hctx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
		err = tc.HandshakeContext(hctx)
		cancel()
		if err != nil {
			conn.Close()
			s.fail(apperrors.ConnectionFailed(s.Host, err), m)
			return
		}
		conn = tc
	}

	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = conn
	s.pending = StateConnected
	s.mu.Unlock()
	m.waker.Wake()

	go s.writeLoop(ctx, conn, m)
	s.readLoop(conn, m)
}

func (s *Socket) readLoop(conn net.Conn, m *Manager) {
	buf := make([]byte, m.cfg.ReadBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.inbox = append(s.inbox, buf[:n]...)
			s.mu.Unlock()
			m.waker.Wake()
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			s.mu.Lock()
			if s.pending < StateShutdown {
				s.pending = StateShutdown
			}
			s.mu.Unlock()
			m.waker.Wake()
			return
		}
		s.fail(apperrors.ConnectionFailed(s.Host, err), m)
		return
	}
}

func (s *Socket) writeLoop(ctx context.Context, conn net.Conn, m *Manager) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk := <-s.writeCh:
			n, err := conn.Write(chunk)
			s.mu.Lock()
			s.written += n
			s.writeDone = true
			s.mu.Unlock()
			if err != nil {
				s.fail(apperrors.ConnectionFailed(s.Host, err), m)
				return
			}
			m.waker.Wake()
		}
	}
}

func (s *Socket) fail(err error, m *Manager) {
	s.mu.Lock()
	if s.pending != StateClosed {
		s.pending = StateClosed
		s.pendErr = err
	}
	s.mu.Unlock()
	m.waker.Wake()
}

// publish moves staged results onto the exported fields and hands pending
// send bytes to the writer. Called with the manager lock held.
func (s *Socket) publish() {
	s.mu.Lock()
	if len(s.inbox) > 0 {
		s.RecvBuffer = append(s.RecvBuffer, s.inbox...)
		s.inbox = s.inbox[:0]
	}
	if s.writeDone {
		if s.written > len(s.SendBuffer) {
			s.written = len(s.SendBuffer)
		}
		s.SendBuffer = s.SendBuffer[s.written:]
		s.written = 0
		s.writeDone = false
		s.inFlight = false
	}
	// A peer may read the request and close before the writer records
	// how much it wrote; the terminal state waits for that count.
	if s.pending > s.State && !(s.pending > StateConnected && s.inFlight) {
		s.State = s.pending
		if s.pendErr != nil {
			s.Err = s.pendErr
		}
		s.Unreachable = s.noRoute
	}
	s.mu.Unlock()

	if s.State == StateConnected && !s.inFlight && len(s.SendBuffer) > 0 {
		chunk := append([]byte(nil), s.SendBuffer...)
		select {
		case s.writeCh <- chunk:
			s.inFlight = true
		default:
		}
	}
}

// shutdown cancels the socket's goroutines and closes the connection.
func (s *Socket) shutdown() {
	s.cancel()
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.pending = StateClosed
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	s.State = StateClosed
}

package https

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"

	"github.com/kbukum/httpsmgr/errors"
	"github.com/kbukum/httpsmgr/logger"
	"github.com/kbukum/httpsmgr/message"
	"github.com/kbukum/httpsmgr/observability"
)

// DefaultPort is appended to targets without an explicit port, whatever
// the scheme.
const DefaultPort = "443"

// target is a parsed dispatch URL.
type target struct {
	host       string // host:port
	serverName string
	hostHeader string
	requestURI string
	secure     bool
}

func parseTarget(rawURL string) (target, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return target{}, errors.InvalidURL(rawURL, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return target{}, errors.InvalidURL(rawURL, "scheme must be http or https")
	}
	if u.Hostname() == "" {
		return target{}, errors.InvalidURL(rawURL, "missing host")
	}
	port := u.Port()
	if port == "" {
		port = DefaultPort
	}
	return target{
		host:       net.JoinHostPort(u.Hostname(), port),
		serverName: u.Hostname(),
		hostHeader: u.Host,
		requestURI: u.RequestURI(),
		secure:     u.Scheme == "https",
	}, nil
}

// SendRequest starts a transaction sending req to rawURL. It never blocks
// and never fails: when the target cannot be parsed or no connection can be
// started, the returned transaction is already completed with
// StatusDispatchFailed.
func (m *Manager) SendRequest(rawURL string, req *message.Message) *Transaction {
	return m.SendRequestContext(context.Background(), rawURL, req)
}

// SendRequestContext is SendRequest with a parent context for the
// transaction's span.
func (m *Manager) SendRequestContext(ctx context.Context, rawURL string, req *message.Message) *Transaction {
	tgt, err := parseTarget(rawURL)
	if err != nil {
		return m.errorTransaction(ctx, rawURL, "", req, err)
	}
	if req == nil {
		return m.errorTransaction(ctx, rawURL, tgt.host, req, errors.MissingField("request"))
	}
	req = withDefaults(req, tgt)

	var tlsConfig *tls.Config
	if tgt.secure {
		tlsConfig = m.identity.ClientConfig(tgt.serverName)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return m.errorTransactionLocked(ctx, rawURL, tgt.host, req, errors.DispatchFailed(tgt.host, errClosed))
	}
	if tgt.secure && tlsConfig == nil {
		return m.errorTransactionLocked(ctx, rawURL, tgt.host, req, errors.DispatchFailed(tgt.host, errIdentityClosed))
	}

	s, err := m.layer.Open(tgt.host, tlsConfig)
	if err != nil {
		return m.errorTransactionLocked(ctx, rawURL, tgt.host, req, errors.DispatchFailed(tgt.host, err))
	}

	now := m.clock()
	t := newTransaction(m, rawURL, tgt.host, req, now)
	t.socket = s
	s.SendBuffer = append(s.SendBuffer, req.Serialize()...)
	m.pushActive(t)
	t.trace = observability.StartTransaction(ctx, m.metrics, t.id, rawURL, tgt.host, now, true)

	m.log.Debug("transaction dispatched", logger.Fields(
		logger.FieldTransactionID, t.id,
		logger.FieldURL, rawURL,
		logger.FieldHost, tgt.host,
		logger.FieldSocketID, s.ID,
	))
	return t
}

func (m *Manager) errorTransaction(ctx context.Context, rawURL, host string, req *message.Message, cause error) *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorTransactionLocked(ctx, rawURL, host, req, cause)
}

// errorTransactionLocked synthesizes a transaction completed with
// StatusDispatchFailed at the front of the completed list.
func (m *Manager) errorTransactionLocked(ctx context.Context, rawURL, host string, req *message.Message, cause error) *Transaction {
	m.log.WithError(cause).Warn("We had to create an error transaction instead of attempting a real one", logger.Fields(
		logger.FieldURL, rawURL,
	))
	now := m.clock()
	t := newTransaction(m, rawURL, host, req, now)
	t.complete(StatusDispatchFailed, now)
	t.elem, t.list = m.completed.PushFront(t), m.completed
	t.state.Store(int32(StateCompleted))

	t.trace = observability.StartTransaction(ctx, m.metrics, t.id, rawURL, host, now, false)
	t.trace.Complete(StatusDispatchFailed, "", now, cause)
	return t
}

// withDefaults returns req with a request line and Host header filled in
// from the target when the caller left them out. req itself is not
// modified.
func withDefaults(req *message.Message, tgt target) *message.Message {
	if req.MethodLine != "" && req.Has("Host") {
		return req
	}
	out := &message.Message{
		MethodLine: req.MethodLine,
		Headers:    append([]message.Header(nil), req.Headers...),
		Content:    req.Content,
	}
	if out.MethodLine == "" {
		out.MethodLine = "GET " + tgt.requestURI + " HTTP/1.1"
	}
	if !out.Has("Host") {
		out.Headers = append(out.Headers, message.Header{Name: "Host", Value: tgt.hostHeader})
	}
	return out
}

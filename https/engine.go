package https

import (
	"time"

	"github.com/kbukum/httpsmgr/errors"
	"github.com/kbukum/httpsmgr/logger"
	"github.com/kbukum/httpsmgr/message"
	"github.com/kbukum/httpsmgr/netpoll"
	"github.com/kbukum/httpsmgr/transport"
)

// PrePoll registers the connection layer's descriptors in fdm.
func (m *Manager) PrePoll(fdm netpoll.FDMap) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.layer.PrePoll(fdm)
}

// PostPoll advances every active transaction once. For each, in order: a
// complete response is handed to the hook (or forced to 500 if it has
// neither a 2xx status line nor content); otherwise a host that failed to
// resolve completes it with 503, and a lost connection or an expired
// budget with 501 or 500; otherwise its deadline tightens *next.
// Completed transactions move to the completed list.
//
// A zero *next means no deadline yet. next may be nil.
//
// The returned error is non-nil only for a hook contract violation; the
// offending transaction is completed with StatusFailed so the lists stay
// consistent.
func (m *Manager) PostPoll(fdm netpoll.FDMap, next *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}

	m.layer.PostPoll(fdm)

	now := m.clock()
	var violation error
	for e := m.active.Front(); e != nil; {
		t := e.Value.(*Transaction)
		e = e.Next()

		detached, err := m.advance(t, now, next)
		if err != nil && violation == nil {
			violation = err
		}
		if detached || !t.Done() {
			continue
		}
		m.moveToCompleted(t)
		m.logCompletion(t, now)
	}
	return violation
}

// advance runs one transaction through a single poll cycle. It reports
// whether the hook detached the transaction.
func (m *Manager) advance(t *Transaction, now time.Time, next *time.Time) (bool, error) {
	s := t.socket
	elapsed := now.Sub(t.created)

	resp := &message.Message{}
	n, perr := resp.Deserialize(s.RecvBuffer)
	switch {
	case perr != nil:
		m.log.WithError(perr).Warn("Message failed", logger.Fields(
			logger.FieldTransactionID, t.id,
			logger.FieldHost, t.host,
		))
		t.complete(StatusFailed, now)
		return false, nil

	case n > 0:
		s.RecvBuffer = s.RecvBuffer[n:]
		t.response.Store(resp)
		t.markFinished(now)
		if !resp.IsSuccess() && len(resp.Content) == 0 {
			m.log.Warn("Message failed", logger.Fields(
				logger.FieldTransactionID, t.id,
				logger.FieldStatusLine, resp.MethodLine,
			))
			t.complete(StatusFailed, now)
			return false, nil
		}
		return m.dispatchHook(t, now)

	case s.State > transport.StateConnected && s.Unreachable:
		m.log.WithError(s.Err).Warn("Could not resolve host", logger.Fields(
			logger.FieldTransactionID, t.id,
			logger.FieldHost, t.host,
		))
		t.complete(StatusDispatchFailed, now)
		return false, nil

	case s.State > transport.StateConnected || elapsed > TransactionTimeout:
		reason := "died prematurely"
		if elapsed > TransactionTimeout {
			reason = "timed out"
		}
		unsent := len(s.SendBuffer) > 0
		code := StatusFailed
		if unsent {
			code = StatusUnknownOutcome
		}
		fields := logger.Fields(
			logger.FieldTransactionID, t.id,
			logger.FieldHost, t.host,
			logger.FieldDuration, elapsed.Milliseconds(),
			"socket_state", s.State.String(),
		)
		l := m.log
		if s.Err != nil {
			l = l.WithError(s.Err)
		}
		l.Warn("Connection "+reason, fields)
		if unsent {
			m.log.Warn("request sent with no response, peer may have processed it", logger.Fields(
				logger.FieldTransactionID, t.id,
				logger.FieldMethodLine, t.request.MethodLine,
			))
		}
		t.complete(code, now)
		return false, nil

	default:
		deadline := t.created.Add(TransactionTimeout)
		if next != nil && (next.IsZero() || deadline.Before(*next)) {
			*next = deadline
		}
		return false, nil
	}
}

// dispatchHook invokes the response hook and applies its disposition.
func (m *Manager) dispatchHook(t *Transaction, now time.Time) (bool, error) {
	d := m.callHook(t)
	switch {
	case d.detach || t.closeQueued.Load():
		m.log.Debug("transaction detached by hook", logger.Fields(logger.FieldTransactionID, t.id))
		m.closeLocked(t)
		return true, nil
	case d.code > 0:
		t.complete(d.code, now)
		return false, nil
	}

	err := errors.ContractViolation("https: response hook returned without an outcome").
		WithDetail(logger.FieldTransactionID, t.id).
		WithDetail(logger.FieldStatusLine, t.statusLine())
	m.log.WithError(err).Error("response hook contract violation", logger.Fields(
		logger.FieldTransactionID, t.id,
	))
	t.complete(StatusFailed, now)
	return false, err
}

func (m *Manager) callHook(t *Transaction) Disposition {
	m.inHook.Store(t)
	defer m.inHook.Store(nil)
	return m.hook.OnResponse(t)
}

func (m *Manager) logCompletion(t *Transaction, now time.Time) {
	elapsed := now.Sub(t.created)
	m.log.Info("Completed request", logger.Fields(
		logger.FieldTransactionID, t.id,
		logger.FieldMethodLine, t.request.MethodLine,
		logger.FieldHost, t.host,
		logger.FieldOutcome, t.Outcome(),
		logger.FieldDuration, elapsed.Milliseconds(),
	))
	t.trace.Complete(t.Outcome(), t.statusLine(), now, nil)
}

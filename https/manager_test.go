package https

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/httpsmgr/errors"
	"github.com/kbukum/httpsmgr/message"
	"github.com/kbukum/httpsmgr/netpoll"
	"github.com/kbukum/httpsmgr/transport"
)

const okResponse = "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"

func getRequest() *message.Message {
	return message.NewRequest("GET", "/status")
}

func TestSendRequest_MalformedURL(t *testing.T) {
	urls := []string{"", "example.test/path", "ftp://example.test/", "https://", "http://[::1", "https:///nohost"}
	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			env := newTestEnv(t)
			tx := env.m.SendRequest(u, getRequest())

			if tx.Outcome() != StatusDispatchFailed {
				t.Errorf("Outcome() = %d, want 503", tx.Outcome())
			}
			if tx.State() != StateCompleted {
				t.Errorf("State() = %v", tx.State())
			}
			if env.m.CompletedCount() != 1 || env.m.ActiveCount() != 0 {
				t.Errorf("expected completed-only membership, active=%d completed=%d",
					env.m.ActiveCount(), env.m.CompletedCount())
			}
			if len(env.layer.sockets) != 0 {
				t.Error("no socket should be opened")
			}
			if tx.Finished().IsZero() {
				t.Error("expected finished time")
			}

			env.poll(t)
			if env.m.CompletedCount() != 1 || tx.Outcome() != StatusDispatchFailed {
				t.Error("poll must not touch completed transactions")
			}
		})
	}
}

func TestSendRequest_NilRequest(t *testing.T) {
	env := newTestEnv(t)
	tx := env.m.SendRequest("https://example.test/", nil)
	if tx.Outcome() != StatusDispatchFailed {
		t.Errorf("Outcome() = %d, want 503", tx.Outcome())
	}
}

func TestSendRequest_OpenFailure(t *testing.T) {
	env := newTestEnv(t)
	env.layer.openErr = fmt.Errorf("no route")

	tx := env.m.SendRequest("https://example.test/", getRequest())
	if tx.Outcome() != StatusDispatchFailed || tx.Host() != "example.test:443" {
		t.Errorf("unexpected transaction outcome=%d host=%q", tx.Outcome(), tx.Host())
	}
	if env.m.ActiveCount() != 0 || env.m.CompletedCount() != 1 {
		t.Error("expected transaction in completed list only")
	}
}

func TestSendRequest_ErrorTransactionsAtFront(t *testing.T) {
	env := newTestEnv(t)
	live := env.m.SendRequest("https://example.test/", getRequest())
	env.layer.sockets[0].RecvBuffer = []byte(okResponse)
	env.poll(t)

	failed := env.m.SendRequest("bad url", getRequest())

	env.m.mu.Lock()
	front := env.m.completed.Front().Value.(*Transaction)
	back := env.m.completed.Back().Value.(*Transaction)
	env.m.mu.Unlock()
	if front != failed || back != live {
		t.Error("error transactions go to the front of completed, finished ones to the back")
	}
}

func TestSendRequest_Target(t *testing.T) {
	tests := []struct {
		url        string
		wantHost   string
		wantTLS    bool
		wantServer string
	}{
		{"https://example.test/", "example.test:443", true, "example.test"},
		{"https://example.test:8443/a?b=c", "example.test:8443", true, "example.test"},
		{"http://example.test/", "example.test:443", false, ""},
		{"http://example.test:8080/", "example.test:8080", false, ""},
		{"https://[::1]/", "[::1]:443", true, "::1"},
	}
	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			env := newTestEnv(t)
			tx := env.m.SendRequest(tc.url, getRequest())
			if tx.State() != StateActive {
				t.Fatalf("expected active transaction, outcome=%d", tx.Outcome())
			}
			s := env.lastSocket(t)
			if s.Host != tc.wantHost || tx.Host() != tc.wantHost {
				t.Errorf("host = %q, want %q", s.Host, tc.wantHost)
			}
			cfg := env.layer.tlsConfigs[0]
			if (cfg != nil) != tc.wantTLS {
				t.Fatalf("tls config present = %v, want %v", cfg != nil, tc.wantTLS)
			}
			if cfg != nil && cfg.ServerName != tc.wantServer {
				t.Errorf("ServerName = %q, want %q", cfg.ServerName, tc.wantServer)
			}
		})
	}
}

func TestSendRequest_SerializesRequest(t *testing.T) {
	env := newTestEnv(t)
	req := message.NewRequest("POST", "/v1/items")
	req.Content = []byte("{}")

	tx := env.m.SendRequest("https://api.example.test/v1/items", req)
	s := env.lastSocket(t)
	wire := string(s.SendBuffer)

	if !strings.HasPrefix(wire, "POST /v1/items HTTP/1.1\r\n") {
		t.Errorf("unexpected request line in %q", wire)
	}
	if !strings.Contains(wire, "Host: api.example.test\r\n") || !strings.HasSuffix(wire, "\r\n\r\n{}") {
		t.Errorf("unexpected wire form %q", wire)
	}
	if req.Has("Host") {
		t.Error("caller's request must not be modified")
	}
	if tx.Request().Get("Host") != "api.example.test" {
		t.Error("transaction should keep the request as sent")
	}
}

func TestSendRequest_EmptyRequestLine(t *testing.T) {
	env := newTestEnv(t)
	env.m.SendRequest("http://example.test:8080/a/b?q=1", &message.Message{})
	wire := string(env.lastSocket(t).SendBuffer)
	if !strings.HasPrefix(wire, "GET /a/b?q=1 HTTP/1.1\r\nHost: example.test:8080\r\n") {
		t.Errorf("unexpected wire form %q", wire)
	}
}

func TestPostPoll_SuccessResponse(t *testing.T) {
	env := newTestEnv(t)
	tx := env.m.SendRequest("https://example.test/", getRequest())
	s := env.lastSocket(t)
	s.SendBuffer = nil
	s.RecvBuffer = []byte(okResponse + "HTTP/1.1")

	env.clock.Advance(40 * time.Millisecond)
	env.poll(t)

	if tx.Outcome() != 200 {
		t.Fatalf("Outcome() = %d, want 200", tx.Outcome())
	}
	if string(s.RecvBuffer) != "HTTP/1.1" {
		t.Errorf("expected exactly one message consumed, left %q", s.RecvBuffer)
	}
	if tx.Response() == nil || string(tx.Response().Content) != "hello" {
		t.Errorf("unexpected response %+v", tx.Response())
	}
	if tx.Elapsed() != 40*time.Millisecond {
		t.Errorf("Elapsed() = %v", tx.Elapsed())
	}
	if env.m.ActiveCount() != 0 || env.m.CompletedCount() != 1 || tx.State() != StateCompleted {
		t.Fatal("expected migration to completed")
	}

	env.poll(t)
	if env.m.CompletedCount() != 1 || tx.Outcome() != 200 {
		t.Error("completed transaction must migrate exactly once")
	}
}

func TestPostPoll_IncrementalResponse(t *testing.T) {
	env := newTestEnv(t)
	tx := env.m.SendRequest("https://example.test/", getRequest())
	s := env.lastSocket(t)

	s.RecvBuffer = []byte(okResponse[:20])
	env.poll(t)
	if tx.Done() || tx.Response() != nil || len(s.RecvBuffer) != 20 {
		t.Fatal("partial response must not change state")
	}

	s.RecvBuffer = append(s.RecvBuffer, okResponse[20:]...)
	env.poll(t)
	if tx.Outcome() != 200 || len(s.RecvBuffer) != 0 {
		t.Errorf("Outcome() = %d, left %d bytes", tx.Outcome(), len(s.RecvBuffer))
	}
}

func TestPostPoll_ResponseOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		want      int
		hookCalls int
	}{
		{"200 without content", "HTTP/1.1 200 OK\r\n\r\n", 200, 1},
		{"404 with content", "HTTP/1.1 404 Not Found\r\nContent-Length: 4\r\n\r\nnope", 404, 1},
		{"201 with chunked content", "HTTP/1.1 201 Created\r\nTransfer-Encoding: chunked\r\n\r\n2\r\nok\r\n0\r\n\r\n", 201, 1},
		{"204 without content", "HTTP/1.1 204 No Content\r\n\r\n", 204, 1},
		{"201 with empty body", "HTTP/1.1 201 Created\r\nContent-Length: 0\r\n\r\n", 201, 1},
		{"404 without content", "HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n", StatusFailed, 0},
		{"content with garbage status", "garbage\r\nContent-Length: 2\r\n\r\nhi", StatusFailed, 1},
		{"malformed framing", "HTTP/1.1 200 OK\r\nContent-Length: x\r\n\r\n", StatusFailed, 0},
		{"blank line inside headers", "HTTP/1.1 200 OK\n\r\nX: y\n\n", StatusFailed, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hook := &countingHook{fn: StatusHook{}.OnResponse}
			env := newTestEnv(t, WithHook(hook))
			tx := env.m.SendRequest("https://example.test/", getRequest())
			env.lastSocket(t).RecvBuffer = []byte(tc.response)

			env.poll(t)
			if tx.Outcome() != tc.want {
				t.Errorf("Outcome() = %d, want %d", tx.Outcome(), tc.want)
			}
			if hook.calls != tc.hookCalls {
				t.Errorf("hook calls = %d, want %d", hook.calls, tc.hookCalls)
			}
			if env.m.CompletedCount() != 1 {
				t.Error("expected completed transaction")
			}
		})
	}
}

func TestPostPoll_Timeout(t *testing.T) {
	tests := []struct {
		name    string
		flushed bool
		want    int
	}{
		{"request unsent", false, StatusUnknownOutcome},
		{"request sent", true, StatusFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			tx := env.m.SendRequest("https://example.test/", getRequest())
			s := env.lastSocket(t)
			if tc.flushed {
				s.SendBuffer = s.SendBuffer[:0]
			}

			env.clock.Advance(TransactionTimeout)
			env.poll(t)
			if tx.Done() {
				t.Fatal("budget is exceeded only strictly after 300s")
			}

			env.clock.Advance(time.Millisecond)
			env.poll(t)
			if tx.Outcome() != tc.want {
				t.Errorf("Outcome() = %d, want %d", tx.Outcome(), tc.want)
			}
			if env.m.ActiveCount() != 0 || env.m.CompletedCount() != 1 {
				t.Error("expected migration to completed")
			}
		})
	}
}

func TestPostPoll_ConnectionLost(t *testing.T) {
	tests := []struct {
		name        string
		state       transport.State
		flushed     bool
		unreachable bool
		want        int
	}{
		{"closed before send", transport.StateClosed, false, false, StatusUnknownOutcome},
		{"closed after send", transport.StateClosed, true, false, StatusFailed},
		{"peer shutdown after send", transport.StateShutdown, true, false, StatusFailed},
		{"peer shutdown before send", transport.StateShutdown, false, false, StatusUnknownOutcome},
		{"host did not resolve", transport.StateClosed, false, true, StatusDispatchFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			tx := env.m.SendRequest("https://example.test/", getRequest())
			s := env.lastSocket(t)
			s.State = tc.state
			s.Unreachable = tc.unreachable
			if tc.flushed {
				s.SendBuffer = nil
			}
			env.poll(t)
			if tx.Outcome() != tc.want {
				t.Errorf("Outcome() = %d, want %d", tx.Outcome(), tc.want)
			}
		})
	}
}

func TestPostPoll_ResponseBeforeLoss(t *testing.T) {
	env := newTestEnv(t)
	tx := env.m.SendRequest("https://example.test/", getRequest())
	s := env.lastSocket(t)
	s.RecvBuffer = []byte(okResponse)
	s.State = transport.StateShutdown

	env.poll(t)
	if tx.Outcome() != 200 {
		t.Errorf("a complete response wins over a closed socket, got %d", tx.Outcome())
	}
}

func TestPostPoll_StillConnecting(t *testing.T) {
	env := newTestEnv(t)
	tx := env.m.SendRequest("https://example.test/", getRequest())
	env.lastSocket(t).State = transport.StateConnecting
	env.poll(t)
	if tx.Done() {
		t.Error("connecting socket must stay pending")
	}
}

func TestPostPoll_NextHint(t *testing.T) {
	env := newTestEnv(t)
	first := env.m.SendRequest("https://a.example.test/", getRequest())
	env.clock.Advance(10 * time.Second)
	env.m.SendRequest("https://b.example.test/", getRequest())

	fdm := netpoll.NewFDMap()
	wantDeadline := first.Created().Add(TransactionTimeout)

	var next time.Time
	if err := env.m.PostPoll(fdm, &next); err != nil {
		t.Fatal(err)
	}
	if !next.Equal(wantDeadline) {
		t.Errorf("zero hint: next = %v, want %v", next, wantDeadline)
	}

	later := wantDeadline.Add(time.Hour)
	if err := env.m.PostPoll(fdm, &later); err != nil {
		t.Fatal(err)
	}
	if !later.Equal(wantDeadline) {
		t.Errorf("loose hint must tighten: next = %v", later)
	}

	earlier := env.clock.Now().Add(time.Second)
	keep := earlier
	if err := env.m.PostPoll(fdm, &earlier); err != nil {
		t.Fatal(err)
	}
	if !earlier.Equal(keep) {
		t.Errorf("tighter hint must not loosen: next = %v", earlier)
	}

	if err := env.m.PostPoll(fdm, nil); err != nil {
		t.Errorf("nil hint: %v", err)
	}
}

func TestPostPoll_ForwardsToLayer(t *testing.T) {
	env := newTestEnv(t)
	fdm := netpoll.NewFDMap()
	env.m.PrePoll(fdm)
	if fdm[99] == nil || fdm[99].Want != netpoll.Readable {
		t.Error("PrePoll should forward registration")
	}
	_ = env.m.PostPoll(fdm, nil)
	if env.layer.prePolls != 1 || env.layer.postPolls != 1 {
		t.Errorf("prePolls=%d postPolls=%d", env.layer.prePolls, env.layer.postPolls)
	}
}

func TestHook_ClosesOwnTransaction(t *testing.T) {
	hook := &countingHook{fn: func(tx *Transaction) Disposition {
		tx.Close()
		if tx.State() == StateClosed {
			t.Error("close must wait until the hook returns")
		}
		return Respond(200)
	}}
	env := newTestEnv(t, WithHook(hook))
	tx := env.m.SendRequest("https://example.test/", getRequest())
	s := env.lastSocket(t)
	s.RecvBuffer = []byte(okResponse)

	env.poll(t)
	if hook.calls != 1 {
		t.Fatalf("hook calls = %d, want 1", hook.calls)
	}
	if tx.State() != StateClosed || tx.Done() {
		t.Errorf("state=%v outcome=%d, want closed without outcome", tx.State(), tx.Outcome())
	}
	if env.m.ActiveCount() != 0 || env.m.CompletedCount() != 0 {
		t.Error("transaction closed by its hook must be unlinked")
	}
	if env.layer.closeCount(s) != 1 {
		t.Errorf("socket closed %d times, want 1", env.layer.closeCount(s))
	}
}

func TestHook_Detach(t *testing.T) {
	var seen *Transaction
	hook := &countingHook{fn: func(tx *Transaction) Disposition {
		seen = tx
		if tx.Response() == nil {
			t.Error("response must be available to the hook")
		}
		return Detach()
	}}
	env := newTestEnv(t, WithHook(hook))
	tx := env.m.SendRequest("https://example.test/", getRequest())
	s := env.lastSocket(t)
	s.RecvBuffer = []byte(okResponse)

	env.poll(t)
	if seen != tx {
		t.Fatal("hook not invoked with the transaction")
	}
	if tx.State() != StateClosed || tx.Done() {
		t.Errorf("expected detached transaction closed without outcome, state=%v outcome=%d", tx.State(), tx.Outcome())
	}
	if env.m.ActiveCount() != 0 || env.m.CompletedCount() != 0 {
		t.Error("detached transaction must be unlinked")
	}
	if env.layer.closeCount(s) != 1 {
		t.Errorf("socket closed %d times", env.layer.closeCount(s))
	}
	tx.Close()
	if env.layer.closeCount(s) != 1 {
		t.Error("closing a detached transaction again must be a no-op")
	}
}

func TestHook_Respond(t *testing.T) {
	hook := HookFunc(func(tx *Transaction) Disposition { return Respond(299) })
	env := newTestEnv(t, WithHook(hook))
	tx := env.m.SendRequest("https://example.test/", getRequest())
	env.lastSocket(t).RecvBuffer = []byte(okResponse)
	env.poll(t)
	if tx.Outcome() != 299 {
		t.Errorf("Outcome() = %d, want 299", tx.Outcome())
	}
}

func TestHook_ContractViolation(t *testing.T) {
	for name, d := range map[string]Disposition{"zero": {}, "respond zero": Respond(0), "negative": Respond(-1)} {
		t.Run(name, func(t *testing.T) {
			hook := HookFunc(func(tx *Transaction) Disposition { return d })
			env := newTestEnv(t, WithHook(hook))
			tx := env.m.SendRequest("https://example.test/", getRequest())
			env.lastSocket(t).RecvBuffer = []byte(okResponse)

			err := env.m.PostPoll(netpoll.NewFDMap(), nil)
			if !errors.IsContractViolation(err) {
				t.Fatalf("expected contract violation, got %v", err)
			}
			appErr, _ := errors.AsAppError(err)
			if !appErr.Fatal() {
				t.Error("contract violations are fatal-class")
			}
			if tx.Outcome() != StatusFailed || env.m.CompletedCount() != 1 {
				t.Error("offending transaction must still complete")
			}
		})
	}
}

func TestStatusHook(t *testing.T) {
	tx := &Transaction{}
	if d := (StatusHook{}).OnResponse(tx); d.Code() != StatusFailed {
		t.Errorf("no response: code = %d", d.Code())
	}
	tx.response.Store(message.New("HTTP/1.1 418 I'm a teapot"))
	if d := (StatusHook{}).OnResponse(tx); d.Code() != 418 || d.Detached() {
		t.Errorf("code = %d", d.Code())
	}
}

func TestCloseTransaction(t *testing.T) {
	env := newTestEnv(t)
	tx := env.m.SendRequest("https://example.test/", getRequest())
	s := env.lastSocket(t)

	env.m.CloseTransaction(tx)
	env.m.CloseTransaction(tx)
	tx.Close()
	env.m.CloseTransaction(nil)

	if env.layer.closeCount(s) != 1 {
		t.Errorf("socket closed %d times, want 1", env.layer.closeCount(s))
	}
	if tx.State() != StateClosed || env.m.ActiveCount() != 0 {
		t.Error("expected closed, unlinked transaction")
	}
	if tx.socket != nil {
		t.Error("socket reference must be cleared")
	}

	env.poll(t)
	if tx.Done() {
		t.Error("closed transaction must not be advanced")
	}
}

func TestCloseTransaction_Completed(t *testing.T) {
	env := newTestEnv(t)
	tx := env.m.SendRequest("https://example.test/", getRequest())
	env.lastSocket(t).RecvBuffer = []byte(okResponse)
	env.poll(t)

	env.m.CloseTransaction(tx)
	if env.m.CompletedCount() != 0 || tx.State() != StateClosed {
		t.Error("expected completed transaction removed")
	}
	if tx.Outcome() != 200 {
		t.Error("outcome must survive close")
	}
}

func TestCloseTransaction_ForeignManager(t *testing.T) {
	a := newTestEnv(t)
	b := newTestEnv(t)
	tx := a.m.SendRequest("https://example.test/", getRequest())
	b.m.CloseTransaction(tx)
	if tx.State() != StateActive || a.m.ActiveCount() != 1 {
		t.Error("a manager must not close another manager's transaction")
	}
}

func TestManagerClose(t *testing.T) {
	env := newTestEnv(t)
	a := env.m.SendRequest("https://a.example.test/", getRequest())
	b := env.m.SendRequest("https://b.example.test/", getRequest())
	c := env.m.SendRequest("https://c.example.test/", getRequest())
	env.layer.sockets[2].RecvBuffer = []byte(okResponse)
	env.poll(t)
	d := env.m.SendRequest("::bad::", getRequest())

	if err := env.m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, tx := range []*Transaction{a, b, c, d} {
		if tx.State() != StateClosed {
			t.Errorf("transaction %s left in state %v", tx.ID(), tx.State())
		}
		if tx.socket != nil {
			t.Errorf("transaction %s kept its socket", tx.ID())
		}
	}
	for _, s := range env.layer.sockets {
		if n := env.layer.closeCount(s); n != 1 {
			t.Errorf("socket %s closed %d times", s.ID, n)
		}
	}
	// Active list first, front to back; new transactions are at the front.
	order := env.layer.closeOrder
	if len(order) != 3 || order[0] != env.layer.sockets[1] || order[1] != env.layer.sockets[0] || order[2] != env.layer.sockets[2] {
		t.Errorf("unexpected teardown order %v", order)
	}
	if env.m.ActiveCount() != 0 || env.m.CompletedCount() != 0 {
		t.Error("expected empty lists")
	}
	if !env.m.identity.Closed() {
		t.Error("identity must be released")
	}
	if err := env.m.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestManagerClose_ThenUse(t *testing.T) {
	env := newTestEnv(t)
	_ = env.m.Close()

	tx := env.m.SendRequest("https://example.test/", getRequest())
	if tx.Outcome() != StatusDispatchFailed {
		t.Errorf("dispatch after close: outcome %d", tx.Outcome())
	}
	if len(env.layer.sockets) != 0 {
		t.Error("no socket may be opened after close")
	}
	env.m.PrePoll(netpoll.NewFDMap())
	if err := env.m.PostPoll(netpoll.NewFDMap(), nil); err != nil {
		t.Errorf("PostPoll after close: %v", err)
	}
	if env.layer.prePolls != 0 || env.layer.postPolls != 0 {
		t.Error("closed manager must not drive the layer")
	}
	tx.Close()
}

func TestConcurrentUse(t *testing.T) {
	env := newTestEnv(t)
	var wg sync.WaitGroup
	txs := make(chan *Transaction, 64)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				txs <- env.m.SendRequest(fmt.Sprintf("https://h%d.example.test/%d", i, j), getRequest())
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = env.m.PostPoll(netpoll.NewFDMap(), nil)
		}
	}()
	wg.Wait()
	close(txs)

	n := 0
	for tx := range txs {
		n++
		if tx.State() != StateActive {
			t.Errorf("unexpected state %v", tx.State())
		}
	}
	if n != 64 || env.m.ActiveCount() != 64 {
		t.Errorf("expected 64 active transactions, got %d/%d", n, env.m.ActiveCount())
	}
}

func TestNew_Errors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		_, err := New(Config{TLS: securityConfigWithCertOnly()}, WithSocketLayer(newFakeLayer()))
		if err == nil || errors.IsContractViolation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("identity build failure", func(t *testing.T) {
		cfg := Config{}
		cfg.TLS.KeyFile = "/nonexistent/key.pem"
		cfg.TLS.CertFile = "/nonexistent/cert.pem"
		_, err := New(cfg, WithSocketLayer(newFakeLayer()))
		if !errors.IsContractViolation(err) {
			t.Fatalf("expected contract violation, got %v", err)
		}
	})

	t.Run("MustNew panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		cfg := Config{}
		cfg.TLS.KeyFile = "/nonexistent/key.pem"
		cfg.TLS.CertFile = "/nonexistent/cert.pem"
		MustNew(cfg, WithSocketLayer(newFakeLayer()))
	})
}

func TestSendRequestContext(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tx := env.m.SendRequestContext(ctx, "https://example.test/", getRequest())
	if tx.State() != StateActive {
		t.Error("a cancelled span context must not affect dispatch")
	}
}

package https

import (
	"crypto/tls"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/httpsmgr/logger"
	"github.com/kbukum/httpsmgr/netpoll"
	"github.com/kbukum/httpsmgr/transport"
)

// fakeLayer is a SocketLayer whose sockets are driven by the test.
type fakeLayer struct {
	mu         sync.Mutex
	openErr    error
	sockets    []*transport.Socket
	tlsConfigs []*tls.Config
	closed     map[*transport.Socket]int
	closeOrder []*transport.Socket
	prePolls   int
	postPolls  int
}

func newFakeLayer() *fakeLayer {
	return &fakeLayer{closed: make(map[*transport.Socket]int)}
}

func (f *fakeLayer) Open(host string, cfg *tls.Config) (*transport.Socket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	s := &transport.Socket{
		ID:    fmt.Sprintf("sock-%d", len(f.sockets)),
		Host:  host,
		State: transport.StateConnected,
	}
	f.sockets = append(f.sockets, s)
	f.tlsConfigs = append(f.tlsConfigs, cfg)
	return s, nil
}

func (f *fakeLayer) Close(s *transport.Socket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed[s]++
	f.closeOrder = append(f.closeOrder, s)
	s.State = transport.StateClosed
}

func (f *fakeLayer) PrePoll(fdm netpoll.FDMap) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prePolls++
	fdm.Set(99, netpoll.Readable)
}

func (f *fakeLayer) PostPoll(fdm netpoll.FDMap) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postPolls++
}

func (f *fakeLayer) closeCount(s *transport.Socket) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed[s]
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	m     *Manager
	layer *fakeLayer
	clock *fakeClock
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{layer: newFakeLayer(), clock: newFakeClock()}
	base := []Option{
		WithSocketLayer(env.layer),
		WithClock(env.clock.Now),
		WithLogger(logger.NewNop()),
	}
	m, err := New(Config{Name: "test"}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	env.m = m
	return env
}

// poll runs one cycle and fails the test on error.
func (env *testEnv) poll(t *testing.T) time.Time {
	t.Helper()
	var next time.Time
	fdm := netpoll.NewFDMap()
	env.m.PrePoll(fdm)
	if err := env.m.PostPoll(fdm, &next); err != nil {
		t.Fatalf("PostPoll: %v", err)
	}
	return next
}

func (env *testEnv) lastSocket(t *testing.T) *transport.Socket {
	t.Helper()
	if len(env.layer.sockets) == 0 {
		t.Fatal("no socket opened")
	}
	return env.layer.sockets[len(env.layer.sockets)-1]
}

// countingHook records calls and delegates to a disposition function.
type countingHook struct {
	calls int
	fn    func(*Transaction) Disposition
}

func (h *countingHook) OnResponse(t *Transaction) Disposition {
	h.calls++
	return h.fn(t)
}

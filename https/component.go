package https

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/httpsmgr/component"
)

// Component adapts a Manager to the component lifecycle. The manager is
// built on Start and torn down on Stop.
type Component struct {
	cfg  Config
	opts []Option

	mu  sync.RWMutex
	mgr *Manager
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates an unstarted component.
func NewComponent(cfg Config, opts ...Option) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, opts: opts}
}

// Name implements component.Component.
func (c *Component) Name() string { return c.cfg.Name }

// Start builds the manager.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mgr != nil {
		return nil
	}
	m, err := New(c.cfg, c.opts...)
	if err != nil {
		return err
	}
	c.mgr = m
	return nil
}

// Stop tears the manager down.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	m := c.mgr
	c.mgr = nil
	c.mu.Unlock()
	if m == nil {
		return nil
	}
	return m.Close()
}

// Health reports the registry sizes.
func (c *Component) Health(ctx context.Context) component.Health {
	m := c.Manager()
	if m == nil || m.Closed() {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("active=%d completed=%d", m.ActiveCount(), m.CompletedCount()),
	}
}

// Describe implements component.Describable.
func (c *Component) Describe() component.Description {
	identity := "ephemeral"
	if c.cfg.TLS.IsLoaded() {
		identity = c.cfg.TLS.CertFile
	}
	return component.Description{
		Name:    "HTTPS transaction manager",
		Type:    "https",
		Details: fmt.Sprintf("tls=%s dial_timeout=%s metrics=%t", identity, c.cfg.DialTimeout, c.cfg.Metrics),
	}
}

// Manager returns the running manager, or nil before Start.
func (c *Component) Manager() *Manager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mgr
}

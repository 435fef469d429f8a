package https

import (
	"fmt"
	"time"

	"github.com/kbukum/httpsmgr/security"
	"github.com/kbukum/httpsmgr/validation"
)

const (
	defaultName        = "https"
	defaultDialTimeout = 30 * time.Second
)

// Config configures a Manager.
type Config struct {
	// Name identifies the manager in logs and the component registry.
	Name string `yaml:"name" mapstructure:"name" validate:"required"`

	// DialTimeout bounds TCP connect plus TLS handshake for each socket.
	// The 300s transaction budget applies regardless.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout" validate:"gte=0"`

	// ReadBufferSize is the connection layer's per-read chunk size.
	ReadBufferSize int `yaml:"read_buffer_size" mapstructure:"read_buffer_size" validate:"gte=512"`

	// TLS selects the identity used for https:// targets.
	TLS security.IdentityConfig `yaml:"tls" mapstructure:"tls"`

	// Metrics enables OpenTelemetry transaction metrics on the global
	// meter provider.
	Metrics bool `yaml:"metrics" mapstructure:"metrics"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = 32 << 10
	}
	c.TLS.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("https.tls: %w", err)
	}
	return nil
}

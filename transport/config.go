package transport

import (
	"fmt"
	"time"
)

const (
	defaultDialTimeout = 30 * time.Second
	defaultReadBuffer  = 32 << 10
)

// Config configures the connection layer.
type Config struct {
	// DialTimeout bounds TCP connect plus the TLS handshake.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`

	// ReadBufferSize is the per-read chunk size.
	ReadBufferSize int `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = defaultReadBuffer
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.DialTimeout < 0 {
		return fmt.Errorf("transport: dial_timeout must be >= 0")
	}
	if c.ReadBufferSize < 512 {
		return fmt.Errorf("transport: read_buffer_size must be >= 512")
	}
	return nil
}

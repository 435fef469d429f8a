package security

import (
	"crypto/tls"
	"fmt"
	"os"
)

// IdentityConfig selects the TLS identity a manager uses.
// With no key/cert files an ephemeral self-signed identity is generated.
type IdentityConfig struct {
	// KeyFile is the path to the PEM private key.
	KeyFile string `yaml:"key_file" mapstructure:"key_file" validate:"required_with=CertFile"`

	// CertFile is the path to the PEM certificate chain.
	CertFile string `yaml:"cert_file" mapstructure:"cert_file" validate:"required_with=KeyFile"`

	// CAFile is the path to the PEM CA bundle used to verify peers.
	// Empty means system roots.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`

	// SkipVerify disables peer certificate verification.
	// Not recommended for production.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`

	// MinVersion is the minimum TLS version (e.g., tls.VersionTLS12).
	MinVersion uint16 `yaml:"min_version" mapstructure:"min_version"`
}

// ApplyDefaults fills in zero-value fields.
func (c *IdentityConfig) ApplyDefaults() {
	if c.MinVersion == 0 {
		c.MinVersion = tls.VersionTLS12
	}
}

// Validate checks that the configuration is consistent.
func (c *IdentityConfig) Validate() error {
	if (c.CertFile != "") != (c.KeyFile != "") {
		return fmt.Errorf("security/identity: both cert_file and key_file must be provided together")
	}
	if c.MinVersion != 0 && (c.MinVersion < tls.VersionTLS10 || c.MinVersion > tls.VersionTLS13) {
		return fmt.Errorf("security/identity: unsupported min_version 0x%04x", c.MinVersion)
	}
	return nil
}

// IsLoaded reports whether key material is configured.
func (c *IdentityConfig) IsLoaded() bool {
	return c.KeyFile != "" && c.CertFile != ""
}

// Build creates the identity described by the configuration.
func (c *IdentityConfig) Build() (*Identity, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opts := []IdentityOption{WithSkipVerify(c.SkipVerify), WithMinVersion(c.MinVersion)}

	var caPEM []byte
	if c.CAFile != "" {
		data, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("security/identity: failed to read CA file: %w", err)
		}
		caPEM = data
	}

	if !c.IsLoaded() {
		if caPEM != nil {
			pool, err := rootPool(caPEM)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithRootCAs(pool))
		}
		return NewEphemeralIdentity(opts...)
	}

	keyPEM, err := os.ReadFile(c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("security/identity: failed to read key file: %w", err)
	}
	certPEM, err := os.ReadFile(c.CertFile)
	if err != nil {
		return nil, fmt.Errorf("security/identity: failed to read cert file: %w", err)
	}
	return LoadIdentity(keyPEM, certPEM, caPEM, opts...)
}

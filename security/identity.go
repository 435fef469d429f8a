package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"sync"
	"time"
)

const ephemeralValidity = 365 * 24 * time.Hour

// Identity owns the TLS material a transaction manager presents and trusts
// for its whole lifetime: a client certificate chain and the root pool used
// to verify peers.
type Identity struct {
	mu         sync.RWMutex
	cert       tls.Certificate
	roots      *x509.CertPool
	skipVerify bool
	minVersion uint16
	ephemeral  bool
	closed     bool
}

// IdentityOption customizes an Identity at construction.
type IdentityOption func(*Identity)

// WithSkipVerify disables peer certificate verification.
func WithSkipVerify(skip bool) IdentityOption {
	return func(i *Identity) { i.skipVerify = skip }
}

// WithMinVersion sets the minimum TLS version. Defaults to TLS 1.2.
func WithMinVersion(v uint16) IdentityOption {
	return func(i *Identity) {
		if v != 0 {
			i.minVersion = v
		}
	}
}

// WithRootCAs replaces the system roots with the given pool.
func WithRootCAs(pool *x509.CertPool) IdentityOption {
	return func(i *Identity) { i.roots = pool }
}

// NewEphemeralIdentity generates a throwaway ECDSA key and self-signed
// certificate. Peers are verified against the system roots unless
// WithRootCAs is given.
func NewEphemeralIdentity(opts ...IdentityOption) (*Identity, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("security/identity: generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, fmt.Errorf("security/identity: serial: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"httpsmgr"},
			CommonName:   "httpsmgr ephemeral identity",
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(ephemeralValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("security/identity: self-sign: %w", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("security/identity: parse self-signed: %w", err)
	}

	id := newIdentity(tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
		Leaf:        leaf,
	}, opts)
	id.ephemeral = true
	return id, nil
}

// LoadIdentity builds an identity from PEM key and certificate material.
// caPEM is optional; when present it becomes the only trusted root pool.
func LoadIdentity(keyPEM, certPEM, caPEM []byte, opts ...IdentityOption) (*Identity, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("security/identity: load key pair: %w", err)
	}
	if cert.Leaf == nil && len(cert.Certificate) > 0 {
		if cert.Leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return nil, fmt.Errorf("security/identity: parse certificate: %w", err)
		}
	}

	if len(caPEM) > 0 {
		pool, err := rootPool(caPEM)
		if err != nil {
			return nil, err
		}
		opts = append([]IdentityOption{WithRootCAs(pool)}, opts...)
	}
	return newIdentity(cert, opts), nil
}

func rootPool(caPEM []byte) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("security/identity: failed to parse CA certificate")
	}
	return pool, nil
}

func newIdentity(cert tls.Certificate, opts []IdentityOption) *Identity {
	id := &Identity{cert: cert, minVersion: tls.VersionTLS12}
	for _, opt := range opts {
		opt(id)
	}
	return id
}

// ClientConfig returns a fresh *tls.Config for one connection to serverName.
// It returns nil once the identity has been closed.
func (i *Identity) ClientConfig(serverName string) *tls.Config {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return nil
	}
	return &tls.Config{
		ServerName:         serverName,
		Certificates:       []tls.Certificate{i.cert},
		RootCAs:            i.roots,
		InsecureSkipVerify: i.skipVerify,
		MinVersion:         i.minVersion,
	}
}

// Ephemeral reports whether the identity was generated rather than loaded.
func (i *Identity) Ephemeral() bool { return i.ephemeral }

// Leaf returns the parsed leaf certificate.
func (i *Identity) Leaf() *x509.Certificate { return i.cert.Leaf }

// Closed reports whether Close has been called.
func (i *Identity) Closed() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.closed
}

// Close drops the key material. Calling it more than once is a no-op.
func (i *Identity) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return
	}
	i.closed = true
	i.cert = tls.Certificate{}
	i.roots = nil
}

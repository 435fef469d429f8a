// Package security holds the TLS identity a transaction manager owns for its
// lifetime.
//
// An identity is either generated (ephemeral ECDSA key, self-signed
// certificate, system roots) or loaded from PEM key, certificate and CA
// material. Each outbound connection gets its own *tls.Config from
// ClientConfig.
//
//	cfg := security.IdentityConfig{
//	    KeyFile:  "/path/to/key.pem",
//	    CertFile: "/path/to/cert.pem",
//	    CAFile:   "/path/to/ca.pem",
//	}
//	id, err := cfg.Build()
//	defer id.Close()
package security

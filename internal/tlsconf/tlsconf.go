// Package tlsconf builds the *tls.Config the acceptor listens with:
// mutually-authenticated TLS 1.2, client certificates verified against a
// single configured CA, with verification depth pinned to 1.
package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/cloudflare/cfssl/helpers"
)

// Options is the subset of config.Config this package consumes.
type Options struct {
	ServerCertPath string
	ServerKeyPath  string
	ClientCAPath   string
	CipherList     []string
}

// errNoIssuer is returned internally when a verified chain's issuer isn't
// the CA itself, i.e. the chain is longer than depth 1.
var errNoIssuer = errors.New("tlsconf: client certificate chain exceeds configured verification depth")

// Build loads the server leaf pair and CA trust anchor and returns a
// *tls.Config ready to hand to tls.NewListener. Client certificates are
// mandatory and must chain to the configured CA trust anchor; the
// cipher list is applied as-is.
func Build(opts Options) (*tls.Config, error) {
	leaf, err := tls.LoadX509KeyPair(opts.ServerCertPath, opts.ServerKeyPath)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: load server cert/key: %w", err)
	}

	caPEM, err := os.ReadFile(opts.ClientCAPath)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: read CA file: %w", err)
	}
	caCert, err := helpers.ParseCertificatePEM(caPEM)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: parse CA certificate: %w", err)
	}
	pool, err := helpers.LoadPEMCertPool(caPEM)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: build CA pool: %w", err)
	}

	ciphers, err := resolveCiphers(opts.CipherList)
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{leaf},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pool,
		MinVersion:   tls.VersionTLS12,
		MaxVersion:   tls.VersionTLS12,
		CipherSuites: ciphers,
		// VerifyPeerCertificate enforces verification depth 1 (direct
		// issuance by the configured CA): crypto/tls's ClientCAs check
		// already proves a chain to the pool exists, but it does not by
		// itself bound the chain length, so depth is re-checked here
		// against the single configured issuer.
		VerifyPeerCertificate: func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error {
			for _, chain := range verifiedChains {
				if len(chain) == 2 && chain[1].Equal(caCert) {
					return nil
				}
			}
			return errNoIssuer
		},
	}
	return cfg, nil
}

var cipherByName = func() map[string]uint16 {
	m := make(map[string]uint16)
	for _, c := range tls.CipherSuites() {
		m[c.Name] = c.ID
	}
	for _, c := range tls.InsecureCipherSuites() {
		m[c.Name] = c.ID
	}
	return m
}()

// resolveCiphers maps the operator-supplied cipher name list onto
// crypto/tls cipher suite IDs, applied as-is (no implicit narrowing
// beyond what the names themselves exclude).
func resolveCiphers(names []string) ([]uint16, error) {
	if len(names) == 0 {
		return nil, nil
	}
	ids := make([]uint16, 0, len(names))
	for _, name := range names {
		id, ok := cipherByName[name]
		if !ok {
			return nil, fmt.Errorf("tlsconf: unknown cipher suite %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

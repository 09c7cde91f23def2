// Package keyload discovers private key files on disk and registers them
// into an internal/registry.Registry at startup.
package keyload

import (
	"crypto/rsa"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/cloudflare/cfssl/helpers"
	"github.com/spf13/afero"

	"go.keyless.dev/server/internal/registry"
)

// FromDir globs "<dir>/*.key" on fs, parses each as a PEM-encoded RSA
// private key, and registers it into reg. Finding zero keys, or any
// parse/registration failure, is a startup-fatal error — this mirrors
// the original kssl_server.c, which refuses to start with an empty or
// partially-loadable key directory.
func FromDir(fs afero.Fs, dir string, reg *registry.Registry) (int, error) {
	paths, err := afero.Glob(fs, filepath.Join(dir, "*.key"))
	if err != nil {
		return 0, fmt.Errorf("keyload: glob %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return 0, fmt.Errorf("keyload: no *.key files found in %s", dir)
	}
	sort.Strings(paths)

	for _, path := range paths {
		pemBytes, err := afero.ReadFile(fs, path)
		if err != nil {
			return 0, fmt.Errorf("keyload: read %s: %w", path, err)
		}
		signer, err := helpers.ParsePrivateKeyPEM(pemBytes)
		if err != nil {
			return 0, fmt.Errorf("keyload: parse %s: %w", path, err)
		}
		rsaKey, ok := signer.(*rsa.PrivateKey)
		if !ok {
			return 0, fmt.Errorf("keyload: %s: %w", path, registry.ErrNotRSA)
		}
		if _, err := reg.Register(rsaKey); err != nil {
			return 0, fmt.Errorf("keyload: %s: %w", path, err)
		}
	}
	reg.Freeze()
	return len(paths), nil
}

package keyload

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"go.keyless.dev/server/internal/registry"
)

func writeKey(t *testing.T, fs afero.Fs, path string) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	require.NoError(t, afero.WriteFile(fs, path, pem.EncodeToMemory(block), 0600))
	return key
}

func TestFromDirLoadsAllKeys(t *testing.T) {
	fs := afero.NewMemMapFs()
	k1 := writeKey(t, fs, "/keys/example.com.key")
	k2 := writeKey(t, fs, "/keys/other.com.key")
	require.NoError(t, afero.WriteFile(fs, "/keys/notes.txt", []byte("ignore me"), 0600))

	reg := registry.New()
	n, err := FromDir(fs, "/keys", reg)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 2, reg.Len())

	for _, k := range []*rsa.PrivateKey{k1, k2} {
		_, err := reg.Find(registry.DigestOf(&k.PublicKey))
		require.NoError(t, err)
	}
}

func TestFromDirEmptyIsFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/keys", 0755))

	reg := registry.New()
	_, err := FromDir(fs, "/keys", reg)
	require.Error(t, err)
}

func TestFromDirRejectsNonRSA(t *testing.T) {
	fs := afero.NewMemMapFs()
	// A malformed/garbage PEM block stands in for a non-RSA key; the
	// parser must reject it rather than registering something bogus.
	block := &pem.Block{Type: "EC PRIVATE KEY", Bytes: []byte("not a real key")}
	require.NoError(t, afero.WriteFile(fs, "/keys/bad.key", pem.EncodeToMemory(block), 0600))

	reg := registry.New()
	_, err := FromDir(fs, "/keys", reg)
	require.Error(t, err)
}

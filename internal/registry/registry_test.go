package registry

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func genKey(t *testing.T, bits int) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, bits)
	require.NoError(t, err)
	return key
}

func TestRegisterFindSignVerify(t *testing.T) {
	r := New()
	key := genKey(t, 2048)
	digest, err := r.Register(key)
	require.NoError(t, err)
	r.Freeze()

	ref, err := r.Find(digest)
	require.NoError(t, err)
	require.Equal(t, key.Size(), ref.ModulusLen())

	sum := sha256.Sum256([]byte("hello keyless"))
	sig, err := ref.Sign(crypto.SHA256, sum[:])
	require.NoError(t, err)
	require.Len(t, sig, key.Size())

	err = rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, sum[:], sig)
	require.NoError(t, err, "signature must verify under the public key")
}

func TestSignIsDeterministic(t *testing.T) {
	r := New()
	key := genKey(t, 2048)
	digest, err := r.Register(key)
	require.NoError(t, err)
	r.Freeze()

	ref, _ := r.Find(digest)
	sum := sha256.Sum256([]byte("same message"))

	sig1, err := ref.Sign(crypto.SHA256, sum[:])
	require.NoError(t, err)
	sig2, err := ref.Sign(crypto.SHA256, sum[:])
	require.NoError(t, err)
	require.True(t, bytes.Equal(sig1, sig2), "RSASSA-PKCS1-v1_5 signatures must be byte-identical across repeats")
}

func TestDecryptRoundTrip(t *testing.T) {
	r := New()
	key := genKey(t, 2048)
	digest, err := r.Register(key)
	require.NoError(t, err)
	r.Freeze()

	ref, _ := r.Find(digest)
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, &key.PublicKey, []byte("top secret"))
	require.NoError(t, err)

	pt1, err := ref.Decrypt(ciphertext)
	require.NoError(t, err)
	require.Equal(t, "top secret", string(pt1))

	pt2, err := ref.Decrypt(ciphertext)
	require.NoError(t, err)
	require.Equal(t, pt1, pt2, "decryption must be idempotent")
}

func TestDecryptBadPaddingFails(t *testing.T) {
	r := New()
	key := genKey(t, 2048)
	digest, err := r.Register(key)
	require.NoError(t, err)
	r.Freeze()

	ref, _ := r.Find(digest)
	junk := make([]byte, key.Size())
	_, err = ref.Decrypt(junk)
	require.ErrorIs(t, err, ErrCryptoFailed)
}

func TestDuplicateDigestRejected(t *testing.T) {
	r := New()
	key := genKey(t, 2048)
	_, err := r.Register(key)
	require.NoError(t, err)
	_, err = r.Register(key)
	require.ErrorIs(t, err, ErrDuplicateDigest)
}

func TestFindUnknownDigest(t *testing.T) {
	r := New()
	r.Freeze()
	var zero [32]byte
	_, err := r.Find(zero)
	require.ErrorIs(t, err, ErrKeyNotFound)
}

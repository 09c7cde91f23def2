// Package registry holds the set of RSA private keys this key server can
// operate with, indexed by the SHA-256 of each key's modulus, and performs
// the signing/decryption primitives the dispatcher asks of it.
package registry

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateDigest is returned by Register when a key with the same
// modulus digest has already been registered. This is a startup error,
// never a runtime condition (registration never happens after Freeze).
var ErrDuplicateDigest = errors.New("registry: duplicate key digest")

// ErrNotRSA is returned when a loaded private key is not an RSA key; this
// server's scope is RSA only.
var ErrNotRSA = errors.New("registry: only RSA keys are supported")

// ErrCryptoFailed is the sentinel wrapped by Sign/Decrypt failures so
// callers can map them onto wire.ErrorKindCryptoFailed without inspecting
// the underlying crypto/rsa error text.
var ErrCryptoFailed = errors.New("registry: crypto operation failed")

// ErrKeyNotFound is returned by Find when no entry matches the digest.
var ErrKeyNotFound = errors.New("registry: key not found")

// KeyRef is an opaque handle to a registered key, returned by Find and
// consumed by Sign/Decrypt. It carries no exported fields so callers
// cannot bypass the registry's lookup.
type KeyRef struct {
	entry *entry
}

type entry struct {
	digest [32]byte
	key    *rsa.PrivateKey
}

// Registry maps SHA-256(modulus) to a private key handle. It is built
// once at startup via Register, then Frozen; all later access is
// concurrent-read-only.
type Registry struct {
	mu      sync.RWMutex
	entries map[[32]byte]*entry
	frozen  bool
}

// New returns an empty registry ready for Register calls.
func New() *Registry {
	return &Registry{entries: make(map[[32]byte]*entry)}
}

// DigestOf computes the SHA-256 of the DER-encoded modulus of pub, the
// key identifier used throughout the wire protocol.
func DigestOf(pub *rsa.PublicKey) [32]byte {
	return sha256.Sum256(pub.N.Bytes())
}

// Register adds key under the SHA-256 digest of its public modulus. It
// is startup-only: calling it after Freeze panics, since the registry's
// whole safety story rests on being immutable once workers start reading
// it.
func (r *Registry) Register(key *rsa.PrivateKey) ([32]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		panic("registry: Register called after Freeze")
	}
	digest := DigestOf(&key.PublicKey)
	if _, exists := r.entries[digest]; exists {
		return digest, fmt.Errorf("%w: %x", ErrDuplicateDigest, digest)
	}
	r.entries[digest] = &entry{digest: digest, key: key}
	return digest, nil
}

// Freeze marks the registry read-only. Called once, after all startup
// key loading has completed.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Len reports the number of registered keys.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Find resolves digest to a KeyRef, or ErrKeyNotFound.
func (r *Registry) Find(digest [32]byte) (KeyRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[digest]
	if !ok {
		return KeyRef{}, ErrKeyNotFound
	}
	return KeyRef{entry: e}, nil
}

// ModulusLen returns the key's modulus length in bytes — also the exact
// byte length of any signature it produces.
func (ref KeyRef) ModulusLen() int {
	return ref.entry.key.Size()
}

// Sign produces an RSASSA-PKCS1-v1_5 signature over digest using hash as
// the declared digest algorithm. The signature's length always equals
// the key's modulus length. Deterministic: repeated calls with the same
// inputs always produce the same signature bytes.
func (ref KeyRef) Sign(hash crypto.Hash, digest []byte) ([]byte, error) {
	sig, err := rsa.SignPKCS1v15(rand.Reader, ref.entry.key, hash, digest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailed, err)
	}
	return sig, nil
}

// Decrypt performs RSAES-PKCS1-v1_5 decryption of ciphertext. Padding
// failures surface as ErrCryptoFailed and, because rsa.DecryptPKCS1v15
// itself is the constant-time implementation the standard library
// maintains precisely to avoid a Bleichenbacher oracle, they are not
// distinguishable by timing from any other crypto failure here.
func (ref KeyRef) Decrypt(ciphertext []byte) ([]byte, error) {
	pt, err := rsa.DecryptPKCS1v15(rand.Reader, ref.entry.key, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailed, err)
	}
	return pt, nil
}

// ParseRSAPrivateKey extracts an *rsa.PrivateKey from a PKCS#1 or PKCS#8
// DER block, rejecting anything that is not RSA.
func ParseRSAPrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSA
	}
	return rsaKey, nil
}

// Package dispatch interprets a parsed request (header + items) against
// the protocol's opcode taxonomy and produces the response bytes,
// consulting the key registry for the actual cryptographic operation.
package dispatch

import (
	"crypto"
	"errors"

	"go.keyless.dev/server/internal/registry"
	"go.keyless.dev/server/internal/wire"
)

// hashByOpcode maps a signing opcode to the digest algorithm it asks for.
// RSA_SIGN_MD5SHA1 uses crypto.MD5SHA1, the TLS 1.0/1.1 combined digest
// recognized by rsa.SignPKCS1v15 as a special case (no ASN.1 prefix).
var hashByOpcode = map[wire.Opcode]crypto.Hash{
	wire.OpRSASignMD5SHA1: crypto.MD5SHA1,
	wire.OpRSASignSHA1:    crypto.SHA1,
	wire.OpRSASignSHA224:  crypto.SHA224,
	wire.OpRSASignSHA256:  crypto.SHA256,
	wire.OpRSASignSHA384:  crypto.SHA384,
	wire.OpRSASignSHA512:  crypto.SHA512,
}

// Registry is the subset of *registry.Registry the dispatcher needs,
// named so tests can substitute a fake without constructing real keys.
type Registry interface {
	Find(digest [32]byte) (registry.KeyRef, error)
}

// Dispatch interprets a validated header (version already checked by the
// caller) and its parsed items, performs the requested operation against
// reg, and returns the complete response bytes under header.ID. Dispatch
// is stateless: every input it needs is a parameter, so it has no
// receiver beyond the registry.
func Dispatch(reg Registry, header wire.Header, items *wire.Items) []byte {
	resp, err := dispatch(reg, items)
	if err != nil {
		kind := wire.ErrorKindInternal
		var de dispatchError
		if errors.As(err, &de) {
			kind = wire.ErrorKind(de)
		}
		out, encErr := wire.EncodeError(header.ID, kind)
		if encErr != nil {
			// Only unreachable if kind encoding itself overflows the
			// 16-bit length field, which a single-byte ERROR item never
			// does; fall back to INTERNAL to avoid a nil response.
			out, _ = wire.EncodeError(header.ID, wire.ErrorKindInternal)
		}
		return out
	}
	out, err := wire.EncodeResponse(header.ID, resp)
	if err != nil {
		out, _ = wire.EncodeError(header.ID, wire.ErrorKindInternal)
	}
	return out
}

// dispatchError carries a wire.ErrorKind through errors.As without
// depending on dispatch exposing its own sentinel values.
type dispatchError wire.ErrorKind

func (e dispatchError) Error() string { return wire.ErrorKind(e).String() }

func dispatch(reg Registry, items *wire.Items) ([]byte, error) {
	opcodeItem, ok := items.Get(wire.TagOpcode)
	if !ok || len(opcodeItem) != 1 {
		return nil, dispatchError(wire.ErrorKindBadOpcode)
	}
	opcode := wire.Opcode(opcodeItem[0])

	if opcode == wire.OpPing {
		payload, ok := items.Get(wire.TagPayload)
		if !ok {
			return nil, dispatchError(wire.ErrorKindFormat)
		}
		return payload, nil
	}

	hash, recognized := hashByOpcode[opcode]
	isDecrypt := opcode == wire.OpRSADecrypt
	if !recognized && !isDecrypt {
		return nil, dispatchError(wire.ErrorKindBadOpcode)
	}

	digestItem, ok := items.Get(wire.TagDigest)
	if !ok || len(digestItem) != wire.DigestLen {
		return nil, dispatchError(wire.ErrorKindFormat)
	}
	payload, ok := items.Get(wire.TagPayload)
	if !ok {
		return nil, dispatchError(wire.ErrorKindFormat)
	}

	var digest [32]byte
	copy(digest[:], digestItem)
	ref, err := reg.Find(digest)
	if err != nil {
		return nil, dispatchError(wire.ErrorKindKeyNotFound)
	}

	if isDecrypt {
		pt, err := ref.Decrypt(payload)
		if err != nil {
			return nil, dispatchError(wire.ErrorKindCryptoFailed)
		}
		return pt, nil
	}

	sig, err := ref.Sign(hash, payload)
	if err != nil {
		return nil, dispatchError(wire.ErrorKindCryptoFailed)
	}
	return sig, nil
}

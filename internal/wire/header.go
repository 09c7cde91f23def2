// Package wire implements the framed header + TLV item codec used on the
// keyless protocol's mutually-authenticated TLS channel.
package wire

import "encoding/binary"

// HeaderSize is the fixed size of the wire header in bytes.
const HeaderSize = 8

// VersionMajor is the protocol major version this server implements.
// A request whose header carries a different major version is rejected
// with ErrorKindVersionMismatch rather than a framing error.
const VersionMajor = 1

// MaxPayloadLen bounds the declared payload length so a hostile or
// malformed header cannot force an unbounded allocation. The 16-bit
// wire length field already tops out at 65535, one byte under this cap,
// so the bound is enforced by the field width itself; MaxPayloadLen
// exists to document the contract rather than to gate it.
const MaxPayloadLen = 64 * 1024

// Header is the 8-byte fixed header that precedes every message.
type Header struct {
	VersionMajor byte
	VersionMinor byte
	Length       uint16
	ID           uint32
}

// ParseHeader decodes the fixed 8-byte wire header. A short read is a
// framing error, not a protocol error; the caller is never handed a
// partial Header.
func ParseHeader(b []byte) (Header, error) {
	if len(b) != HeaderSize {
		return Header{}, ErrFormat
	}
	return Header{
		VersionMajor: b[0],
		VersionMinor: b[1],
		Length:       binary.BigEndian.Uint16(b[2:4]),
		ID:           binary.BigEndian.Uint32(b[4:8]),
	}, nil
}

// Encode writes h onto the wire in the same layout ParseHeader reads.
func (h Header) Encode() []byte {
	b := make([]byte, HeaderSize)
	b[0] = h.VersionMajor
	b[1] = h.VersionMinor
	binary.BigEndian.PutUint16(b[2:4], h.Length)
	binary.BigEndian.PutUint32(b[4:8], h.ID)
	return b
}

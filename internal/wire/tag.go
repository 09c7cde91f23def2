package wire

// Tag identifies an item's meaning within a message payload.
type Tag byte

// Recognized item tags.
const (
	TagDigest   Tag = 0x01
	TagSNI      Tag = 0x02
	TagClientIP Tag = 0x03
	TagOpcode   Tag = 0x11
	TagPayload  Tag = 0x12
	TagResponse Tag = 0xF0
	TagError    Tag = 0xFF
)

// Opcode selects the cryptographic primitive a request asks for.
type Opcode byte

// Recognized opcodes.
const (
	OpPing            Opcode = 0x01
	OpRSASignMD5SHA1  Opcode = 0x02
	OpRSASignSHA1     Opcode = 0x03
	OpRSASignSHA224   Opcode = 0x04
	OpRSASignSHA256   Opcode = 0x05
	OpRSASignSHA384   Opcode = 0x06
	OpRSASignSHA512   Opcode = 0x07
	OpRSADecrypt      Opcode = 0x08
)

// DigestLen is the fixed size of a DIGEST item: SHA-256 of the modulus.
const DigestLen = 32

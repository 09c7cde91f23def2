package wire

// Message is a fully parsed request or response: a validated header plus
// its decoded item set.
type Message struct {
	Header Header
	Items  *Items
}

// EncodeResponse emits a complete response message: the wire header
// (same major/minor as the server, the request's id, and the correct
// payload length) followed by a single RESPONSE item carrying payload.
// EncodeError is the failure counterpart; callers choose by which
// EncodeX function they call, so one message never carries both items.
func EncodeResponse(id uint32, payload []byte) ([]byte, error) {
	items := NewItems()
	items.Set(TagResponse, payload)
	return encodeMessage(id, items)
}

// EncodeError emits an error response carrying a single ERROR item.
func EncodeError(id uint32, kind ErrorKind) ([]byte, error) {
	items := NewItems()
	items.Set(TagError, []byte{byte(kind)})
	return encodeMessage(id, items)
}

func encodeMessage(id uint32, items *Items) ([]byte, error) {
	body, err := items.Encode()
	if err != nil {
		return nil, err
	}
	if len(body) > 0xFFFF {
		return nil, ErrFormat
	}
	h := Header{
		VersionMajor: VersionMajor,
		VersionMinor: 0,
		Length:       uint16(len(body)),
		ID:           id,
	}
	out := make([]byte, 0, HeaderSize+len(body))
	out = append(out, h.Encode()...)
	out = append(out, body...)
	return out, nil
}

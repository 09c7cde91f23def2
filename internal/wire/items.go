package wire

import "encoding/binary"

// itemHeaderSize is tag(1) + length(2).
const itemHeaderSize = 3

// Items is an ordered set of TLV values keyed by tag. Tag uniqueness
// within one message is mandatory, so a map would lose nothing
// observable, but the slice preserves wire order for round-trip tests
// and for deterministic re-encoding.
type Items struct {
	order []Tag
	vals  map[Tag][]byte
}

// NewItems returns an empty, ready-to-use Items set.
func NewItems() *Items {
	return &Items{vals: make(map[Tag][]byte)}
}

// Set adds tag=value, replacing any earlier value for tag. ParseItems
// rejects a duplicate tag before calling Set, so parsed requests are
// never silently merged.
func (it *Items) Set(tag Tag, value []byte) {
	if _, ok := it.vals[tag]; !ok {
		it.order = append(it.order, tag)
	}
	it.vals[tag] = value
}

// Get returns the value for tag and whether it was present.
func (it *Items) Get(tag Tag) ([]byte, bool) {
	v, ok := it.vals[tag]
	return v, ok
}

// Len reports how many distinct tags are present.
func (it *Items) Len() int { return len(it.order) }

// ParseItems consumes payload as a sequence of TLV items until exactly
// len(payload) bytes are drained. It fails on a truncated item, a
// duplicate tag, or residual bytes after the last well-formed item.
func ParseItems(payload []byte) (*Items, error) {
	items := NewItems()
	off := 0
	for off < len(payload) {
		if off+itemHeaderSize > len(payload) {
			return nil, ErrFormat
		}
		tag := Tag(payload[off])
		length := int(binary.BigEndian.Uint16(payload[off+1 : off+3]))
		off += itemHeaderSize
		if off+length > len(payload) {
			return nil, ErrFormat
		}
		if _, dup := items.vals[tag]; dup {
			return nil, ErrFormat
		}
		value := make([]byte, length)
		copy(value, payload[off:off+length])
		items.Set(tag, value)
		off += length
	}
	return items, nil
}

// Encode serializes the items back onto the wire in insertion order.
// It is pure and always succeeds when every value fits the 16-bit
// length field.
func (it *Items) Encode() ([]byte, error) {
	var total int
	for _, tag := range it.order {
		v := it.vals[tag]
		if len(v) > 0xFFFF {
			return nil, ErrFormat
		}
		total += itemHeaderSize + len(v)
	}
	out := make([]byte, 0, total)
	for _, tag := range it.order {
		v := it.vals[tag]
		hdr := make([]byte, itemHeaderSize)
		hdr[0] = byte(tag)
		binary.BigEndian.PutUint16(hdr[1:3], uint16(len(v)))
		out = append(out, hdr...)
		out = append(out, v...)
	}
	return out, nil
}

// Package conn implements the per-connection state machine: header-then-
// payload buffering, dispatch, and a bounded outbound queue, driven by a
// caller that supplies read/write readiness.
package conn

import (
	"go.keyless.dev/server/internal/wire"
)

// Phase is the connection's read state.
type Phase int

const (
	// AwaitHeader is the initial phase: the fixed 8-byte header is
	// being accumulated.
	AwaitHeader Phase = iota
	// AwaitPayload: the header is parsed and a declared-length payload
	// is being accumulated.
	AwaitPayload
	// Closing is terminal: the connection is tearing down.
	Closing
)

// Dispatcher is the subset of internal/dispatch this FSM needs, named so
// tests can substitute a stub without a real registry.
type Dispatcher interface {
	Dispatch(header wire.Header, items *wire.Items) []byte
}

// DispatcherFunc adapts a plain function to the Dispatcher interface.
type DispatcherFunc func(header wire.Header, items *wire.Items) []byte

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(header wire.Header, items *wire.Items) []byte {
	return f(header, items)
}

// FSM holds one connection's buffering state. It has no knowledge of
// sockets or TLS; Feed is handed bytes that were already read off the
// wire, and SendQueue holds the bytes that still need to be written.
// Every method on FSM is single-writer: the owning connection goroutine
// must be the only caller.
type FSM struct {
	phase Phase

	need         int
	fill         int
	header       [wire.HeaderSize]byte
	payload      []byte
	parsedHeader wire.Header

	// discard counts payload bytes of a version-mismatched request that
	// are still to be skipped before the next header begins.
	discard int

	dispatcher Dispatcher
	Queue      SendQueue

	// Overflowed counts responses dropped because Queue was full; it
	// exists purely for observability/logging.
	Overflowed int
}

// New returns an FSM in AwaitHeader, ready to receive bytes via Feed.
func New(d Dispatcher) *FSM {
	f := &FSM{dispatcher: d}
	f.resetToHeader()
	return f
}

func (f *FSM) resetToHeader() {
	f.phase = AwaitHeader
	f.need = wire.HeaderSize
	f.fill = 0
	f.payload = nil
}

// Phase reports the current connection phase.
func (f *FSM) Phase() Phase { return f.phase }

// Closed reports whether the FSM has been told to close (Close was
// called); callers use this to stop driving Feed/Flush.
func (f *FSM) Closed() bool { return f.phase == Closing }

// Close transitions the FSM to Closing. Idempotent.
func (f *FSM) Close() { f.phase = Closing }

// target returns the buffer Feed should be appending into next.
func (f *FSM) target() []byte {
	if f.phase == AwaitHeader {
		return f.header[:]
	}
	return f.payload
}

// Feed appends up to len(b) bytes of newly-read wire data, advancing the
// phase and dispatching whenever a complete header or payload has been
// assembled. It may consume b in more than one logical step if b spans a
// header/payload boundary (Feed loops internally until b is exhausted or
// the connection closes). It returns any complete response frames
// produced as a side effect.
func (f *FSM) Feed(b []byte) (responses [][]byte) {
	for len(b) > 0 && f.phase != Closing {
		if f.discard > 0 {
			n := min(f.discard, len(b))
			f.discard -= n
			b = b[n:]
			continue
		}
		target := f.target()
		room := f.need - f.fill
		if room > len(b) {
			room = len(b)
		}
		copy(target[f.fill:], b[:room])
		f.fill += room
		b = b[room:]

		if f.fill < f.need {
			return responses
		}

		// A complete header or payload has just been filled.
		switch f.phase {
		case AwaitHeader:
			resp, advance := f.onHeaderComplete()
			if resp != nil {
				responses = append(responses, resp)
			}
			if !advance {
				continue
			}
		case AwaitPayload:
			responses = append(responses, f.onPayloadComplete())
		}
	}
	return responses
}

// onHeaderComplete parses the just-filled header. It returns a non-nil
// response if the header itself produced one (VERSION_MISMATCH), and
// advance=false if the caller should keep looping in AwaitHeader (the
// mismatch case resets immediately rather than entering AwaitPayload, and
// the mismatched request's declared payload bytes are skipped).
func (f *FSM) onHeaderComplete() (resp []byte, advance bool) {
	h, err := wire.ParseHeader(f.header[:])
	if err != nil {
		// Framing errors at this layer are unreachable in practice
		// (f.header is always exactly HeaderSize bytes), but close
		// defensively rather than loop forever.
		f.Close()
		return nil, false
	}

	if h.VersionMajor != wire.VersionMajor {
		out, _ := wire.EncodeError(h.ID, wire.ErrorKindVersionMismatch)
		f.resetToHeader()
		f.discard = int(h.Length)
		return out, false
	}

	f.parsedHeader = h
	if h.Length == 0 {
		resp := f.dispatchComplete(h, nil)
		f.resetToHeader()
		return resp, false
	}

	f.phase = AwaitPayload
	f.payload = make([]byte, h.Length)
	f.need = int(h.Length)
	f.fill = 0
	return nil, true
}

func (f *FSM) onPayloadComplete() []byte {
	resp := f.dispatchComplete(f.parsedHeader, f.payload)
	f.resetToHeader()
	return resp
}

// dispatchComplete parses the item TLV stream and calls the dispatcher,
// or synthesizes a FORMAT error response if the payload doesn't parse.
func (f *FSM) dispatchComplete(h wire.Header, payload []byte) []byte {
	items, err := wire.ParseItems(payload)
	if err != nil {
		out, _ := wire.EncodeError(h.ID, wire.KindOf(err))
		return out
	}
	return f.dispatcher.Dispatch(h, items)
}

// Enqueue pushes a complete response frame onto the outbound queue. On
// overflow the buffer is dropped and Overflowed is incremented; the FSM
// itself leaves the connection open — queue overflow is meant to be
// fatal to the connection, but that decision belongs to the caller
// driving the FSM, which should Close after observing overflow.
func (f *FSM) Enqueue(b []byte) error {
	if err := f.Queue.Push(b); err != nil {
		f.Overflowed++
		return err
	}
	return nil
}

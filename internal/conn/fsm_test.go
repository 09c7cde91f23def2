package conn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.keyless.dev/server/internal/wire"
)

func echoDispatcher() Dispatcher {
	return DispatcherFunc(func(h wire.Header, items *wire.Items) []byte {
		payload, _ := items.Get(wire.TagPayload)
		out, _ := wire.EncodeResponse(h.ID, payload)
		return out
	})
}

func buildRequest(t *testing.T, id uint32, opcode wire.Opcode, extra ...wire.Tag) []byte {
	t.Helper()
	items := wire.NewItems()
	items.Set(wire.TagOpcode, []byte{byte(opcode)})
	items.Set(wire.TagPayload, []byte("hello"))
	body, err := items.Encode()
	require.NoError(t, err)
	h := wire.Header{VersionMajor: wire.VersionMajor, Length: uint16(len(body)), ID: id}
	return append(h.Encode(), body...)
}

func TestFSMPingWholeMessageAtOnce(t *testing.T) {
	f := New(echoDispatcher())
	req := buildRequest(t, 0xDEADBEEF, wire.OpPing)

	responses := f.Feed(req)
	require.Len(t, responses, 1)

	h, err := wire.ParseHeader(responses[0][:wire.HeaderSize])
	require.NoError(t, err)
	require.EqualValues(t, 0xDEADBEEF, h.ID)
	require.Equal(t, AwaitHeader, f.Phase())
}

func TestFSMByteAtATime(t *testing.T) {
	f := New(echoDispatcher())
	req := buildRequest(t, 42, wire.OpPing)

	var got [][]byte
	for _, b := range req {
		got = append(got, f.Feed([]byte{b})...)
	}
	require.Len(t, got, 1)
	h, err := wire.ParseHeader(got[0][:wire.HeaderSize])
	require.NoError(t, err)
	require.EqualValues(t, 42, h.ID)
}

func TestFSMVersionMismatchThenNormalRequest(t *testing.T) {
	f := New(echoDispatcher())

	bad := buildRequest(t, 1, wire.OpPing)
	bad[0] = wire.VersionMajor + 1 // corrupt version_major

	good := buildRequest(t, 2, wire.OpPing)

	responses := f.Feed(append(bad, good...))
	require.Len(t, responses, 2)

	items0, err := wire.ParseItems(responses[0][wire.HeaderSize:])
	require.NoError(t, err)
	errVal, ok := items0.Get(wire.TagError)
	require.True(t, ok)
	require.Equal(t, wire.ErrorKindVersionMismatch, wire.ErrorKind(errVal[0]))

	items1, err := wire.ParseItems(responses[1][wire.HeaderSize:])
	require.NoError(t, err)
	_, ok = items1.Get(wire.TagResponse)
	require.True(t, ok)
	require.Equal(t, AwaitHeader, f.Phase())
}

func TestFSMMalformedTLVReturnsFormatAndStaysOpen(t *testing.T) {
	f := New(echoDispatcher())
	// Declares length=10 but the 10 bytes don't parse as complete items.
	h := wire.Header{VersionMajor: wire.VersionMajor, Length: 10, ID: 9}
	raw := append(h.Encode(), []byte{byte(wire.TagPayload), 0x00, 0x0A, 1, 2, 3, 4, 5, 6, 7}...)

	responses := f.Feed(raw)
	require.Len(t, responses, 1)
	items, err := wire.ParseItems(responses[0][wire.HeaderSize:])
	require.NoError(t, err)
	errVal, ok := items.Get(wire.TagError)
	require.True(t, ok)
	require.Equal(t, wire.ErrorKindFormat, wire.ErrorKind(errVal[0]))
	require.Equal(t, AwaitHeader, f.Phase(), "connection must remain open after a FORMAT error")
}

func TestSendQueueBounded(t *testing.T) {
	var q SendQueue
	for i := 0; i < QueueLen; i++ {
		require.NoError(t, q.Push([]byte{byte(i)}))
	}
	require.Equal(t, QueueLen, q.Len())
	err := q.Push([]byte{0xFF})
	require.ErrorIs(t, err, ErrQueueFull)
	require.Equal(t, QueueLen, q.Len(), "a failed push must not grow the queue past QueueLen")
}

func TestSendQueueDrainPartialWrites(t *testing.T) {
	var q SendQueue
	require.NoError(t, q.Push([]byte("hello")))
	require.NoError(t, q.Push([]byte("world")))

	q.Advance(2) // partial write of "he"
	require.Equal(t, "llo", string(q.Head()))
	q.Advance(3) // finishes "hello"
	require.Equal(t, "world", string(q.Head()))
	require.Equal(t, 1, q.Len())
	q.Advance(5)
	require.True(t, q.Empty())
}

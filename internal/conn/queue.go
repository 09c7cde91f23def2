package conn

import "errors"

// QueueLen is the maximum number of pending response buffers a
// connection may hold.
const QueueLen = 16

// ErrQueueFull is returned by SendQueue.Push when the ring is already at
// QueueLen; this is a fatal connection-local condition, never reported
// to the peer.
var ErrQueueFull = errors.New("conn: outbound queue full")

// SendQueue is a fixed-size ring of pending outbound buffers: an
// admission-policy bound, not a data-structure requirement, implemented
// as a small ring so Push/Advance never allocate and the QueueLen bound is
// mechanically impossible to exceed.
type SendQueue struct {
	buf     [QueueLen][]byte
	sent    [QueueLen]int // bytes of buf[i] already written
	r, w, n int
}

// Push enqueues b for transmission. It returns ErrQueueFull, without
// mutating the queue, if the ring is already full — the caller is
// expected to drop b and tear the connection down.
func (q *SendQueue) Push(b []byte) error {
	if q.n == QueueLen {
		return ErrQueueFull
	}
	q.buf[q.w] = b
	q.sent[q.w] = 0
	q.w = (q.w + 1) % QueueLen
	q.n++
	return nil
}

// Len reports the number of buffers currently queued.
func (q *SendQueue) Len() int { return q.n }

// Empty reports whether there is nothing left to send.
func (q *SendQueue) Empty() bool { return q.n == 0 }

// Head returns the unsent tail of the buffer at the front of the queue,
// or nil if the queue is empty.
func (q *SendQueue) Head() []byte {
	if q.n == 0 {
		return nil
	}
	return q.buf[q.r][q.sent[q.r]:]
}

// Advance records that n more bytes of the head buffer were written. If
// the head buffer is now fully sent, it is freed and popped.
func (q *SendQueue) Advance(n int) {
	if q.n == 0 {
		return
	}
	q.sent[q.r] += n
	if q.sent[q.r] >= len(q.buf[q.r]) {
		q.buf[q.r] = nil
		q.r = (q.r + 1) % QueueLen
		q.n--
	}
}

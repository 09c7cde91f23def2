// Package server implements the acceptor/worker/supervisor tier:
// accepting TLS connections on a shared listener, driving each one's
// handshake and Connection FSM, and fanning the listener out across a
// configurable number of worker goroutines.
package server

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go.keyless.dev/server/internal/conn"
	"go.keyless.dev/server/internal/dispatch"
	"go.keyless.dev/server/internal/registry"
	"go.keyless.dev/server/internal/wire"
)

// HandshakeTimeout bounds how long the acceptor waits for a client's TLS
// handshake before giving up on the connection.
const HandshakeTimeout = 10 * time.Second

// acceptOne drives a single accepted raw connection through its TLS
// handshake and, on success, installs and runs a Connection FSM for its
// lifetime. Failures at any step are logged and the raw connection
// closed; they never propagate to the worker's accept loop.
func acceptOne(ctx context.Context, raw net.Conn, tlsCfg *tls.Config, reg *registry.Registry, logger *zap.Logger, idleTimeout time.Duration) {
	id := uuid.New()
	log := logger.With(zap.String("conn", id.String()), zap.String("remote", raw.RemoteAddr().String()))

	tlsConn := tls.Server(raw, tlsCfg)
	hctx, cancel := context.WithTimeout(ctx, HandshakeTimeout)
	defer cancel()
	if err := tlsConn.HandshakeContext(hctx); err != nil {
		log.Debug("TLS handshake failed", zap.Error(err))
		_ = tlsConn.Close()
		return
	}

	dispatcher := conn.DispatcherFunc(func(h wire.Header, items *wire.Items) []byte {
		return dispatch.Dispatch(reg, h, items)
	})
	fsm := conn.New(dispatcher)

	runConnection(tlsConn, fsm, log, idleTimeout)
}

// runConnection drives fsm to completion against tlsConn: read whatever
// is available, feed it to the FSM, flush any responses it produced, and
// repeat until the peer closes or a transport error occurs. This is the
// goroutine-per-connection rendering of the read/write loop a manually-
// multiplexed epoll loop would otherwise drive; blocking Read/Write calls
// inside one goroutine per connection is the idiomatic Go equivalent.
func runConnection(tlsConn *tls.Conn, fsm *conn.FSM, log *zap.Logger, idleTimeout time.Duration) {
	defer closeConn(tlsConn, log)

	buf := make([]byte, 16*1024)
	for !fsm.Closed() {
		if idleTimeout > 0 {
			if err := tlsConn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
				log.Debug("failed to set read deadline", zap.Error(err))
			}
		}

		n, err := tlsConn.Read(buf)
		if n > 0 {
			responses := fsm.Feed(buf[:n])
			if !flushResponses(tlsConn, fsm, responses, log) {
				return
			}
		}
		if err != nil {
			logReadOutcome(log, err)
			return
		}
	}
}

// flushResponses enqueues each response and writes out the queue's
// current head-to-tail contents. It returns false if the connection
// should be torn down (queue overflow or write failure).
func flushResponses(w net.Conn, fsm *conn.FSM, responses [][]byte, log *zap.Logger) bool {
	for _, resp := range responses {
		if err := fsm.Enqueue(resp); err != nil {
			log.Warn("outbound queue full, dropping response and closing connection",
				zap.Int("overflowed", fsm.Overflowed))
			return false
		}
	}
	for !fsm.Queue.Empty() {
		head := fsm.Queue.Head()
		n, err := w.Write(head)
		if n > 0 {
			fsm.Queue.Advance(n)
		}
		if err != nil {
			log.Debug("write failed, closing connection", zap.Error(err))
			return false
		}
	}
	return true
}

func logReadOutcome(log *zap.Logger, err error) {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		log.Debug("idle timeout, closing connection")
		return
	}
	log.Debug("connection closed", zap.Error(err))
}

func closeConn(c net.Conn, log *zap.Logger) {
	if err := c.Close(); err != nil {
		log.Debug("error closing connection", zap.Error(err))
	}
}

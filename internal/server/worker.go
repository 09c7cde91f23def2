package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"go.keyless.dev/server/internal/registry"
	"go.keyless.dev/server/utils"
)

// Worker runs its own accept loop against a shared listener: each worker
// inherits the socket and runs its own event loop. All connections a
// Worker accepts are handled by goroutines it spawns and waits on; a
// Worker never touches another Worker's connections.
type Worker struct {
	ID          int
	Listener    net.Listener
	TLSConfig   *tls.Config
	Registry    *registry.Registry
	Logger      *zap.Logger
	IdleTimeout time.Duration
}

// Run accepts connections until ctx is cancelled or the listener is
// closed, spawning one goroutine per accepted connection and waiting for
// all of them to finish before returning — this is what makes shutdown
// deterministic.
func (w *Worker) Run(ctx context.Context) error {
	log := w.Logger.With(zap.Int("worker", w.ID))
	var inFlight sync.WaitGroup
	defer inFlight.Wait()

	for {
		raw, err := w.Listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info("worker stopping: listener closed")
				return nil
			}
			log.Warn("accept failed, continuing", zap.Error(err))
			continue
		}

		inFlight.Add(1)
		go func() {
			defer inFlight.Done()
			defer utils.HandlePanic(log)
			acceptOne(ctx, raw, w.TLSConfig, w.Registry, log, w.IdleTimeout)
		}()
	}
}

package server

import (
	"context"
	"crypto/tls"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go.keyless.dev/server/internal/registry"
)

// MaxWorkers and MinWorkers bound the configurable worker count.
const (
	MinWorkers = 1
	MaxWorkers = 32
)

// Config configures a Supervisor's single Run call.
type Config struct {
	Listener    net.Listener
	TLSConfig   *tls.Config
	Registry    *registry.Registry
	Logger      *zap.Logger
	NumWorkers  int
	IdleTimeout time.Duration
	PIDFile     string
}

// Run fans the shared listener out across NumWorkers Worker
// goroutines and brings them all down together on ctx cancellation:
// closing the shared listener on cancellation and waiting on errgroup
// is the goroutine-native equivalent of signaling and reaping worker
// processes.
func Run(ctx context.Context, cfg Config) error {
	if cfg.NumWorkers < MinWorkers || cfg.NumWorkers > MaxWorkers {
		return &ConfigError{Field: "NumWorkers", Reason: "must be between 1 and 32"}
	}

	if cfg.PIDFile != "" {
		if err := writePIDFile(cfg.PIDFile); err != nil {
			return err
		}
		defer func() { _ = os.Remove(cfg.PIDFile) }()
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.NumWorkers; i++ {
		w := &Worker{
			ID:          i,
			Listener:    cfg.Listener,
			TLSConfig:   cfg.TLSConfig,
			Registry:    cfg.Registry,
			Logger:      cfg.Logger,
			IdleTimeout: cfg.IdleTimeout,
		}
		g.Go(func() error { return w.Run(gctx) })
	}

	// A second goroutine closes the shared listener as soon as ctx is
	// cancelled, which is what actually unblocks every worker's
	// Accept() call so they can observe ctx.Err() and exit.
	g.Go(func() error {
		<-gctx.Done()
		return cfg.Listener.Close()
	})

	return g.Wait()
}

// ConfigError reports an invalid Supervisor configuration, a fatal
// startup error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "server: invalid " + e.Field + ": " + e.Reason
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644)
}

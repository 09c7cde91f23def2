package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go.keyless.dev/server/config"
	"go.keyless.dev/server/internal/keyload"
	"go.keyless.dev/server/internal/registry"
	"go.keyless.dev/server/internal/server"
	"go.keyless.dev/server/internal/tlsconf"
	"go.keyless.dev/server/utils"
)

var sentryDSN string

func newServeCmd(logger *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the keyless server and listen for signing/decryption requests",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(logger)
		},
	}
	cmd.Flags().StringVar(&sentryDSN, "sentry-dsn", "", "optional Sentry DSN for fatal startup errors")
	return cmd
}

func runServe(logger *zap.Logger) error {
	if err := utils.SentryInit(sentryDSN); err != nil {
		logger.Warn("sentry init failed, continuing without crash reporting", zap.Error(err))
	}

	v := config.New(configPath)
	cfg, err := config.Load(v)
	if err != nil {
		return fatal(logger, fmt.Errorf("loading config: %w", err))
	}
	cfg.Debug = cfg.Debug || debugMode
	cfg.Silent = cfg.Silent || silentMode

	if err := cfg.Validate(); err != nil {
		return fatal(logger, err)
	}

	reg := registry.New()
	n, err := keyload.FromDir(afero.NewOsFs(), cfg.PrivateKeyDir, reg)
	if err != nil {
		return fatal(logger, fmt.Errorf("loading keys from %s: %w", cfg.PrivateKeyDir, err))
	}
	logger.Info("loaded private keys", zap.Int("count", n))

	tlsCfg, err := tlsconf.Build(tlsconf.Options{
		ServerCertPath: cfg.ServerCertPath,
		ServerKeyPath:  cfg.ServerKeyPath,
		ClientCAPath:   cfg.ClientCAPath,
		CipherList:     cfg.CipherList,
	})
	if err != nil {
		return fatal(logger, fmt.Errorf("building TLS config: %w", err))
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fatal(logger, fmt.Errorf("listening on port %d: %w", cfg.Port, err))
	}
	logger.Info("listening", zap.Uint32("port", cfg.Port), zap.Int("workers", cfg.NumWorkers))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx, server.Config{
		Listener:    ln,
		TLSConfig:   tlsCfg,
		Registry:    reg,
		Logger:      logger,
		NumWorkers:  cfg.NumWorkers,
		IdleTimeout: cfg.IdleTimeout,
		PIDFile:     cfg.PIDFile,
	})
}

// fatal reports err to the crash reporter (if configured) before
// returning it, so an operator running with --sentry-dsn gets visibility
// into startup failures without any per-connection data ever touching
// the reporter.
func fatal(logger *zap.Logger, err error) error {
	utils.CaptureFatal(logger, err)
	return err
}

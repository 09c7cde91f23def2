// Package cmd wires the key server's cobra CLI: flag/config parsing,
// logger construction, and dispatch into the serve subcommand that
// actually starts listening (internal/server.Run).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go.keyless.dev/server/utils"
)

// Version is overridden at build time via -ldflags.
var Version = "dev"

var (
	debugMode  bool
	silentMode bool
	configPath string
)

// Execute builds the root command tree and runs it; this is the only
// function cmd/keyless/main.go calls.
//
// The logger has to exist before cobra parses anything, since every
// subcommand's RunE logs through it — so debug/silent are scanned out of
// os.Args directly first, ahead of cobra's own flag parsing.
func Execute() {
	debugMode = hasFlag(os.Args[1:], "--debug")
	silentMode = hasFlag(os.Args[1:], "--silent")

	logger, err := utils.NewLogger(debugMode, silentMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	rootCmd := newRootCmd(logger)
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func hasFlag(args []string, name string) bool {
	for _, a := range args {
		if a == name {
			return true
		}
	}
	return false
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:     "keyless-server",
		Short:   "A Keyless SSL protocol key server",
		Version: Version,
	}

	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&silentMode, "silent", false, "log errors only")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newServeCmd(logger))
	return root
}

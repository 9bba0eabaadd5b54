package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Siasom1/devchain/config"
	"github.com/Siasom1/devchain/log"
	"github.com/Siasom1/devchain/node"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configDir string

// RootCmd is the devchain binary.
var RootCmd = &cobra.Command{
	Use:   "devchain",
	Short: "Local Ethereum development chain",
	Long: `devchain runs an in-memory Ethereum chain for local development,
seeded with accounts from a JSON file or from the command line.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		l, logErr := log.NewLogger(&log.Config{Level: "debug", Format: "console"})
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding the .env file")
}

// setup loads the configuration and builds the logger every command uses.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := log.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// serve starts n with start and keeps it running until SIGINT or SIGTERM.
func serve(ctx context.Context, n *node.Node, start func(context.Context) error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := start(ctx); err != nil {
		return err
	}
	defer n.Stop()

	<-ctx.Done()
	n.Logger.Info("shutting down")
	return nil
}

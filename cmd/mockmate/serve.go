package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jxucoder/mockmate"
	"github.com/jxucoder/mockmate/internal/config"
	"github.com/jxucoder/mockmate/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MockMate server",
	Long: `Start the HTTP relay. Settings come from the environment and
~/.mockmate/config.env; environment variables win.`,
	RunE: runServe,
}

var serveMemory bool

func init() {
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "Keep saved interviews in memory instead of SQLite")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if serveMemory {
		cfg.Store = "memory"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := mockmate.NewBuilder().
		WithConfig(cfg).
		WithLogger(logger).
		Build(ctx)
	if err != nil {
		return err
	}
	return app.Start(ctx)
}

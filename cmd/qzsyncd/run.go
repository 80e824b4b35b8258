package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"qzsync/internal/logging"
	"qzsync/internal/store"
	"qzsync/internal/workflow"
)

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the mirror daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd, cmdCtx)
		},
	}
}

func runDaemon(cmd *cobra.Command, cmdCtx *commandContext) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := cmdCtx.ensureLogger()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	// Single instance per database: two daemons walking the same listing
	// would double-deliver.
	lock := flock.New(filepath.Join(filepath.Dir(cfg.Bot.Storage.Database), "qzsyncd.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another qzsyncd instance is already running")
	}
	defer lock.Unlock()

	st, err := store.Open(cfg.Bot.Storage.Database)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}
	defer st.Close()

	manager, err := workflow.NewManager(ctx, cfg, st, nil, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	if err := manager.Start(ctx); err != nil {
		return err
	}
	logger.Info("daemon started", logging.Int64("uin", cfg.Qzone.Uin))

	<-ctx.Done()
	logger.Info("shutting down")
	manager.Stop()
	return nil
}

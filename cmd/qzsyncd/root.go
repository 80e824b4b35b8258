package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"qzsync/internal/config"
	"qzsync/internal/logging"
)

type commandContext struct {
	configPath string

	cfg    *config.Config
	logger *slog.Logger
}

// ensureConfig loads and caches the configuration for the invocation.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, _, _, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	c.logger = logger
	return logger, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	root := &cobra.Command{
		Use:           "qzsyncd",
		Short:         "Mirror a Qzone timeline into a chat",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&ctx.configPath, "config", "", "path to config file")

	root.AddCommand(
		newRunCommand(ctx),
		newConfigCommand(ctx),
		newStatusCommand(ctx),
		newCleanCommand(ctx),
	)
	return root
}

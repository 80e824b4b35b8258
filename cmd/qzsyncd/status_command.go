package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"qzsync/internal/store"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show storage counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Bot.Storage.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Metric", "Count"})
			t.AppendRows([]table.Row{
				{"feeds", stats.Feeds},
				{"delivered feeds", stats.Delivered},
				{"messages", stats.Messages},
				{"blocked accounts", stats.Blocked},
				{"cached cookies", stats.Cookies},
			})
			t.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "database: %s\n", st.Path())
			return nil
		},
	}
}

func newCleanCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Prune feeds past the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Bot.Storage.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			removed, err := st.Clean(cmd.Context(), cfg.Retention())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d feeds\n", removed)
			return nil
		},
	}
}

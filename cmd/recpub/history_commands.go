package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recpub/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(ctx, cmd, 20)
		},
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(ctx, cmd, limit)
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer func() { _ = store.Close() }()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", removed)
			return nil
		},
	}

	historyCmd.AddCommand(listCmd)
	historyCmd.AddCommand(clearCmd)
	return historyCmd
}

func runHistoryList(ctx *commandContext, cmd *cobra.Command, limit int) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer func() { _ = store.Close() }()

	runs, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		detail := run.ErrorMessage
		if detail == "" {
			detail = run.BaseName
		}
		rows = append(rows, []string{
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			shortID(run.ID),
			run.State,
			detail,
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Started", "Run", "State", "Detail"}, rows))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

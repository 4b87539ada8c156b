package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rasterprep/internal/ledger"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg.Paths.LedgerDir)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
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
				rows = append(rows, []string{
					shortRunID(run.ID),
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					runDuration(run),
					run.Method,
					yesNo(run.DryRun),
					fmt.Sprint(run.Processed),
					fmt.Sprint(run.Skipped),
					fmt.Sprint(run.Errored),
				})
			}
			headers := []string{"Run", "Started", "Duration", "Method", "Dry run", "Processed", "Skipped", "Errored"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runDuration(run ledger.Run) string {
	if run.FinishedAt.IsZero() {
		return "running"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
}

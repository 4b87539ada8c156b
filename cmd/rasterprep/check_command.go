package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rasterprep/internal/deps"
	"rasterprep/internal/raster"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the external raster tools are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			backend, err := raster.MethodBackend(cfg.Pansharp.Method)
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.ForBackend(backend))
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				state := "ok"
				if !status.Available {
					state = status.Detail
				}
				rows = append(rows, []string{status.Name, status.Description, state})
			}

			out := cmd.OutOrStdout()
			configureColor(out)
			fmt.Fprintln(out, renderTable([]string{"Tool", "Used for", "Status"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft}))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				warnf(out, "%d required tool(s) missing; runs with method %s will fail\n", len(missing), cfg.Pansharp.Method)
				return nil
			}
			successf(out, "all tools for method %s are available\n", cfg.Pansharp.Method)
			return nil
		},
	}
}

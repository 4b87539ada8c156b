package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rasterprep/internal/config"
	"rasterprep/internal/imagery"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set base_dir to your imagery archive before running rasterprep.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", resolved)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			patterns := make([]string, 0, len(cfg.Patterns()))
			for _, p := range cfg.Patterns() {
				marker := imagery.MarkerPattern{Mul: p.MulMarker, Pan: p.PanMarker}
				patterns = append(patterns, p.MulGlob+" / "+p.PanGlob+" ("+marker.String()+")")
			}

			rows := [][]string{
				{"Base directory", cfg.Paths.BaseDir},
				{"Log directory", cfg.Paths.LogDir},
				{"Ledger directory", cfg.Paths.LedgerDir},
				{"Pair patterns", strings.Join(patterns, "\n")},
				{"Sharpened globs", strings.Join(cfg.Discovery.PshGlobs, "\n")},
				{"Extensions", strings.Join(cfg.Discovery.Extensions, " ")},
				{"Pansharpen method", cfg.Pansharp.Method},
				{"RAM budget (MiB)", fmt.Sprint(cfg.Pansharp.RAMMB)},
				{"Overwrite", yesNo(cfg.Pipeline.Overwrite)},
				{"Dry run", yesNo(cfg.Pipeline.DryRun)},
				{"Delete intermediates", yesNo(cfg.Pipeline.DeleteIntermediate)},
				{"COG conversion", yesNo(cfg.Pipeline.Cog)},
				{"Tile CSV report", yesNo(cfg.Reports.TileManifest)},
				{"Image CSV report", yesNo(cfg.Reports.ImageOutcomes)},
				{"Log format", cfg.Logging.Format},
				{"Log level", cfg.Logging.Level},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}
}

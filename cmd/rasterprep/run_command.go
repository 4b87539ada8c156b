package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"rasterprep/internal/config"
	"rasterprep/internal/deps"
	"rasterprep/internal/discover"
	"rasterprep/internal/imagery"
	"rasterprep/internal/ledger"
	"rasterprep/internal/logging"
	"rasterprep/internal/pipeline"
	"rasterprep/internal/raster"
	"rasterprep/internal/raster/gdalcli"
	"rasterprep/internal/raster/otb"
	"rasterprep/internal/report"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun             bool
		overwrite          bool
		deleteIntermediate bool
		cog                bool
		method             string
		ramMB              int
		tileCSV            bool
		imageCSV           bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Discover acquisitions and drive them through the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// Flags override the config only when given explicitly.
			flags := cmd.Flags()
			if flags.Changed("dry-run") {
				cfg.Pipeline.DryRun = dryRun
			}
			if flags.Changed("overwrite") {
				cfg.Pipeline.Overwrite = overwrite
			}
			if flags.Changed("delete-intermediate") {
				cfg.Pipeline.DeleteIntermediate = deleteIntermediate
			}
			if flags.Changed("cog") {
				cfg.Pipeline.Cog = cog
			}
			if flags.Changed("method") {
				cfg.Pansharp.Method = method
				if _, err := raster.MethodBackend(method); err != nil {
					return err
				}
			}
			if flags.Changed("ram") {
				cfg.Pansharp.RAMMB = ramMB
			}
			if flags.Changed("csv") {
				cfg.Reports.TileManifest = tileCSV
			}
			if flags.Changed("log-csv") {
				cfg.Reports.ImageOutcomes = imageCSV
			}

			return runPipeline(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan and log every decision without invoking external tools")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Reprocess outputs that already exist")
	cmd.Flags().BoolVar(&deleteIntermediate, "delete-intermediate", false, "Delete intermediates after a successful image, keeping band files")
	cmd.Flags().BoolVar(&cog, "cog", false, "Convert final band outputs to Cloud-Optimized GeoTIFF")
	cmd.Flags().StringVar(&method, "method", "", "Pansharpen method (otb-bayes, gdal-cubic, ...)")
	cmd.Flags().IntVar(&ramMB, "ram", 0, "RAM budget for the pansharpen backend, in MiB")
	cmd.Flags().BoolVar(&tileCSV, "csv", false, "Write the discovered-tile CSV manifest")
	cmd.Flags().BoolVar(&imageCSV, "log-csv", false, "Write the per-image outcome CSV")

	return cmd
}

func runPipeline(cmd *cobra.Command, cfg *config.Config) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.ForRun(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// One run per base directory: concurrent runs would race on prep
	// folders and the skip-if-exists checks.
	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "rasterprep.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another rasterprep run is already processing %s", cfg.Paths.BaseDir)
	}
	defer func() { _ = lock.Unlock() }()

	runID := uuid.NewString()
	logger = logger.With(logging.String(logging.FieldRunID, runID))
	logger.Info("starting run",
		logging.String("base_dir", cfg.Paths.BaseDir),
		logging.String("method", cfg.Pansharp.Method),
		logging.Bool("dry_run", cfg.Pipeline.DryRun))

	store, err := ledger.Open(cfg.Paths.LedgerDir)
	if err != nil {
		return fmt.Errorf("open run ledger: %w", err)
	}
	defer store.Close()

	tiles, problems, err := discoverTiles(signalCtx, logger, cfg)
	if err != nil {
		return err
	}
	for _, problem := range problems {
		logger.Warn("skipped candidate",
			logging.String("candidate", problem.Candidate),
			logging.String("reason", problem.Reason))
	}

	if err := store.BeginRun(signalCtx, runID, cfg.Paths.BaseDir, cfg.Pansharp.Method, cfg.Pipeline.DryRun); err != nil {
		logger.Warn("ledger write failed", logging.Error(err))
	}

	// Dry runs never invoke tools, so missing binaries only block real runs.
	if !cfg.Pipeline.DryRun {
		if err := deps.CheckBackend(cfg.Pansharp.Method); err != nil {
			return err
		}
	}

	tools, err := buildToolset(logger, cfg.Pansharp.Method)
	if err != nil {
		return err
	}
	orch := pipeline.New(logger, tools, store, pipeline.Options{
		DryRun:             cfg.Pipeline.DryRun,
		Overwrite:          cfg.Pipeline.Overwrite,
		DeleteIntermediate: cfg.Pipeline.DeleteIntermediate,
		Cog:                cfg.Pipeline.Cog,
		Method:             cfg.Pansharp.Method,
		RAMBudgetMB:        cfg.Pansharp.RAMMB,
	})

	summary, images, err := orch.Run(signalCtx, runID, tiles)
	if err != nil {
		return err
	}
	if err := store.FinishRun(context.Background(), runID, summary.Processed, summary.AlreadyDone, summary.Errored); err != nil {
		logger.Warn("ledger write failed", logging.Error(err))
	}

	writeReports(logger, cfg, tiles, images)
	printSummary(cmd, summary, len(problems))
	return nil
}

func discoverTiles(ctx context.Context, logger *slog.Logger, cfg *config.Config) ([]*imagery.Tile, []discover.Problem, error) {
	patterns := make([]discover.Pattern, 0, len(cfg.Patterns()))
	for _, p := range cfg.Patterns() {
		patterns = append(patterns, discover.Pattern{
			MulGlob: p.MulGlob,
			PanGlob: p.PanGlob,
			Marker:  imagery.MarkerPattern{Mul: p.MulMarker, Pan: p.PanMarker},
		})
	}
	engine := discover.New(logger, discover.Options{
		BaseDir:    cfg.Paths.BaseDir,
		Patterns:   patterns,
		PshGlobs:   cfg.Discovery.PshGlobs,
		Extensions: cfg.Discovery.Extensions,
	})
	return engine.Discover(ctx)
}

func buildToolset(logger *slog.Logger, method string) (raster.Toolset, error) {
	backend, err := raster.MethodBackend(method)
	if err != nil {
		return raster.Toolset{}, err
	}

	gdal := gdalcli.New(logger)
	tools := raster.Toolset{Merge: gdal, Split: gdal, Cog: gdal}
	switch backend {
	case raster.BackendOTB:
		otbClient := otb.New(logger)
		tools.Pansharp = otbClient
		tools.Rescale = otbClient
	default:
		tools.Pansharp = gdal
		tools.Rescale = gdal
	}
	return tools, nil
}

func writeReports(logger *slog.Logger, cfg *config.Config, tiles []*imagery.Tile, images []*imagery.Image) {
	if cfg.Reports.TileManifest {
		path, err := report.WriteTileManifest(filepath.Join(cfg.Paths.LogDir, "tiles.csv"), tiles)
		if err != nil {
			logger.Warn("tile report failed", logging.Error(err))
		} else {
			logger.Info("wrote tile manifest", logging.String("path", path))
		}
	}
	if cfg.Reports.ImageOutcomes {
		path, err := report.WriteImageOutcomes(filepath.Join(cfg.Paths.LogDir, "images.csv"), images)
		if err != nil {
			logger.Warn("image report failed", logging.Error(err))
		} else {
			logger.Info("wrote image outcomes", logging.String("path", path))
		}
	}
}

func printSummary(cmd *cobra.Command, summary pipeline.Summary, problems int) {
	out := cmd.OutOrStdout()
	configureColor(out)

	rows := [][]string{
		{"Tiles discovered", fmt.Sprint(summary.Tiles)},
		{"Images", fmt.Sprint(summary.Images)},
		{"Processed", fmt.Sprint(summary.Processed)},
		{"Already done", fmt.Sprint(summary.AlreadyDone)},
		{"Errored tiles", fmt.Sprint(summary.Errored)},
		{"Errored images", fmt.Sprint(summary.ErroredImages)},
		{"Discovery problems", fmt.Sprint(problems)},
		{"Pansharpened", fmt.Sprint(summary.Pansharpened)},
		{"Already sharpened", fmt.Sprint(summary.AlreadySharpened)},
		{"High bit depth", fmt.Sprint(summary.HighBit)},
		{"8-bit source", fmt.Sprint(summary.EightBit)},
		{"Merged (multi-tile)", fmt.Sprint(summary.MergedImages)},
		{"Single tile", fmt.Sprint(summary.SingleTile)},
		{"Band files written", fmt.Sprint(summary.BandFilesSplit)},
	}
	fmt.Fprintln(out, renderTable([]string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))

	if summary.Errored > 0 || summary.ErroredImages > 0 {
		warnf(out, "run finished with failures: %d tile(s), %d image(s)\n", summary.Errored, summary.ErroredImages)
	} else {
		successf(out, "run finished cleanly\n")
	}
}

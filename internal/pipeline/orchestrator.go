// Package pipeline drives discovered work units through their
// processing plans: per-tile pansharpen and rescale, then per-image
// merge, band split, and optional COG conversion and cleanup. One unit
// is fully processed before the next begins, and a unit's error halts
// only that unit's remaining steps.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"rasterprep/internal/imagery"
	"rasterprep/internal/ledger"
	"rasterprep/internal/logging"
	"rasterprep/internal/manifest"
	"rasterprep/internal/raster"
)

// Options carries the run switches.
type Options struct {
	DryRun             bool
	Overwrite          bool
	DeleteIntermediate bool
	Cog                bool
	Method             string
	RAMBudgetMB        int
}

// Summary aggregates the run outcome. A run always completes and
// reports these counts, even under partial failure.
type Summary struct {
	Tiles  int
	Images int

	Processed   int // tiles with at least one stage executed
	AlreadyDone int // tiles whose every stage was already satisfied
	Errored     int // tiles that recorded an error

	Pansharpened     int // tiles carrying a psh step
	AlreadySharpened int // tiles discovered as sharpened assets
	HighBit          int // tiles with a non-8-bit source
	EightBit         int

	MergedImages   int
	SingleTile     int
	ErroredImages  int
	BandFilesSplit int
}

// Orchestrator executes plans against the external tool collaborators.
type Orchestrator struct {
	tools  raster.Toolset
	store  *ledger.Store
	logger *slog.Logger
	opts   Options
}

// New constructs an Orchestrator. store may be nil when no ledger is
// wanted (dry planning without history).
func New(logger *slog.Logger, tools raster.Toolset, store *ledger.Store, opts Options) *Orchestrator {
	return &Orchestrator{
		tools:  tools,
		store:  store,
		logger: logging.WithComponent(logger, "pipeline"),
		opts:   opts,
	}
}

// Run processes every tile, groups them into images, and processes
// every image. Individual failures are recorded on their unit; the only
// run-fatal error is context cancellation.
func (o *Orchestrator) Run(ctx context.Context, runID string, tiles []*imagery.Tile) (Summary, []*imagery.Image, error) {
	summary := Summary{Tiles: len(tiles)}

	for _, tile := range tiles {
		if err := ctx.Err(); err != nil {
			return summary, nil, err
		}
		o.countTile(&summary, tile)
		o.runTile(ctx, runID, tile, &summary)
	}

	// The per-image pass must not start until every tile's terminal
	// state is known: an image's tile list holds processed outputs.
	images := imagery.GroupTiles(tiles)
	summary.Images = len(images)
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return summary, images, err
		}
		o.runImage(ctx, runID, img, &summary)
	}

	o.logger.Info("run complete",
		logging.Int("tiles", summary.Tiles),
		logging.Int("images", summary.Images),
		logging.Int("processed", summary.Processed),
		logging.Int("already_done", summary.AlreadyDone),
		logging.Int("errored", summary.Errored))
	return summary, images, nil
}

func (o *Orchestrator) countTile(summary *Summary, tile *imagery.Tile) {
	if tile.Sharpened() {
		summary.AlreadySharpened++
	} else {
		summary.Pansharpened++
	}
	if tile.DType == imagery.DTypeUInt8 {
		summary.EightBit++
	} else {
		summary.HighBit++
	}
}

func (o *Orchestrator) runTile(ctx context.Context, runID string, tile *imagery.Tile, summary *Summary) {
	logger := o.logger.With(
		logging.FieldImage, tile.ImageFolder,
		logging.FieldTile, path.Base(o.tileSource(tile)))

	var ledgerID int64
	if o.store != nil {
		id, err := o.store.RecordTile(ctx, runID, tile)
		if err != nil {
			logger.Warn("ledger write failed", logging.Error(err))
		} else {
			ledgerID = id
		}
	}

	executed := 0
	prog := newProgress(tile)
	for {
		step, ok := prog.pending()
		if !ok || tile.Errored() {
			break
		}
		var outcome stageOutcome
		switch step {
		case imagery.StepPansharp:
			outcome = o.pansharpTile(ctx, logger, tile, prog)
		case imagery.StepScale:
			outcome = o.scaleTile(ctx, logger, tile, prog)
		default:
			prog.complete(tile.LastOutput)
		}
		if outcome == stageExecuted {
			executed++
		}
	}

	status := ledger.StatusDone
	switch {
	case tile.Errored():
		summary.Errored++
		status = ledger.StatusFailed
		logger.Error("tile failed", logging.String("error", tile.Err))
	case executed > 0:
		summary.Processed++
	default:
		summary.AlreadyDone++
		status = ledger.StatusSkipped
	}

	if o.store != nil && ledgerID != 0 {
		if err := o.store.UpdateTile(ctx, ledgerID, status, tile.LastOutput, tile.Err); err != nil {
			logger.Warn("ledger update failed", logging.Error(err))
		}
	}
}

// stageOutcome classifies one stage attempt for summary accounting.
type stageOutcome int

const (
	stageFailed stageOutcome = iota
	stageExecuted
	stageSkipped
)

func (o *Orchestrator) pansharpTile(ctx context.Context, logger *slog.Logger, tile *imagery.Tile, prog *progress) stageOutcome {
	name := imagery.PansharpName(tile.PanTile, tile.Pattern, o.opts.Method, tile.DType)
	destRel := path.Join(tile.ImageFolder, tile.PrepFolder, name)
	destAbs := o.abs(tile.BaseDir, destRel)

	if o.skipExisting(logger, "psh", destAbs) {
		prog.complete(destRel)
		return stageSkipped
	}
	if o.opts.DryRun {
		logger.Info("dry-run: would pansharpen", logging.String("out", destRel))
		prog.complete(destRel)
		return stageSkipped
	}

	_, err := o.tools.Pansharp.Pansharpen(ctx, raster.PansharpRequest{
		Multispectral: o.abs(tile.BaseDir, tile.MulTile),
		Panchromatic:  o.abs(tile.BaseDir, tile.PanTile),
		Method:        o.opts.Method,
		RAMBudgetMB:   o.opts.RAMBudgetMB,
		OutPath:       destAbs,
		OutDType:      tile.DType,
	})
	if err != nil {
		tile.SetError(fmt.Sprintf("pansharpen: %v", err))
		return stageFailed
	}
	logger.Info("pansharpened", logging.String("out", destRel))
	prog.complete(destRel)
	return stageExecuted
}

func (o *Orchestrator) scaleTile(ctx context.Context, logger *slog.Logger, tile *imagery.Tile, prog *progress) stageOutcome {
	inputRel := prog.input()
	name := imagery.ScaleName(inputRel, tile.DType)
	destRel := path.Join(tile.ImageFolder, tile.PrepFolder, name)
	destAbs := o.abs(tile.BaseDir, destRel)

	if o.skipExisting(logger, "scale", destAbs) {
		prog.complete(destRel)
		return stageSkipped
	}
	if o.opts.DryRun {
		logger.Info("dry-run: would rescale", logging.String("out", destRel))
		prog.complete(destRel)
		return stageSkipped
	}

	if _, err := o.tools.Rescale.RescaleTo8Bit(ctx, o.abs(tile.BaseDir, inputRel), destAbs); err != nil {
		tile.SetError(fmt.Sprintf("rescale: %v", err))
		return stageFailed
	}
	logger.Info("rescaled to 8-bit", logging.String("out", destRel))
	prog.complete(destRel)
	return stageExecuted
}

func (o *Orchestrator) runImage(ctx context.Context, runID string, img *imagery.Image, summary *Summary) {
	logger := o.logger.With(logging.FieldImage, img.ImageFolder)
	start := time.Now()

	if img.Tiled() {
		summary.MergedImages++
	} else {
		summary.SingleTile++
	}

	if !img.Errored() {
		o.mergeImage(ctx, logger, img)
	}
	if !img.Errored() {
		o.splitImage(ctx, logger, img, summary)
	}
	if !img.Errored() && o.opts.Cog {
		o.cogImage(ctx, logger, img)
	}
	if !img.Errored() && o.opts.DeleteIntermediate && !o.opts.DryRun {
		o.cleanupImage(logger, img)
	}

	img.Duration = time.Since(start)
	status := ledger.StatusDone
	if img.Errored() {
		summary.ErroredImages++
		status = ledger.StatusFailed
		logger.Error("image failed", logging.String("error", img.Err))
	}
	if o.store != nil {
		if err := o.store.RecordImage(ctx, runID, img, status); err != nil {
			logger.Warn("ledger write failed", logging.Error(err))
		}
	}
}

func (o *Orchestrator) mergeImage(ctx context.Context, logger *slog.Logger, img *imagery.Image) {
	if !img.Tiled() {
		if len(img.TileOutputs) == 1 {
			img.MergedOutput = img.TileOutputs[0]
		}
		return
	}

	name := imagery.MergeName(img.TileOutputs[0])
	destRel := path.Join(img.ImageFolder, img.PrepFolder, name)
	destAbs := o.abs(img.BaseDir, destRel)

	if o.skipExisting(logger, "merge", destAbs) {
		img.MergedOutput = destRel
		return
	}
	if o.opts.DryRun {
		logger.Info("dry-run: would merge tiles", logging.String("out", destRel))
		img.MergedOutput = destRel
		return
	}

	inputs := make([]string, len(img.TileOutputs))
	for i, rel := range img.TileOutputs {
		inputs[i] = o.abs(img.BaseDir, rel)
	}
	if _, err := o.tools.Merge.MergeTiles(ctx, inputs, destAbs); err != nil {
		img.SetError(fmt.Sprintf("merge: %v", err))
		return
	}
	logger.Info("merged tiles", logging.Int("tiles", len(inputs)), logging.String("out", destRel))
	img.MergedOutput = destRel
}

func (o *Orchestrator) splitImage(ctx context.Context, logger *slog.Logger, img *imagery.Image, summary *Summary) {
	if img.MergedOutput == "" {
		img.SetError("split: no merged or single-tile input available")
		return
	}
	if img.MulManifest == "" {
		img.SetError("split: no manifest to supply band order")
		return
	}
	bands, err := manifest.BandOrder(o.abs(img.BaseDir, img.MulManifest))
	if err != nil {
		img.SetError(fmt.Sprintf("split: %v", err))
		return
	}

	prepRel := path.Join(img.ImageFolder, img.PrepFolder)
	outputs := make([]string, len(bands))
	allExist := true
	for i, band := range bands {
		outputs[i] = path.Join(prepRel, imagery.BandName(img.MergedOutput, band))
		if _, statErr := os.Stat(o.abs(img.BaseDir, outputs[i])); statErr != nil {
			allExist = false
		}
	}
	if allExist && !o.opts.Overwrite {
		logger.Warn("band files already exist, skipping split")
		img.BandOutputs = outputs
		return
	}
	if o.opts.DryRun {
		logger.Info("dry-run: would split bands", logging.Int("bands", len(bands)))
		img.BandOutputs = outputs
		return
	}

	written, err := o.tools.Split.SplitBands(ctx, o.abs(img.BaseDir, img.MergedOutput), bands, img.PrepDir())
	if err != nil {
		img.SetError(fmt.Sprintf("split: %v", err))
		return
	}
	img.BandOutputs = img.BandOutputs[:0]
	for _, absOut := range written {
		img.BandOutputs = append(img.BandOutputs, path.Join(prepRel, filepath.Base(absOut)))
	}
	summary.BandFilesSplit += len(written)
	logger.Info("split bands", logging.Int("bands", len(written)))
}

func (o *Orchestrator) cogImage(ctx context.Context, logger *slog.Logger, img *imagery.Image) {
	for _, bandRel := range img.BandOutputs {
		name := imagery.CogName(bandRel, o.opts.Method, img.DType)
		destRel := path.Join(path.Dir(bandRel), name)
		destAbs := o.abs(img.BaseDir, destRel)

		if o.skipExisting(logger, "cog", destAbs) {
			continue
		}
		if o.opts.DryRun {
			logger.Info("dry-run: would convert to COG", logging.String("out", destRel))
			continue
		}
		if _, err := o.tools.Cog.CogConvert(ctx, o.abs(img.BaseDir, bandRel), destAbs); err != nil {
			img.SetError(fmt.Sprintf("cog: %v", err))
			return
		}
		logger.Info("converted to COG", logging.String("out", destRel))
	}
}

// cleanupImage deletes every intermediate in the prep folder except the
// final band outputs (and their COG renditions). It first asserts every
// band file actually exists: a missing final output means the
// intermediates may still be needed for a retry.
func (o *Orchestrator) cleanupImage(logger *slog.Logger, img *imagery.Image) {
	keep := make(map[string]struct{}, len(img.BandOutputs)*2)
	for _, bandRel := range img.BandOutputs {
		if _, err := os.Stat(o.abs(img.BaseDir, bandRel)); err != nil {
			logger.Warn("skipping cleanup, band file missing",
				logging.String("band", bandRel))
			return
		}
		keep[path.Base(bandRel)] = struct{}{}
		keep[imagery.CogName(bandRel, o.opts.Method, img.DType)] = struct{}{}
	}
	if len(keep) == 0 {
		return
	}

	entries, err := os.ReadDir(img.PrepDir())
	if err != nil {
		logger.Warn("cleanup read failed", logging.Error(err))
		return
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, keepIt := keep[entry.Name()]; keepIt {
			continue
		}
		if err := os.Remove(filepath.Join(img.PrepDir(), entry.Name())); err != nil {
			logger.Warn("cleanup remove failed",
				logging.String("file", entry.Name()), logging.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("removed intermediates", logging.Int("files", removed))
	}
}

// skipExisting implements the idempotence policy: any stage with an
// already-existing destination is skipped with a warning unless
// overwrite is requested.
func (o *Orchestrator) skipExisting(logger *slog.Logger, stage, destAbs string) bool {
	if o.opts.Overwrite {
		return false
	}
	if info, err := os.Stat(destAbs); err == nil && !info.IsDir() {
		logger.Warn("output already exists, skipping",
			logging.FieldStep, stage,
			logging.String("out", filepath.Base(destAbs)))
		return true
	}
	return false
}

func (o *Orchestrator) tileSource(tile *imagery.Tile) string {
	if tile.Sharpened() {
		return tile.PshTile
	}
	return tile.MulTile
}

func (o *Orchestrator) abs(baseDir, rel string) string {
	return filepath.Join(baseDir, filepath.FromSlash(rel))
}

// Package raster defines the narrow functional contracts rasterprep
// uses to drive external raster processing, plus the minimal TIFF
// header inspection discovery needs. The pixel-level work itself always
// happens in external tools behind these interfaces.
package raster

import (
	"context"
	"errors"

	"rasterprep/internal/imagery"
)

// Classification sentinels for collaborator failures. The orchestrator
// records these on the owning work unit; they never cross unit
// boundaries as panics or aborts.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrOutputMissing = errors.New("output file did not materialize")
	ErrConfiguration = errors.New("configuration error")
)

// PansharpRequest carries one pansharpen invocation.
type PansharpRequest struct {
	Multispectral string
	Panchromatic  string
	Method        string
	RAMBudgetMB   int
	OutPath       string
	OutDType      imagery.DType
}

// Pansharpener fuses a multispectral/panchromatic pair into a sharpened
// raster at OutPath. Implementations must be a no-op success when
// OutPath already exists and overwrite is handled by the caller.
type Pansharpener interface {
	Pansharpen(ctx context.Context, req PansharpRequest) (string, error)
}

// Rescaler produces an unsigned 8-bit rendition of a raster.
type Rescaler interface {
	RescaleTo8Bit(ctx context.Context, inPath, outPath string) (string, error)
}

// TileMerger mosaics an ordered list of co-registered tiles into one
// raster, propagating spatial reference from the first tile.
type TileMerger interface {
	MergeTiles(ctx context.Context, orderedTiles []string, outPath string) (string, error)
}

// BandSplitter writes one single-band file per entry in bandOrder.
type BandSplitter interface {
	SplitBands(ctx context.Context, rasterPath string, bandOrder []string, outDir string) ([]string, error)
}

// CogConverter repackages a raster as a Cloud-Optimized GeoTIFF.
type CogConverter interface {
	CogConvert(ctx context.Context, inPath, outPath string) (string, error)
}

// Toolset bundles every collaborator the orchestrator needs.
type Toolset struct {
	Pansharp Pansharpener
	Rescale  Rescaler
	Merge    TileMerger
	Split    BandSplitter
	Cog      CogConverter
}

// Package imagery holds the work-unit records produced by discovery and
// consumed by the pipeline: one Tile per physical raster file and one
// Image per logical acquisition. Records are immutable once discovered
// except for the fields each pipeline stage populates.
package imagery

import (
	"path/filepath"
	"strings"
)

// MarkerPattern is the two-part naming convention that distinguishes a
// multispectral file name from its panchromatic partner, e.g. "-M"/"-P"
// or "_MSI"/"_PAN". Output names are derived from input names through
// this pattern.
type MarkerPattern struct {
	Mul string
	Pan string
}

// String renders the pattern the way reports and the ledger store it.
func (p MarkerPattern) String() string {
	return p.Mul + "|" + p.Pan
}

// ParseMarkerPattern reverses String.
func ParseMarkerPattern(value string) MarkerPattern {
	mul, pan, _ := strings.Cut(value, "|")
	return MarkerPattern{Mul: mul, Pan: pan}
}

// ImageKey is the grouping key joining Tiles into Images. File names are
// not a reliable identifier across vendors; this tuple is the de facto
// join key for the whole system.
type ImageKey struct {
	BaseDir     string
	ImageFolder string
	PrepFolder  string
	MulManifest string
}

// Tile is one physical single-tile raster file plus its processing
// context. All paths except BaseDir are relative to BaseDir.
type Tile struct {
	BaseDir     string
	ImageFolder string
	PrepFolder  string
	DType       DType
	Steps       []Step
	Pattern     MarkerPattern

	// Either the Mul/Pan pair or Psh is set, never both: a Tile is an
	// unsharpened pair candidate or an already-sharpened asset.
	MulTile string
	PanTile string
	PshTile string

	MulManifest string

	// LastOutput is the most recently produced artifact, advanced by the
	// orchestrator as each stage completes. It starts as the stage-zero
	// input (Psh tile for sharpened assets).
	LastOutput string

	// Err holds the first detected error; empty means success so far.
	Err string
}

// Sharpened reports whether the tile is an already-pansharpened asset.
func (t *Tile) Sharpened() bool {
	return t.PshTile != ""
}

// HasStep reports whether the discovery-time plan includes step.
func (t *Tile) HasStep(step Step) bool {
	for _, s := range t.Steps {
		if s == step {
			return true
		}
	}
	return false
}

// Errored reports whether any stage has recorded an error on the tile.
func (t *Tile) Errored() bool {
	return t.Err != ""
}

// SetError records the first error only; later stages are skipped, so a
// second error would merely shadow the root cause.
func (t *Tile) SetError(msg string) {
	if t.Err == "" {
		t.Err = strings.TrimSpace(msg)
	}
}

// Key returns the grouping key for Image aggregation.
func (t *Tile) Key() ImageKey {
	return ImageKey{
		BaseDir:     t.BaseDir,
		ImageFolder: t.ImageFolder,
		PrepFolder:  t.PrepFolder,
		MulManifest: t.MulManifest,
	}
}

// PrepDir returns the absolute path of the tile's output directory.
func (t *Tile) PrepDir() string {
	return filepath.Join(t.BaseDir, t.ImageFolder, t.PrepFolder)
}

// SourcePath returns the absolute path of the tile's primary input: the
// pansharpened asset when present, the multispectral tile otherwise.
func (t *Tile) SourcePath() string {
	if t.Sharpened() {
		return filepath.Join(t.BaseDir, t.PshTile)
	}
	return filepath.Join(t.BaseDir, t.MulTile)
}

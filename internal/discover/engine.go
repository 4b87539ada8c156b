// Package discover walks a base directory with the configured glob
// pattern tuples and assembles the per-tile work units the pipeline
// consumes. Discovery is the only place Tiles are created.
package discover

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"rasterprep/internal/imagery"
	"rasterprep/internal/logging"
	"rasterprep/internal/manifest"
	"rasterprep/internal/namematch"
	"rasterprep/internal/raster"
)

// Pattern is one discovery tuple: where to find MUL tiles, where their
// PAN partners live relative to the acquisition folder, and the marker
// pair that tells the two apart in file names.
type Pattern struct {
	MulGlob string
	PanGlob string
	Marker  imagery.MarkerPattern
}

// Problem records one non-fatal discovery failure. The candidate is
// skipped; the run continues.
type Problem struct {
	Candidate string
	Reason    string
}

// Options configures an Engine.
type Options struct {
	BaseDir    string
	Patterns   []Pattern
	PshGlobs   []string
	Extensions []string

	// ReadDType overrides the TIFF header reader in tests.
	ReadDType func(path string) (imagery.DType, error)
}

// Engine discovers acquisitions under one base directory. Globbing runs
// over an fs.FS rooted at the base dir, so the working directory is
// never touched and concurrent engines cannot interfere.
type Engine struct {
	baseDir   string
	patterns  []Pattern
	pshGlobs  []string
	exts      []string
	readDType func(string) (imagery.DType, error)
	collator  *collate.Collator
	logger    *slog.Logger
}

// New constructs an Engine.
func New(logger *slog.Logger, opts Options) *Engine {
	readDType := opts.ReadDType
	if readDType == nil {
		readDType = raster.ReadDType
	}
	return &Engine{
		baseDir:   opts.BaseDir,
		patterns:  opts.Patterns,
		pshGlobs:  opts.PshGlobs,
		exts:      opts.Extensions,
		readDType: readDType,
		// Numeric collation orders R1C2 before R1C10.
		collator: collate.New(language.Und, collate.Numeric),
		logger:   logging.WithComponent(logger, "discover"),
	}
}

// Discover runs both passes (MUL/PAN pairing, then already-sharpened
// assets) and returns the deduplicated, deterministically ordered tile
// list. The returned error is fatal for the run: it fires only when a
// prep directory cannot be created or the context is cancelled.
func (e *Engine) Discover(ctx context.Context) ([]*imagery.Tile, []Problem, error) {
	var tiles []*imagery.Tile
	var problems []Problem
	seenManifests := make(map[string]struct{})
	seenSources := make(map[string]struct{})

	for _, pattern := range e.patterns {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		found, probs, err := e.discoverPairs(ctx, pattern, seenManifests)
		if err != nil {
			return nil, nil, err
		}
		tiles = appendNewTiles(tiles, found, seenSources)
		problems = append(problems, probs...)
	}

	for _, glob := range e.pshGlobs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		found, probs, err := e.discoverSharpened(glob)
		if err != nil {
			return nil, nil, err
		}
		tiles = appendNewTiles(tiles, found, seenSources)
		problems = append(problems, probs...)
	}

	sort.SliceStable(tiles, func(i, j int) bool {
		return tileSortKey(tiles[i]) < tileSortKey(tiles[j])
	})
	e.logger.Info("discovery complete",
		logging.Int("tiles", len(tiles)),
		logging.Int("problems", len(problems)))
	return tiles, problems, nil
}

func (e *Engine) discoverPairs(ctx context.Context, pattern Pattern, seenManifests map[string]struct{}) ([]*imagery.Tile, []Problem, error) {
	candidates, err := e.glob(pattern.MulGlob)
	if err != nil {
		return nil, []Problem{{Candidate: pattern.MulGlob, Reason: fmt.Sprintf("bad glob: %v", err)}}, nil
	}

	var tiles []*imagery.Tile
	var problems []Problem
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		// The acquisition folder is two levels above the tile: the tile
		// lives in <image folder>/<mul dir>/<file>.
		mulDir := path.Dir(candidate)
		imageFolder := path.Dir(mulDir)
		if imageFolder == "." || mulDir == "." {
			problems = append(problems, Problem{candidate, "tile is not two directory levels below the base dir"})
			continue
		}

		mulManifest, err := e.manifestIn(mulDir)
		if err != nil {
			problems = append(problems, Problem{candidate, err.Error()})
			continue
		}
		if _, done := seenManifests[mulManifest]; done {
			continue
		}

		panMatches, err := e.globUnder(imageFolder, pattern.PanGlob)
		if err != nil || len(panMatches) == 0 {
			problems = append(problems, Problem{candidate, "no panchromatic candidates for glob " + pattern.PanGlob})
			continue
		}

		guess := namematch.Substitute(path.Base(candidate), pattern.Marker.Mul, pattern.Marker.Pan)
		pool := make([]string, len(panMatches))
		for i, m := range panMatches {
			pool[i] = path.Base(m)
		}
		chosen, err := namematch.Closest(guess, pool)
		if err != nil {
			problems = append(problems, Problem{candidate, fmt.Sprintf("no panchromatic partner resembling %q", guess)})
			continue
		}
		panRel := panMatches[indexOf(pool, chosen)]
		panDir := path.Join(imageFolder, path.Dir(panRel))

		dtype, err := e.readDType(filepath.Join(e.baseDir, filepath.FromSlash(candidate)))
		if err != nil {
			problems = append(problems, Problem{candidate, fmt.Sprintf("read datatype: %v", err)})
			continue
		}

		panManifest, err := e.manifestIn(panDir)
		if err != nil {
			problems = append(problems, Problem{candidate, err.Error()})
			continue
		}
		mulTiles, err := manifest.TileFiles(filepath.Join(e.baseDir, filepath.FromSlash(mulManifest)))
		if err != nil {
			problems = append(problems, Problem{candidate, err.Error()})
			continue
		}
		panTiles, err := manifest.TileFiles(filepath.Join(e.baseDir, filepath.FromSlash(panManifest)))
		if err != nil {
			problems = append(problems, Problem{candidate, err.Error()})
			continue
		}
		// Tile-for-tile correspondence is assumed downstream; a count
		// mismatch means the pairing is inconsistent and the whole
		// acquisition is skipped, never partially paired.
		if len(mulTiles) != len(panTiles) {
			seenManifests[mulManifest] = struct{}{}
			problems = append(problems, Problem{candidate, fmt.Sprintf(
				"manifest tile counts differ: %d multispectral, %d panchromatic", len(mulTiles), len(panTiles))})
			continue
		}

		prepFolder := imagery.PrepFolderName(mulDir, panDir)
		if err := os.MkdirAll(filepath.Join(e.baseDir, filepath.FromSlash(imageFolder), prepFolder), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create prep directory for %s: %w", imageFolder, err)
		}

		steps := imagery.PlanSteps(len(mulTiles), dtype, false)
		for i := range mulTiles {
			tiles = append(tiles, &imagery.Tile{
				BaseDir:     e.baseDir,
				ImageFolder: imageFolder,
				PrepFolder:  prepFolder,
				DType:       dtype,
				Steps:       steps,
				Pattern:     pattern.Marker,
				MulTile:     path.Join(mulDir, mulTiles[i]),
				PanTile:     path.Join(panDir, panTiles[i]),
				MulManifest: mulManifest,
			})
		}
		seenManifests[mulManifest] = struct{}{}
		e.logger.Debug("paired acquisition",
			logging.String("image", imageFolder),
			logging.Int("tiles", len(mulTiles)),
			logging.String("dtype", string(dtype)))
	}
	return tiles, problems, nil
}

// discoverSharpened finds already pansharpened rasters so the remaining
// steps can run on them without re-pansharpening. Assets sharing a
// directory form one acquisition; its prep folder is that directory.
func (e *Engine) discoverSharpened(glob string) ([]*imagery.Tile, []Problem, error) {
	matches, err := e.glob(glob)
	if err != nil {
		return nil, []Problem{{Candidate: glob, Reason: fmt.Sprintf("bad glob: %v", err)}}, nil
	}

	groups := make(map[string][]string)
	var order []string
	for _, m := range matches {
		dir := path.Dir(m)
		if _, ok := groups[dir]; !ok {
			order = append(order, dir)
		}
		groups[dir] = append(groups[dir], m)
	}

	var tiles []*imagery.Tile
	var problems []Problem
	for _, dir := range order {
		group := groups[dir]
		imageFolder := path.Dir(dir)
		if imageFolder == "." || dir == "." {
			problems = append(problems, Problem{group[0], "sharpened asset is not two directory levels below the base dir"})
			continue
		}
		// Band order still comes from a manifest when one sits next to
		// the assets; splitting is skipped for the image otherwise.
		assetManifest, _ := e.manifestIn(dir)

		for _, m := range group {
			dtype, err := e.readDType(filepath.Join(e.baseDir, filepath.FromSlash(m)))
			if err != nil {
				problems = append(problems, Problem{m, fmt.Sprintf("read datatype: %v", err)})
				continue
			}
			tiles = append(tiles, &imagery.Tile{
				BaseDir:     e.baseDir,
				ImageFolder: imageFolder,
				PrepFolder:  path.Base(dir),
				DType:       dtype,
				Steps:       imagery.PlanSteps(len(group), dtype, true),
				PshTile:     m,
				MulManifest: assetManifest,
				LastOutput:  m,
			})
		}
	}
	return tiles, problems, nil
}

// glob matches pattern against the base directory and returns
// extension-filtered, naturally ordered slash-separated paths.
func (e *Engine) glob(pattern string) ([]string, error) {
	return e.globUnder(".", pattern)
}

func (e *Engine) globUnder(dir, pattern string) ([]string, error) {
	root := e.baseDir
	if dir != "." {
		root = filepath.Join(e.baseDir, filepath.FromSlash(dir))
	}
	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil, err
	}
	filtered := matches[:0]
	for _, m := range matches {
		if e.extensionOK(path.Ext(m)) {
			filtered = append(filtered, m)
		}
	}
	e.collator.SortStrings(filtered)
	return filtered, nil
}

func (e *Engine) extensionOK(ext string) bool {
	for _, allowed := range e.exts {
		if ext == allowed {
			return true
		}
	}
	return false
}

// manifestIn locates the acquisition manifest next to the tiles: the
// first XML file (natural order) in the directory.
func (e *Engine) manifestIn(dir string) (string, error) {
	entries, err := os.ReadDir(filepath.Join(e.baseDir, filepath.FromSlash(dir)))
	if err != nil {
		return "", fmt.Errorf("read directory %s: %v", dir, err)
	}
	var xmls []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(path.Ext(entry.Name()), ".xml") {
			xmls = append(xmls, entry.Name())
		}
	}
	if len(xmls) == 0 {
		return "", fmt.Errorf("no manifest XML in %s", dir)
	}
	e.collator.SortStrings(xmls)
	return path.Join(dir, xmls[0]), nil
}

func appendNewTiles(tiles, found []*imagery.Tile, seen map[string]struct{}) []*imagery.Tile {
	for _, tile := range found {
		source := tile.MulTile
		if tile.Sharpened() {
			source = tile.PshTile
		}
		if _, dup := seen[source]; dup {
			continue
		}
		seen[source] = struct{}{}
		tiles = append(tiles, tile)
	}
	return tiles
}

func tileSortKey(t *imagery.Tile) string {
	if t.Sharpened() {
		return t.PshTile
	}
	return t.MulTile
}

func indexOf(values []string, want string) int {
	for i, v := range values {
		if v == want {
			return i
		}
	}
	return 0
}

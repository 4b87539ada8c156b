package pipeline

import "rasterprep/internal/imagery"

// progress is the orchestrator's execution position within one tile's
// immutable plan. The plan never changes after discovery; only the
// position and the artifact of the last completed stage advance, and
// they advance together, so an artifact from a stage that has not run
// yet is unrepresentable.
type progress struct {
	tile *imagery.Tile
	pos  int
}

func newProgress(tile *imagery.Tile) *progress {
	return &progress{tile: tile}
}

// pending returns the next tile-level stage. Image-level stages (merge)
// are owned by the per-image pass and skipped here.
func (p *progress) pending() (imagery.Step, bool) {
	for p.pos < len(p.tile.Steps) {
		step := p.tile.Steps[p.pos]
		if step != imagery.StepMerge {
			return step, true
		}
		p.pos++
	}
	return "", false
}

// complete records the artifact the current stage produced and moves to
// the next stage. A skipped already-existing destination completes the
// stage the same way; the artifact is equally real.
func (p *progress) complete(artifact string) {
	p.tile.LastOutput = artifact
	p.pos++
}

// input returns the artifact the next stage consumes: the last stage's
// output, falling back to the tile's source for the first stage.
func (p *progress) input() string {
	if p.tile.LastOutput != "" {
		return p.tile.LastOutput
	}
	if p.tile.Sharpened() {
		return p.tile.PshTile
	}
	return p.tile.MulTile
}

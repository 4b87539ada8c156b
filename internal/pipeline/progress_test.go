package pipeline

import (
	"testing"

	"rasterprep/internal/imagery"
)

func TestProgressSkipsImageLevelMerge(t *testing.T) {
	tile := &imagery.Tile{
		Steps:   []imagery.Step{imagery.StepMerge, imagery.StepPansharp, imagery.StepScale},
		MulTile: "IMG/IMG_MUL/a.TIF",
	}
	prog := newProgress(tile)

	step, ok := prog.pending()
	if !ok || step != imagery.StepPansharp {
		t.Fatalf("first pending = %v %v, want psh", step, ok)
	}
	if got := prog.input(); got != "IMG/IMG_MUL/a.TIF" {
		t.Errorf("first input = %q", got)
	}
	prog.complete("IMG/IMG_PREP/a-psh.TIF")

	step, ok = prog.pending()
	if !ok || step != imagery.StepScale {
		t.Fatalf("second pending = %v %v, want scale", step, ok)
	}
	if got := prog.input(); got != "IMG/IMG_PREP/a-psh.TIF" {
		t.Errorf("second input = %q, stage input must be the prior artifact", got)
	}
	prog.complete("IMG/IMG_PREP/a-psh_uint8.tif")

	if _, ok := prog.pending(); ok {
		t.Error("plan exhausted but pending reports more work")
	}
	if tile.LastOutput != "IMG/IMG_PREP/a-psh_uint8.tif" {
		t.Errorf("LastOutput = %q", tile.LastOutput)
	}
}

func TestProgressSharpenedStartsAtSource(t *testing.T) {
	tile := &imagery.Tile{
		Steps:   []imagery.Step{imagery.StepScale},
		PshTile: "IMG/IMG_PREP/a-psh.TIF",
	}
	prog := newProgress(tile)
	if got := prog.input(); got != "IMG/IMG_PREP/a-psh.TIF" {
		t.Errorf("input = %q, want the sharpened source", got)
	}
}

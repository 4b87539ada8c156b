package imagery

import (
	"reflect"
	"testing"
)

func tileForGrouping(imageFolder, manifest, output string) *Tile {
	return &Tile{
		BaseDir:     "/data",
		ImageFolder: imageFolder,
		PrepFolder:  "IMG_PREP",
		DType:       DTypeUInt16,
		Steps:       []Step{StepMerge, StepPansharp, StepScale},
		MulManifest: manifest,
		LastOutput:  output,
	}
}

func TestGroupTilesJoinsOnFullKey(t *testing.T) {
	tiles := []*Tile{
		tileForGrouping("A/IMG01", "A/IMG01/IMG01_MUL/M.XML", "out1.tif"),
		tileForGrouping("A/IMG01", "A/IMG01/IMG01_MUL/M.XML", "out2.tif"),
		tileForGrouping("A/IMG02", "A/IMG02/IMG02_MUL/M.XML", "out3.tif"),
	}

	images := GroupTiles(tiles)
	if len(images) != 2 {
		t.Fatalf("GroupTiles() produced %d images, want 2", len(images))
	}
	if images[0].ImageFolder != "A/IMG01" || images[1].ImageFolder != "A/IMG02" {
		t.Fatalf("unexpected ordering: %s, %s", images[0].ImageFolder, images[1].ImageFolder)
	}
	if !reflect.DeepEqual(images[0].TileOutputs, []string{"out1.tif", "out2.tif"}) {
		t.Errorf("tile outputs out of order: %v", images[0].TileOutputs)
	}
}

func TestGroupTilesNeverDropsTiles(t *testing.T) {
	tiles := []*Tile{
		tileForGrouping("A/IMG01", "m1.xml", "a.tif"),
		tileForGrouping("A/IMG01", "m2.xml", "b.tif"), // different manifest, different image
	}
	images := GroupTiles(tiles)
	total := 0
	for _, img := range images {
		total += len(img.TileOutputs)
	}
	if total != len(tiles) {
		t.Fatalf("grouping dropped tiles: %d grouped, %d discovered", total, len(tiles))
	}
}

func TestGroupTilesErrorPropagation(t *testing.T) {
	bad := tileForGrouping("A/IMG01", "m.xml", "a.tif")
	bad.SetError("pansharp failed")
	good := tileForGrouping("A/IMG01", "m.xml", "b.tif")
	sibling := tileForGrouping("A/IMG02", "m2.xml", "c.tif")

	images := GroupTiles([]*Tile{bad, good, sibling})
	if len(images) != 2 {
		t.Fatalf("want 2 images, got %d", len(images))
	}
	if !images[0].Errored() {
		t.Error("image with errored tile should be errored")
	}
	if images[0].Err != "pansharp failed" {
		t.Errorf("image error = %q", images[0].Err)
	}
	if images[1].Errored() {
		t.Error("sibling image must not inherit the error")
	}
}

func TestTileSetErrorKeepsFirst(t *testing.T) {
	tile := &Tile{}
	tile.SetError("first")
	tile.SetError("second")
	if tile.Err != "first" {
		t.Errorf("Err = %q, want first error preserved", tile.Err)
	}
}

func TestTileSourcePath(t *testing.T) {
	pair := &Tile{BaseDir: "/data", MulTile: "A/M.TIF", PanTile: "A/P.TIF"}
	if got := pair.SourcePath(); got != "/data/A/M.TIF" {
		t.Errorf("SourcePath() = %q", got)
	}
	psh := &Tile{BaseDir: "/data", PshTile: "A/PSH.TIF"}
	if !psh.Sharpened() {
		t.Error("tile with PshTile should report Sharpened")
	}
	if got := psh.SourcePath(); got != "/data/A/PSH.TIF" {
		t.Errorf("SourcePath() = %q", got)
	}
}

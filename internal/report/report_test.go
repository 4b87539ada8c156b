package report_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rasterprep/internal/imagery"
	"rasterprep/internal/report"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	r := csv.NewReader(file)
	r.Comma = ';'
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestWriteTileManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.csv")
	tiles := []*imagery.Tile{
		{
			BaseDir:     "/data",
			ImageFolder: "IMG01",
			PrepFolder:  "IMG01_PREP",
			DType:       imagery.DTypeUInt16,
			Steps:       []imagery.Step{imagery.StepPansharp, imagery.StepScale},
			Pattern:     imagery.MarkerPattern{Mul: "-M", Pan: "-P"},
			MulTile:     "IMG01/IMG01_MUL/TILE-M1.TIF",
			PanTile:     "IMG01/IMG01_PAN/TILE-P1.TIF",
			LastOutput:  "IMG01/IMG01_PREP/out_uint8.tif",
		},
		{
			BaseDir:     "/data",
			ImageFolder: "IMG02",
			PrepFolder:  "IMG02_PREP",
			DType:       imagery.DTypeUInt8,
			Steps:       []imagery.Step{imagery.StepMerge},
			PshTile:     "IMG02/IMG02_PREP/TILE-PSH.TIF",
			Err:         "merge failed",
		},
	}

	written, err := report.WriteTileManifest(path, tiles)
	if err != nil {
		t.Fatalf("WriteTileManifest: %v", err)
	}
	if written != path {
		t.Errorf("written to %q, want %q", written, path)
	}

	rows := readCSV(t, written)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "base_dir" || rows[0][1] != "process_steps" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][1] != "psh,scale" || rows[1][4] != "-M|-P" {
		t.Errorf("row = %v", rows[1])
	}
	if rows[2][7] != "IMG02/IMG02_PREP/TILE-PSH.TIF" || rows[2][10] != "merge failed" {
		t.Errorf("sharpened row = %v", rows[2])
	}
}

func TestWriteImageOutcomes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "images.csv")
	images := []*imagery.Image{{
		ImageFolder: "IMG01",
		PrepFolder:  "IMG01_PREP",
		BandOutputs: []string{"out_BAND_B.tif", "out_BAND_G.tif"},
		Duration:    1500 * time.Millisecond,
	}}

	written, err := report.WriteImageOutcomes(path, images)
	if err != nil {
		t.Fatalf("WriteImageOutcomes: %v", err)
	}
	rows := readCSV(t, written)
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(rows))
	}
	if rows[1][2] != "out_BAND_B.tif,out_BAND_G.tif" {
		t.Errorf("band outputs = %q", rows[1][2])
	}
	if rows[1][4] != "1.5s" {
		t.Errorf("duration = %q", rows[1][4])
	}
}

func TestExistingReportGetsSibling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.csv")
	if _, err := report.WriteTileManifest(path, nil); err != nil {
		t.Fatal(err)
	}
	second, err := report.WriteTileManifest(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if second == path {
		t.Fatal("second write clobbered the first report")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("original report gone: %v", err)
	}
	if _, err := os.Stat(second); err != nil {
		t.Errorf("sibling report missing: %v", err)
	}
}

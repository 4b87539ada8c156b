// Package report writes the optional semicolon-delimited CSV outputs:
// a manifest of every discovered tile and a per-image outcome log.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rasterprep/internal/imagery"
)

// tileHeader matches the original report layout column for column.
var tileHeader = []string{
	"base_dir", "process_steps", "dtype", "image_folder", "pattern",
	"mul_tile", "pan_tile", "psh_tile", "prep_folder", "last_output", "error",
}

var imageHeader = []string{
	"image_folder", "prep_folder", "band_outputs", "error", "duration",
}

// WriteTileManifest writes one row per discovered tile. The path
// actually written is returned; an existing file gets a timestamped
// sibling name instead of being clobbered.
func WriteTileManifest(path string, tiles []*imagery.Tile) (string, error) {
	rows := make([][]string, 0, len(tiles))
	for _, t := range tiles {
		rows = append(rows, []string{
			t.BaseDir,
			imagery.FormatSteps(t.Steps),
			string(t.DType),
			t.ImageFolder,
			t.Pattern.String(),
			t.MulTile,
			t.PanTile,
			t.PshTile,
			t.PrepFolder,
			t.LastOutput,
			t.Err,
		})
	}
	return write(path, tileHeader, rows)
}

// WriteImageOutcomes writes one row per processed image.
func WriteImageOutcomes(path string, images []*imagery.Image) (string, error) {
	rows := make([][]string, 0, len(images))
	for _, img := range images {
		rows = append(rows, []string{
			img.ImageFolder,
			img.PrepFolder,
			strings.Join(img.BandOutputs, ","),
			img.Err,
			img.Duration.Round(time.Millisecond).String(),
		})
	}
	return write(path, imageHeader, rows)
}

func write(path string, header []string, rows [][]string) (string, error) {
	path = sidestepExisting(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	w.Comma = ';'
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write report header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush report: %w", err)
	}
	return path, nil
}

// sidestepExisting appends a UTC timestamp to the file stem when the
// target already exists, so reruns never overwrite earlier reports.
func sidestepExisting(path string) string {
	if _, err := os.Stat(path); err != nil {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s-%s%s", stem, time.Now().UTC().Format("20060102T150405"), ext)
}

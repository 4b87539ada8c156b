package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rasterprep/internal/imagery"
	"rasterprep/internal/logging"
	"rasterprep/internal/manifest"
	"rasterprep/internal/report"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var verify bool
	var tileCSV bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Discover acquisitions and show what a run would do",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return err
			}
			tiles, problems, err := discoverTiles(cmd.Context(), logger, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			configureColor(out)
			if len(tiles) == 0 {
				fmt.Fprintln(out, "No acquisitions discovered.")
			} else {
				images := imagery.GroupTiles(tiles)
				rows := make([][]string, 0, len(images))
				for _, img := range images {
					rows = append(rows, []string{
						img.ImageFolder,
						img.PrepFolder,
						fmt.Sprint(len(img.TileOutputs)),
						string(img.DType),
						imagery.FormatSteps(img.Steps),
					})
				}
				headers := []string{"Image", "Prep folder", "Tiles", "DType", "Plan"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))

				if verify {
					printVerification(cmd, images)
				}
			}

			for _, problem := range problems {
				warnf(out, "skipped %s: %s\n", problem.Candidate, problem.Reason)
			}

			if tileCSV {
				path, err := report.WriteTileManifest(filepath.Join(cfg.Paths.LogDir, "tiles.csv"), tiles)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote tile manifest to %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Check prep folders for the band files a finished run leaves behind")
	cmd.Flags().BoolVar(&tileCSV, "csv", false, "Write the discovered-tile CSV manifest")
	return cmd
}

// printVerification reports, per image, which manifest bands already have
// a split band file in the prep folder. A band counts as present when any
// file in the folder carries its "_BAND_X" name component.
func printVerification(cmd *cobra.Command, images []*imagery.Image) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(images))
	for _, img := range images {
		if img.MulManifest == "" {
			rows = append(rows, []string{img.ImageFolder, "-", "no manifest"})
			continue
		}
		bands, err := manifest.BandOrder(filepath.Join(img.BaseDir, filepath.FromSlash(img.MulManifest)))
		if err != nil {
			rows = append(rows, []string{img.ImageFolder, "-", err.Error()})
			continue
		}
		present, missing := bandPresence(img.PrepDir(), bands)
		status := "complete"
		if len(missing) > 0 {
			status = "missing " + strings.Join(missing, " ")
		}
		rows = append(rows, []string{img.ImageFolder, fmt.Sprintf("%d/%d", present, len(bands)), status})
	}
	fmt.Fprintln(out, renderTable([]string{"Image", "Bands", "Verification"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft}))
}

func bandPresence(prepDir string, bands []string) (int, []string) {
	entries, err := os.ReadDir(prepDir)
	if err != nil {
		return 0, bands
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}

	present := 0
	var missing []string
	for _, band := range bands {
		marker := "_" + band + "."
		found := false
		for _, name := range names {
			if strings.Contains(name, marker) {
				found = true
				break
			}
		}
		if found {
			present++
		} else {
			missing = append(missing, band)
		}
	}
	return present, missing
}

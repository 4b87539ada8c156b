// Package gdalcli drives the GDAL command-line utilities used for
// rescaling, tile merging, band splitting, pansharpening and COG
// repackaging.
package gdalcli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"rasterprep/internal/imagery"
	"rasterprep/internal/logging"
	"rasterprep/internal/raster"
	"rasterprep/internal/raster/toolexec"
)

const (
	translateBinary = "gdal_translate"
	mergeBinary     = "gdal_merge.py"
	pansharpBinary  = "gdal_pansharpen.py"
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec toolexec.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps the GDAL command-line utilities.
type Client struct {
	exec   toolexec.Executor
	logger *slog.Logger
}

// New constructs a GDAL CLI client.
func New(logger *slog.Logger, opts ...Option) *Client {
	client := &Client{
		exec:   toolexec.CommandExecutor{},
		logger: logging.WithComponent(logger, "gdal"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Pansharpen runs gdal_pansharpen.py with the resampling algorithm
// carried in the method name ("gdal-cubic" resamples with cubic).
func (c *Client) Pansharpen(ctx context.Context, req raster.PansharpRequest) (string, error) {
	resampling := strings.TrimPrefix(req.Method, "gdal-")
	args := []string{
		"-of", "GTiff",
		"-r", resampling,
		req.Panchromatic,
		req.Multispectral,
		req.OutPath,
	}
	if err := c.run(ctx, pansharpBinary, args); err != nil {
		return "", err
	}
	return ensureOutput(req.OutPath)
}

// RescaleTo8Bit runs gdal_translate -ot Byte -scale, a linear rescale to
// unsigned 8-bit.
func (c *Client) RescaleTo8Bit(ctx context.Context, inPath, outPath string) (string, error) {
	args := []string{"-ot", "Byte", "-of", "GTiff", "-scale", inPath, outPath}
	if err := c.run(ctx, translateBinary, args); err != nil {
		return "", err
	}
	return ensureOutput(outPath)
}

// MergeTiles mosaics the ordered tile list into one raster. GDAL
// propagates the spatial reference and transform from the first input.
func (c *Client) MergeTiles(ctx context.Context, orderedTiles []string, outPath string) (string, error) {
	if len(orderedTiles) == 0 {
		return "", fmt.Errorf("%w: merge requires at least one tile", raster.ErrConfiguration)
	}
	args := []string{"-of", "GTiff", "-o", outPath}
	args = append(args, orderedTiles...)
	if err := c.run(ctx, mergeBinary, args); err != nil {
		return "", err
	}
	return ensureOutput(outPath)
}

// SplitBands writes one single-band file per entry of bandOrder. Band
// numbers are the 1-based positions within bandOrder, matching the
// manifest's declared layout.
func (c *Client) SplitBands(ctx context.Context, rasterPath string, bandOrder []string, outDir string) ([]string, error) {
	if len(bandOrder) == 0 {
		return nil, fmt.Errorf("%w: split requires a band order", raster.ErrConfiguration)
	}
	outputs := make([]string, 0, len(bandOrder))
	for i, band := range bandOrder {
		outPath := filepath.Join(outDir, imagery.BandName(rasterPath, band))
		args := []string{"-of", "GTiff", "-b", fmt.Sprint(i + 1), rasterPath, outPath}
		if err := c.run(ctx, translateBinary, args); err != nil {
			return outputs, err
		}
		if _, err := ensureOutput(outPath); err != nil {
			return outputs, err
		}
		outputs = append(outputs, outPath)
	}
	return outputs, nil
}

// CogConvert repackages a raster with the tiled, compressed layout
// expected of a Cloud-Optimized GeoTIFF.
func (c *Client) CogConvert(ctx context.Context, inPath, outPath string) (string, error) {
	args := []string{
		"-of", "GTiff",
		"-co", "TILED=YES",
		"-co", "COMPRESS=LZW",
		"-co", "COPY_SRC_OVERVIEWS=YES",
		inPath, outPath,
	}
	if err := c.run(ctx, translateBinary, args); err != nil {
		return "", err
	}
	return ensureOutput(outPath)
}

func (c *Client) run(ctx context.Context, binary string, args []string) error {
	c.logger.Debug("running tool", logging.String("binary", binary))
	err := c.exec.Run(ctx, binary, args, func(line string) {
		c.logger.Debug(line)
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", raster.ErrExternalTool, binary, err)
	}
	return nil
}

func ensureOutput(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", raster.ErrOutputMissing, path)
	}
	return path, nil
}

// Package otb drives the Orfeo Toolbox command-line applications:
// BundleToPerfectSensor for pansharpening and DynamicConvert for the
// linear 8-bit rescale.
package otb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"rasterprep/internal/imagery"
	"rasterprep/internal/logging"
	"rasterprep/internal/raster"
	"rasterprep/internal/raster/toolexec"
)

const (
	pansharpBinary = "otbcli_BundleToPerfectSensor"
	rescaleBinary  = "otbcli_DynamicConvert"

	// Quantile trim applied by the linear rescale, in percent.
	trimLower  = 2
	trimHigher = 2
)

// pixelTypes maps output datatypes to the pixel-type argument the OTB
// applications expect.
var pixelTypes = map[imagery.DType]string{
	imagery.DTypeUInt8:  "uint8",
	imagery.DTypeInt16:  "int16",
	imagery.DTypeUInt16: "uint16",
	imagery.DTypeInt32:  "int32",
	imagery.DTypeUInt32: "uint32",
}

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

// Client wraps the OTB CLI applications.
type Client struct {
	exec   toolexec.Executor
	logger *slog.Logger
}

// New constructs an OTB client.
func New(logger *slog.Logger, opts ...Option) *Client {
	client := &Client{
		exec:   toolexec.CommandExecutor{},
		logger: logging.WithComponent(logger, "otb"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Pansharpen runs BundleToPerfectSensor over a MUL/PAN pair. The method
// name arrives with the "otb-" selector prefix already present or
// stripped; only the bare algorithm name is passed to the tool.
func (c *Client) Pansharpen(ctx context.Context, req raster.PansharpRequest) (string, error) {
	method := strings.TrimPrefix(req.Method, "otb-")
	pixelType, ok := pixelTypes[req.OutDType]
	if !ok {
		return "", fmt.Errorf("%w: no OTB pixel type for datatype %q", raster.ErrConfiguration, req.OutDType)
	}

	args := []string{
		"-inp", req.Panchromatic,
		"-inxs", req.Multispectral,
		"-method", method,
		"-ram", strconv.Itoa(req.RAMBudgetMB),
		"-out", req.OutPath, pixelType,
	}
	c.logger.Debug("pansharpening", logging.String("binary", pansharpBinary), logging.String("out", req.OutPath))
	if err := c.run(ctx, pansharpBinary, args); err != nil {
		return "", err
	}
	return ensureOutput(req.OutPath)
}

// RescaleTo8Bit runs DynamicConvert with a linear mapping trimmed at the
// 2% quantiles on both ends.
func (c *Client) RescaleTo8Bit(ctx context.Context, inPath, outPath string) (string, error) {
	args := []string{
		"-in", inPath,
		"-out", outPath, "uint8",
		"-type", "linear",
		"-quantile.high", strconv.Itoa(trimHigher),
		"-quantile.low", strconv.Itoa(trimLower),
		"-channels", "all",
		"-outmin", "0",
		"-outmax", "255",
	}
	c.logger.Debug("rescaling", logging.String("binary", rescaleBinary), logging.String("out", outPath))
	if err := c.run(ctx, rescaleBinary, args); err != nil {
		return "", err
	}
	return ensureOutput(outPath)
}

func (c *Client) run(ctx context.Context, binary string, args []string) error {
	err := c.exec.Run(ctx, binary, args, func(line string) {
		c.logger.Debug(line)
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s not found; initialize the OTB environment first", raster.ErrExternalTool, binary)
		}
		return fmt.Errorf("%w: %s: %v", raster.ErrExternalTool, binary, err)
	}
	return nil
}

// ensureOutput verifies the tool materialized its output: a zero exit
// status without a file is still a failure.
func ensureOutput(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", raster.ErrOutputMissing, path)
	}
	return path, nil
}

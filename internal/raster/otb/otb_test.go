package otb_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rasterprep/internal/imagery"
	"rasterprep/internal/logging"
	"rasterprep/internal/raster"
	"rasterprep/internal/raster/otb"
)

// fakeExecutor records invocations and optionally materializes output
// files the way a real tool would.
type fakeExecutor struct {
	calls   []call
	failErr error
	touch   bool
}

type call struct {
	binary string
	args   []string
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string, _ func(string)) error {
	f.calls = append(f.calls, call{binary: binary, args: args})
	if f.failErr != nil {
		return f.failErr
	}
	if f.touch {
		if out := outputArg(binary, args); out != "" {
			if err := os.WriteFile(out, []byte("tif"), 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}

func outputArg(binary string, args []string) string {
	for i, a := range args {
		if a == "-out" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestPansharpen(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{touch: true}
	client := otb.New(logging.NewNop(), otb.WithExecutor(exec))

	out := filepath.Join(dir, "TILE-PSH-bayes-_uint16.TIF")
	got, err := client.Pansharpen(context.Background(), raster.PansharpRequest{
		Multispectral: filepath.Join(dir, "mul.TIF"),
		Panchromatic:  filepath.Join(dir, "pan.TIF"),
		Method:        "otb-bayes",
		RAMBudgetMB:   2048,
		OutPath:       out,
		OutDType:      imagery.DTypeUInt16,
	})
	if err != nil {
		t.Fatalf("Pansharpen: %v", err)
	}
	if got != out {
		t.Errorf("output path = %q, want %q", got, out)
	}

	if len(exec.calls) != 1 {
		t.Fatalf("expected one invocation, got %d", len(exec.calls))
	}
	c := exec.calls[0]
	if c.binary != "otbcli_BundleToPerfectSensor" {
		t.Errorf("binary = %q", c.binary)
	}
	if got := argValue(c.args, "-method"); got != "bayes" {
		t.Errorf("method argument = %q, want bare algorithm name", got)
	}
	if got := argValue(c.args, "-ram"); got != "2048" {
		t.Errorf("ram argument = %q", got)
	}
	if got := argValue(c.args, "-inp"); got != filepath.Join(dir, "pan.TIF") {
		t.Errorf("-inp = %q, want the panchromatic input", got)
	}
	if got := argValue(c.args, "-inxs"); got != filepath.Join(dir, "mul.TIF") {
		t.Errorf("-inxs = %q, want the multispectral input", got)
	}
}

func TestPansharpenUnknownDType(t *testing.T) {
	client := otb.New(logging.NewNop(), otb.WithExecutor(&fakeExecutor{touch: true}))
	_, err := client.Pansharpen(context.Background(), raster.PansharpRequest{
		Method:   "otb-bayes",
		OutPath:  filepath.Join(t.TempDir(), "out.TIF"),
		OutDType: imagery.DType("complex64"),
	})
	if !errors.Is(err, raster.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestPansharpenToolFailure(t *testing.T) {
	exec := &fakeExecutor{failErr: errors.New("segmentation fault")}
	client := otb.New(logging.NewNop(), otb.WithExecutor(exec))

	_, err := client.Pansharpen(context.Background(), raster.PansharpRequest{
		Method:   "otb-bayes",
		OutPath:  filepath.Join(t.TempDir(), "out.TIF"),
		OutDType: imagery.DTypeUInt16,
	})
	if !errors.Is(err, raster.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestPansharpenOutputMissing(t *testing.T) {
	// Tool exits zero but never writes the file.
	client := otb.New(logging.NewNop(), otb.WithExecutor(&fakeExecutor{}))
	_, err := client.Pansharpen(context.Background(), raster.PansharpRequest{
		Method:   "otb-bayes",
		OutPath:  filepath.Join(t.TempDir(), "out.TIF"),
		OutDType: imagery.DTypeUInt16,
	})
	if !errors.Is(err, raster.ErrOutputMissing) {
		t.Fatalf("expected ErrOutputMissing, got %v", err)
	}
}

func TestRescaleTo8Bit(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{touch: true}
	client := otb.New(logging.NewNop(), otb.WithExecutor(exec))

	out := filepath.Join(dir, "scene_uint8.tif")
	got, err := client.RescaleTo8Bit(context.Background(), filepath.Join(dir, "scene_uint16.TIF"), out)
	if err != nil {
		t.Fatalf("RescaleTo8Bit: %v", err)
	}
	if got != out {
		t.Errorf("output path = %q, want %q", got, out)
	}

	c := exec.calls[0]
	if c.binary != "otbcli_DynamicConvert" {
		t.Errorf("binary = %q", c.binary)
	}
	if got := argValue(c.args, "-type"); got != "linear" {
		t.Errorf("-type = %q", got)
	}
	if got := argValue(c.args, "-quantile.high"); got != "2" {
		t.Errorf("-quantile.high = %q", got)
	}
	if got := argValue(c.args, "-outmax"); got != "255" {
		t.Errorf("-outmax = %q", got)
	}
}

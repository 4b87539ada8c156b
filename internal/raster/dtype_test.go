package raster_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rasterprep/internal/imagery"
	"rasterprep/internal/raster"
	"rasterprep/internal/testsupport"
)

func TestReadDType(t *testing.T) {
	tests := []struct {
		name  string
		dtype imagery.DType
		bands int
	}{
		{"uint8 single band", imagery.DTypeUInt8, 1},
		{"uint16 four band", imagery.DTypeUInt16, 4},
		{"int16 single band", imagery.DTypeInt16, 1},
		{"uint16 single band", imagery.DTypeUInt16, 1},
		{"float32 four band", imagery.DTypeFloat32, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sample.TIF")
			testsupport.WriteTIFF(t, path, tt.dtype, tt.bands)

			got, err := raster.ReadDType(path)
			if err != nil {
				t.Fatalf("ReadDType: %v", err)
			}
			if got != tt.dtype {
				t.Errorf("ReadDType = %q, want %q", got, tt.dtype)
			}
		})
	}
}

func TestReadDTypeMissingFile(t *testing.T) {
	_, err := raster.ReadDType(filepath.Join(t.TempDir(), "absent.TIF"))
	if !errors.Is(err, raster.ErrDType) {
		t.Fatalf("expected ErrDType, got %v", err)
	}
}

func TestReadDTypeNotATIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.TIF")
	if err := os.WriteFile(path, []byte("this is not raster data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := raster.ReadDType(path); !errors.Is(err, raster.ErrDType) {
		t.Fatalf("expected ErrDType for non-TIFF bytes, got %v", err)
	}
}

// Package testsupport builds throwaway acquisition trees for tests:
// minimal TIFF files carrying a real header, vendor manifests, and the
// MUL/PAN directory layout discovery expects.
package testsupport

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rasterprep/internal/imagery"
)

// WriteTIFF writes a structurally valid single-IFD TIFF whose
// BitsPerSample/SampleFormat tags encode dtype for the given band
// count. The file carries no pixel data; it exists so header-level
// datatype reads succeed.
func WriteTIFF(t *testing.T, path string, dtype imagery.DType, bands int) {
	t.Helper()
	if bands < 1 {
		bands = 1
	}

	var bits, format uint16
	switch dtype {
	case imagery.DTypeUInt8:
		bits, format = 8, 1
	case imagery.DTypeUInt16:
		bits, format = 16, 1
	case imagery.DTypeInt16:
		bits, format = 16, 2
	case imagery.DTypeUInt32:
		bits, format = 32, 1
	case imagery.DTypeInt32:
		bits, format = 32, 2
	case imagery.DTypeFloat32:
		bits, format = 32, 3
	default:
		t.Fatalf("unsupported test dtype %q", dtype)
	}

	le := binary.LittleEndian
	buf := make([]byte, 0, 64)

	// Header: byte order, magic, first IFD offset.
	buf = append(buf, 'I', 'I')
	buf = le.AppendUint16(buf, 42)
	buf = le.AppendUint32(buf, 8)

	const entryCount = 2
	// 8 header + 2 count + entries + 4 next-IFD pointer.
	dataOffset := uint32(8 + 2 + entryCount*12 + 4)

	buf = le.AppendUint16(buf, entryCount)
	buf = appendShortEntry(buf, le, 258, bits, bands, dataOffset)
	buf = appendShortEntry(buf, le, 339, format, bands, dataOffset+uint32(bands)*2)
	buf = le.AppendUint32(buf, 0)

	if bands > 2 {
		for i := 0; i < bands; i++ {
			buf = le.AppendUint16(buf, bits)
		}
		for i := 0; i < bands; i++ {
			buf = le.AppendUint16(buf, format)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
}

func appendShortEntry(buf []byte, le binary.ByteOrder, tag, value uint16, count int, dataOffset uint32) []byte {
	b := buf
	b = appendUint16(b, le, tag)
	b = appendUint16(b, le, 3) // SHORT
	b = appendUint32(b, le, uint32(count))
	if count <= 2 {
		b = appendUint16(b, le, value)
		if count == 2 {
			b = appendUint16(b, le, value)
		} else {
			b = appendUint16(b, le, 0)
		}
	} else {
		b = appendUint32(b, le, dataOffset)
	}
	return b
}

func appendUint16(buf []byte, order binary.ByteOrder, v uint16) []byte {
	var tmp [2]byte
	order.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, order binary.ByteOrder, v uint32) []byte {
	var tmp [4]byte
	order.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// WriteManifest writes a vendor-style XML manifest enumerating tile
// file names and the standard four-band order.
func WriteManifest(t *testing.T, path string, tileNames []string, bands []string) {
	t.Helper()
	if len(bands) == 0 {
		bands = []string{"BAND_B", "BAND_G", "BAND_R", "BAND_N"}
	}

	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<isd>\n  <IMD>\n")
	for _, band := range bands {
		fmt.Fprintf(&sb, "    <%s><ULLON>0.0</ULLON></%s>\n", band, band)
	}
	sb.WriteString("  </IMD>\n  <TIL>\n")
	for _, name := range tileNames {
		fmt.Fprintf(&sb, "    <TILE><FILENAME>%s</FILENAME></TILE>\n", name)
	}
	sb.WriteString("  </TIL>\n</isd>\n")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Acquisition describes one synthetic MUL/PAN acquisition to lay out on
// disk for discovery tests.
type Acquisition struct {
	// Folder is the acquisition root relative to the base dir, e.g.
	// "A/IMG01". MUL tiles land in <Folder>/IMG01_MUL, PAN tiles in
	// <Folder>/IMG01_PAN.
	Folder   string
	Name     string
	Tiles    int
	DType    imagery.DType
	NoPan    bool
	PanTiles int // defaults to Tiles when zero
}

// BuildAcquisition materializes the acquisition under baseDir and
// returns the relative MUL directory. Tile names follow the vendor
// convention TILE-M1_R1C<n>-052.TIF with matching -P names.
func BuildAcquisition(t *testing.T, baseDir string, acq Acquisition) string {
	t.Helper()
	if acq.Name == "" {
		acq.Name = filepath.Base(acq.Folder)
	}
	mulDir := filepath.Join(acq.Folder, acq.Name+"_MUL")
	panDir := filepath.Join(acq.Folder, acq.Name+"_PAN")

	panTiles := acq.PanTiles
	if panTiles == 0 {
		panTiles = acq.Tiles
	}

	var mulNames, panNames []string
	for i := 1; i <= acq.Tiles; i++ {
		mulNames = append(mulNames, fmt.Sprintf("TILE-M1_R1C%d-052.TIF", i))
	}
	for i := 1; i <= panTiles; i++ {
		panNames = append(panNames, fmt.Sprintf("TILE-P1_R1C%d-052.TIF", i))
	}

	for _, name := range mulNames {
		WriteTIFF(t, filepath.Join(baseDir, mulDir, name), acq.DType, 4)
	}
	WriteManifest(t, filepath.Join(baseDir, mulDir, "TILE-M1-052.XML"), mulNames, nil)

	if !acq.NoPan {
		for _, name := range panNames {
			WriteTIFF(t, filepath.Join(baseDir, panDir, name), acq.DType, 1)
		}
		WriteManifest(t, filepath.Join(baseDir, panDir, "TILE-P1-052.XML"), panNames, nil)
	}
	return mulDir
}

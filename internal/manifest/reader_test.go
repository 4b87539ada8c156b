package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleManifest = `<?xml version="1.0" encoding="UTF-8"?>
<isd>
  <IMD>
    <NUMROWS>35840</NUMROWS>
    <BAND_B>
      <ULLON>-71.9</ULLON>
    </BAND_B>
    <BAND_G>
      <ULLON>-71.9</ULLON>
    </BAND_G>
    <BAND_R>
      <ULLON>-71.9</ULLON>
    </BAND_R>
    <BAND_N>
      <ULLON>-71.9</ULLON>
    </BAND_N>
    <IMAGE>
      <SATID>WV02</SATID>
    </IMAGE>
  </IMD>
  <TIL>
    <TILESIZE>16384</TILESIZE>
    <TILE>
      <FILENAME>09NOV12-M1_R1C1-052.TIF</FILENAME>
      <ULCOLOFFSET>0</ULCOLOFFSET>
    </TILE>
    <TILE>
      <FILENAME>09NOV12-M1_R1C2-052.TIF</FILENAME>
      <ULCOLOFFSET>16384</ULCOLOFFSET>
    </TILE>
  </TIL>
</isd>`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "09NOV12-M1-052.XML")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTileFilesOrder(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	tiles, err := TileFiles(path)
	if err != nil {
		t.Fatalf("TileFiles: %v", err)
	}
	want := []string{"09NOV12-M1_R1C1-052.TIF", "09NOV12-M1_R1C2-052.TIF"}
	if !reflect.DeepEqual(tiles, want) {
		t.Errorf("TileFiles = %v, want %v", tiles, want)
	}
}

func TestBandOrder(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	bands, err := BandOrder(path)
	if err != nil {
		t.Fatalf("BandOrder: %v", err)
	}
	want := []string{"BAND_B", "BAND_G", "BAND_R", "BAND_N"}
	if !reflect.DeepEqual(bands, want) {
		t.Errorf("BandOrder = %v, want %v", bands, want)
	}
}

func TestMissingManifest(t *testing.T) {
	_, err := TileFiles(filepath.Join(t.TempDir(), "absent.XML"))
	if !errors.Is(err, ErrManifest) {
		t.Fatalf("expected ErrManifest, got %v", err)
	}
}

func TestMalformedManifest(t *testing.T) {
	path := writeManifest(t, "<isd><TIL><TILE>")
	if _, err := TileFiles(path); !errors.Is(err, ErrManifest) {
		t.Fatalf("expected ErrManifest for truncated xml, got %v", err)
	}
}

func TestManifestWithoutTiles(t *testing.T) {
	path := writeManifest(t, `<isd><IMD><BAND_B/></IMD></isd>`)
	if _, err := TileFiles(path); !errors.Is(err, ErrManifest) {
		t.Fatalf("expected ErrManifest when TIL section missing, got %v", err)
	}
}

func TestManifestWithoutBands(t *testing.T) {
	path := writeManifest(t, `<isd><TIL><TILE><FILENAME>a.TIF</FILENAME></TILE></TIL></isd>`)
	if _, err := BandOrder(path); !errors.Is(err, ErrManifest) {
		t.Fatalf("expected ErrManifest when IMD bands missing, got %v", err)
	}
}

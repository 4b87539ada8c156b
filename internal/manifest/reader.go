// Package manifest reads the vendor XML manifest that accompanies each
// acquisition. The manifest is the canonical source for two orderings:
// the physical tile files composing one logical image, and the band
// layout used when splitting a raster into single-band files.
package manifest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrManifest marks a missing or unparsable manifest. Callers treat it
// as fatal for the owning image only, never for the whole run.
var ErrManifest = errors.New("manifest unreadable")

// BandPrefix identifies band-order elements inside the IMD section.
const BandPrefix = "BAND_"

// TileFiles returns the ordered list of physical tile file names
// composing the image, in manifest order. Order is significant: it is
// the sequence used to align multispectral and panchromatic tile lists.
func TileFiles(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifest, path, err)
	}
	defer file.Close()

	tiles, err := parseTileFiles(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifest, path, err)
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("%w: %s: no TILE entries", ErrManifest, path)
	}
	return tiles, nil
}

// BandOrder returns the ordered band identifiers declared in the
// manifest's IMD section (elements named BAND_*).
func BandOrder(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifest, path, err)
	}
	defer file.Close()

	bands, err := parseBandOrder(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifest, path, err)
	}
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: %s: no band elements", ErrManifest, path)
	}
	return bands, nil
}

func parseTileFiles(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)
	var (
		tiles    []string
		path     []string
		filename strings.Builder
	)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch tok := token.(type) {
		case xml.StartElement:
			path = append(path, tok.Name.Local)
			if inTileFilename(path) {
				filename.Reset()
			}
		case xml.CharData:
			if inTileFilename(path) {
				filename.Write(tok)
			}
		case xml.EndElement:
			if inTileFilename(path) {
				name := strings.TrimSpace(filename.String())
				if name != "" {
					tiles = append(tiles, name)
				}
			}
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
		}
	}
	return tiles, nil
}

// inTileFilename reports whether the decoder is inside TIL/TILE/FILENAME.
func inTileFilename(path []string) bool {
	n := len(path)
	return n >= 3 && path[n-3] == "TIL" && path[n-2] == "TILE" && path[n-1] == "FILENAME"
}

func parseBandOrder(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)
	var (
		bands []string
		depth int
		inIMD bool
	)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch tok := token.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 && tok.Name.Local == "IMD" {
				inIMD = true
			} else if inIMD && depth == 3 && strings.HasPrefix(tok.Name.Local, BandPrefix) {
				bands = append(bands, tok.Name.Local)
			}
		case xml.EndElement:
			if depth == 2 {
				inIMD = false
			}
			depth--
		}
	}
	return bands, nil
}

package imagery

import (
	"path/filepath"
	"sort"
	"time"
)

// Image aggregates every Tile belonging to one logical acquisition:
// one manifest, one image folder. Images are derived from the Tile set
// only after all per-tile steps have been attempted, because TileOutputs
// must hold processed artifacts, not raw inputs.
type Image struct {
	BaseDir     string
	ImageFolder string
	PrepFolder  string
	DType       DType
	Steps       []Step
	MulManifest string

	// TileOutputs are the per-tile artifacts in manifest order.
	TileOutputs []string

	MergedOutput string
	BandOutputs  []string

	// Err aggregates tile errors: set the first time any constituent
	// tile reports one. Errors propagate upward, never sideways.
	Err string

	Duration time.Duration
}

// Errored reports whether the image (or any constituent tile) failed.
func (img *Image) Errored() bool {
	return img.Err != ""
}

// SetError records the first error only.
func (img *Image) SetError(msg string) {
	if img.Err == "" {
		img.Err = msg
	}
}

// PrepDir returns the absolute path of the acquisition's output folder.
func (img *Image) PrepDir() string {
	return filepath.Join(img.BaseDir, img.ImageFolder, img.PrepFolder)
}

// Tiled reports whether the acquisition consists of more than one
// physical tile.
func (img *Image) Tiled() bool {
	return len(img.TileOutputs) > 1
}

// GroupTiles partitions processed tiles into Images by the ImageKey
// tuple. Every tile lands in exactly one image; grouping can never drop
// a tile. An errored tile marks its image errored, leaving sibling
// images untouched. The returned images are ordered by image folder for
// reproducible processing.
func GroupTiles(tiles []*Tile) []*Image {
	grouped := make(map[ImageKey]*Image)
	order := make([]ImageKey, 0)

	for _, tile := range tiles {
		key := tile.Key()
		img, ok := grouped[key]
		if !ok {
			img = &Image{
				BaseDir:     key.BaseDir,
				ImageFolder: key.ImageFolder,
				PrepFolder:  key.PrepFolder,
				DType:       tile.DType,
				Steps:       tile.Steps,
				MulManifest: key.MulManifest,
			}
			grouped[key] = img
			order = append(order, key)
		}
		if tile.Errored() {
			img.SetError(tile.Err)
		}
		img.TileOutputs = append(img.TileOutputs, tile.LastOutput)
	}

	images := make([]*Image, 0, len(grouped))
	for _, key := range order {
		images = append(images, grouped[key])
	}
	sort.SliceStable(images, func(i, j int) bool {
		if images[i].ImageFolder != images[j].ImageFolder {
			return images[i].ImageFolder < images[j].ImageFolder
		}
		return images[i].MulManifest < images[j].MulManifest
	})
	return images
}

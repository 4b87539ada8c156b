package imagery

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// tilePositionRe matches the vendor tile-position token (R1C2 and the
// like) embedded in tile file names.
var tilePositionRe = regexp.MustCompile(`R\wC\w`)

// stem returns the file name without directory or extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NormalizeMethod strips the backend prefix from a pansharp method name
// for use in output file names: "otb-bayes" embeds as "bayes".
func NormalizeMethod(method string) string {
	for _, prefix := range []string{"otb-", "gdal-"} {
		if strings.HasPrefix(method, prefix) {
			return strings.TrimPrefix(method, prefix)
		}
	}
	return method
}

// PansharpName derives the pansharpened output file name from the
// panchromatic input name: the PAN marker is replaced by a
// "-PSH-<method>-" infix and the source datatype is appended.
func PansharpName(panTile string, pattern MarkerPattern, method string, dtype DType) string {
	s := stem(panTile)
	pre, post := s, ""
	if pattern.Pan != "" {
		if idx := strings.LastIndex(s, pattern.Pan); idx >= 0 {
			pre = s[:idx]
			post = s[idx+len(pattern.Pan):]
		}
	}
	return fmt.Sprintf("%s-PSH-%s-%s_%s.TIF", pre, NormalizeMethod(method), post, dtype)
}

// MergeName derives the merged-mosaic output name from the first tile's
// name by substituting the tile-position token.
func MergeName(firstTile string) string {
	return tilePositionRe.ReplaceAllString(stem(firstTile), "Merge") + ".tif"
}

// ScaleName derives the 8-bit output name: a trailing datatype suffix in
// the stem is replaced, otherwise the suffix is appended.
func ScaleName(input string, dtype DType) string {
	s := stem(input)
	if suffix := "_" + string(dtype); strings.HasSuffix(s, suffix) {
		return strings.TrimSuffix(s, suffix) + "_uint8.tif"
	}
	return s + "_uint8.tif"
}

// BandName derives a single-band output name from the split input and a
// manifest band identifier such as "BAND_B".
func BandName(input, band string) string {
	return fmt.Sprintf("%s_%s.tif", stem(input), band)
}

// CogName derives the Cloud-Optimized-GeoTIFF name for a raster. Pansharp
// outputs get the cog marker folded into their PSH infix; anything else
// gets a "-<dtype>-cog" suffix.
func CogName(input, method string, dtype DType) string {
	base := filepath.Base(input)
	infix := fmt.Sprintf("-PSH-%s-", NormalizeMethod(method))
	if method != "" && strings.Contains(base, infix) {
		return strings.Replace(base, infix, fmt.Sprintf("-PSH-%s-cog-", NormalizeMethod(method)), 1)
	}
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s-%s-cog%s", strings.TrimSuffix(base, ext), dtype, ext)
}

// PrepFolderName derives the per-acquisition output folder from the MUL
// and PAN directory names: their longest common prefix plus "PREP", so
// IMG01_MUL and IMG01_PAN yield IMG01_PREP.
func PrepFolderName(mulDir, panDir string) string {
	mulName := filepath.Base(mulDir)
	panName := filepath.Base(panDir)
	return commonPrefix(mulName, panName) + "PREP"
}

func commonPrefix(a, b string) string {
	limit := len(a)
	if len(b) < limit {
		limit = len(b)
	}
	i := 0
	for i < limit && a[i] == b[i] {
		i++
	}
	return a[:i]
}

package imagery

import "testing"

func TestPansharpName(t *testing.T) {
	pattern := MarkerPattern{Mul: "-M", Pan: "-P"}
	tests := []struct {
		name    string
		panTile string
		method  string
		dtype   DType
		want    string
	}{
		{
			name:    "otb prefix stripped",
			panTile: "IMG01_PAN/TILE-P1R1C1.TIF",
			method:  "otb-bayes",
			dtype:   DTypeUInt16,
			want:    "TILE-PSH-bayes-1R1C1_uint16.TIF",
		},
		{
			name:    "plain method",
			panTile: "IMG01_PAN/TILE-P1.TIF",
			method:  "lmvm",
			dtype:   DTypeUInt8,
			want:    "TILE-PSH-lmvm-1_uint8.TIF",
		},
		{
			name:    "marker missing keeps stem",
			panTile: "IMG01_PAN/SCENE.TIF",
			method:  "otb-bayes",
			dtype:   DTypeUInt16,
			want:    "SCENE-PSH-bayes-_uint16.TIF",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PansharpName(tt.panTile, pattern, tt.method, tt.dtype)
			if got != tt.want {
				t.Errorf("PansharpName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMergeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"IMG01_MUL/TILE-M1_R1C1.TIF", "TILE-M1_Merge.tif"},
		{"TILE_R2C3-P001.NTF", "TILE_Merge-P001.tif"},
		{"NO_POSITION.TIF", "NO_POSITION.tif"},
	}
	for _, tt := range tests {
		if got := MergeName(tt.in); got != tt.want {
			t.Errorf("MergeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScaleName(t *testing.T) {
	tests := []struct {
		in    string
		dtype DType
		want  string
	}{
		{"PREP/TILE-PSH-bayes-1_uint16.TIF", DTypeUInt16, "TILE-PSH-bayes-1_uint8.tif"},
		{"PREP/TILE-Merge.tif", DTypeUInt16, "TILE-Merge_uint8.tif"},
	}
	for _, tt := range tests {
		if got := ScaleName(tt.in, tt.dtype); got != tt.want {
			t.Errorf("ScaleName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBandName(t *testing.T) {
	got := BandName("PREP/TILE_uint8.tif", "BAND_N")
	if got != "TILE_uint8_BAND_N.tif" {
		t.Errorf("BandName() = %q", got)
	}
}

func TestCogName(t *testing.T) {
	tests := []struct {
		in     string
		method string
		dtype  DType
		want   string
	}{
		{"PREP/TILE-PSH-bayes-1_uint16.TIF", "otb-bayes", DTypeUInt16, "TILE-PSH-bayes-cog-1_uint16.TIF"},
		{"PSH/SCENE.TIF", "", DTypeUInt8, "SCENE-uint8-cog.TIF"},
	}
	for _, tt := range tests {
		if got := CogName(tt.in, tt.method, tt.dtype); got != tt.want {
			t.Errorf("CogName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrepFolderName(t *testing.T) {
	tests := []struct {
		mul, pan, want string
	}{
		{"A/IMG01_MUL", "A/IMG01_PAN", "IMG01_PREP"},
		{"052_P001_MUL", "052_P001_PAN", "052_P001_PREP"},
		{"MULDIR", "PANDIR", "PREP"},
	}
	for _, tt := range tests {
		if got := PrepFolderName(tt.mul, tt.pan); got != tt.want {
			t.Errorf("PrepFolderName(%q, %q) = %q, want %q", tt.mul, tt.pan, got, tt.want)
		}
	}
}

package config

import "rasterprep/internal/raster"

const (
	defaultLogDirName    = "logs"
	defaultLedgerDirName = "logs"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultRAMMB         = 4096
)

// defaultExtensions are the raster extensions discovery accepts.
var defaultExtensions = []string{".TIF", ".tif", ".TIFF", ".tiff"}

// Default returns a Config populated with repository defaults. The
// pattern lists default to the DigitalGlobe delivery layout: tiles two
// levels below the acquisition folder, MUL and PAN in sibling
// directories.
func Default() Config {
	return Config{
		Discovery: Discovery{
			MulGlobs:   []string{"*/*_MUL/*.TIF"},
			PanGlobs:   []string{"*_PAN/*.TIF"},
			MulMarkers: []string{"-M"},
			PanMarkers: []string{"-P"},
			PshGlobs:   []string{"*/*_PREP/*-PSH-*.TIF"},
			Extensions: defaultExtensions,
		},
		Pansharp: Pansharp{
			Method: raster.DefaultMethod,
			RAMMB:  defaultRAMMB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

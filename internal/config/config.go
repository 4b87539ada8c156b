package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	BaseDir   string `toml:"base_dir"`
	LogDir    string `toml:"log_dir"`
	LedgerDir string `toml:"ledger_dir"`
}

// Discovery contains the glob pattern sets used to locate acquisitions.
// The four pattern lists are parallel: entry i of each list together
// forms one pattern tuple.
type Discovery struct {
	MulGlobs   []string `toml:"mul_globs"`
	PanGlobs   []string `toml:"pan_globs"`
	MulMarkers []string `toml:"mul_markers"`
	PanMarkers []string `toml:"pan_markers"`
	PshGlobs   []string `toml:"psh_globs"`
	Extensions []string `toml:"extensions"`
}

// Pansharp contains pansharpening backend settings.
type Pansharp struct {
	Method string `toml:"method"`
	RAMMB  int    `toml:"ram_mb"`
}

// Pipeline contains run-behavior switches.
type Pipeline struct {
	Overwrite          bool `toml:"overwrite"`
	DryRun             bool `toml:"dry_run"`
	DeleteIntermediate bool `toml:"delete_intermediate"`
	Cog                bool `toml:"cog"`
}

// Reports contains CSV report output settings.
type Reports struct {
	TileManifest  bool `toml:"tile_manifest"`
	ImageOutcomes bool `toml:"image_outcomes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for rasterprep.
//
// Configuration sections by subsystem:
//   - Paths: base directory, log and ledger locations
//   - Discovery: glob pattern tuples, pansharpened-asset globs, extensions
//   - Pansharp: backend method selection and RAM budget
//   - Pipeline: overwrite/dry-run/cleanup/COG switches
//   - Reports: optional CSV manifest and outcome logs
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Discovery Discovery `toml:"discovery"`
	Pansharp  Pansharp  `toml:"pansharp"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Reports   Reports   `toml:"reports"`
	Logging   Logging   `toml:"logging"`
}

// Pattern is one discovery tuple assembled from the parallel lists.
type Pattern struct {
	MulGlob   string
	PanGlob   string
	MulMarker string
	PanMarker string
}

// Patterns zips the parallel pattern lists into tuples. Validate has
// already confirmed the lists share one length.
func (c *Config) Patterns() []Pattern {
	patterns := make([]Pattern, 0, len(c.Discovery.MulGlobs))
	for i := range c.Discovery.MulGlobs {
		patterns = append(patterns, Pattern{
			MulGlob:   c.Discovery.MulGlobs[i],
			PanGlob:   c.Discovery.PanGlobs[i],
			MulMarker: c.Discovery.MulMarkers[i],
			PanMarker: c.Discovery.PanMarkers[i],
		})
	}
	return patterns
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rasterprep/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rasterprep.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and ledger directories. The base
// directory itself is input data and must already exist.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.LedgerDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"

	"rasterprep/internal/raster"
)

// Validate ensures the configuration is usable. Every check here runs
// before globbing or any external tool is touched: a bad configuration
// must fail the run up front, never midway through an archive.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	if err := c.validatePansharp(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.BaseDir == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/rasterprep/config.toml"
		}
		return fmt.Errorf("paths.base_dir is required. Edit %s (create with 'rasterprep config init')", defaultPath)
	}
	info, err := os.Stat(c.Paths.BaseDir)
	if err != nil {
		return fmt.Errorf("paths.base_dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("paths.base_dir %q is not a directory", c.Paths.BaseDir)
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	n := len(c.Discovery.MulGlobs)
	if n == 0 && len(c.Discovery.PshGlobs) == 0 {
		return errors.New("discovery needs at least one of discovery.mul_globs or discovery.psh_globs")
	}
	for name, length := range map[string]int{
		"discovery.pan_globs":   len(c.Discovery.PanGlobs),
		"discovery.mul_markers": len(c.Discovery.MulMarkers),
		"discovery.pan_markers": len(c.Discovery.PanMarkers),
	} {
		if length != n {
			return fmt.Errorf("%s has %d entries, discovery.mul_globs has %d; the four pattern lists must be parallel", name, length, n)
		}
	}
	for i := range c.Discovery.MulGlobs {
		if c.Discovery.MulGlobs[i] == "" {
			return fmt.Errorf("discovery.mul_globs[%d] is empty", i)
		}
		if c.Discovery.PanGlobs[i] == "" {
			return fmt.Errorf("discovery.pan_globs[%d] is empty", i)
		}
		if c.Discovery.MulMarkers[i] == "" || c.Discovery.PanMarkers[i] == "" {
			return fmt.Errorf("pattern tuple %d is missing its MUL or PAN marker", i)
		}
	}
	if len(c.Discovery.Extensions) == 0 {
		return errors.New("discovery.extensions must include at least one raster extension")
	}
	return nil
}

func (c *Config) validatePansharp() error {
	if _, err := raster.MethodBackend(c.Pansharp.Method); err != nil {
		return fmt.Errorf("pansharp.method: %w", err)
	}
	if c.Pansharp.RAMMB <= 0 {
		return errors.New("pansharp.ram_mb must be positive")
	}
	return nil
}

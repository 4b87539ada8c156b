package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDiscovery()
	c.normalizePansharp()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.BaseDir, err = expandPath(c.Paths.BaseDir); err != nil {
		return fmt.Errorf("paths.base_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" && c.Paths.BaseDir != "" {
		c.Paths.LogDir = filepath.Join(c.Paths.BaseDir, defaultLogDirName)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LedgerDir) == "" && c.Paths.BaseDir != "" {
		c.Paths.LedgerDir = filepath.Join(c.Paths.BaseDir, defaultLedgerDirName)
	}
	if c.Paths.LedgerDir, err = expandPath(c.Paths.LedgerDir); err != nil {
		return fmt.Errorf("paths.ledger_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDiscovery() {
	c.Discovery.MulGlobs = trimAll(c.Discovery.MulGlobs)
	c.Discovery.PanGlobs = trimAll(c.Discovery.PanGlobs)
	c.Discovery.MulMarkers = trimAll(c.Discovery.MulMarkers)
	c.Discovery.PanMarkers = trimAll(c.Discovery.PanMarkers)
	c.Discovery.PshGlobs = trimAll(c.Discovery.PshGlobs)

	if len(c.Discovery.Extensions) == 0 {
		c.Discovery.Extensions = defaultExtensions
	} else {
		exts := make([]string, 0, len(c.Discovery.Extensions))
		for _, ext := range c.Discovery.Extensions {
			ext = strings.TrimSpace(ext)
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			exts = append(exts, ext)
		}
		c.Discovery.Extensions = exts
	}
}

func (c *Config) normalizePansharp() {
	c.Pansharp.Method = strings.ToLower(strings.TrimSpace(c.Pansharp.Method))
	if c.Pansharp.RAMMB <= 0 {
		c.Pansharp.RAMMB = defaultRAMMB
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

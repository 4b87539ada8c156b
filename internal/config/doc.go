// Package config loads, normalizes, and validates rasterprep configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and zips the parallel discovery pattern
// lists into tuples. The Config type centralizes every knob the CLI
// needs, so base directory, pattern sets, and pipeline switches are
// resolved in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, validated pattern tuples, and clear validation errors.
package config

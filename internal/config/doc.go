// Package config loads, normalizes, and validates Vigil configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VIGIL_ROOT. The Config type centralizes every knob the CLI needs, so the
// monitored root, manifest location, and scan limits are discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.Root == "" {
		return errors.New("paths.root must be set")
	}
	if c.Paths.ManifestPath == "" {
		return errors.New("paths.manifest_path must be set")
	}
	if c.Paths.DatabasePath == "" {
		return errors.New("paths.database_path must be set")
	}
	return nil
}

func (c *Config) validateScan() error {
	if err := ensurePositiveMap(map[string]int{
		"scan.max_entries": c.Scan.MaxEntries,
		"scan.max_depth":   c.Scan.MaxDepth,
	}); err != nil {
		return err
	}
	if c.Scan.TimeoutSeconds < 0 {
		return errors.New("scan.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeLogging()
	if c.History.Limit <= 0 {
		c.History.Limit = defaultHistoryLimit
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.Root == "" {
		if value, ok := os.LookupEnv("VIGIL_ROOT"); ok && strings.TrimSpace(value) != "" {
			c.Paths.Root = value
		} else {
			c.Paths.Root = defaultRoot
		}
	}
	if c.Paths.Root, err = expandPath(c.Paths.Root); err != nil {
		return fmt.Errorf("paths.root: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	// State files follow state_dir unless the operator pinned them.
	manifest := strings.TrimSpace(c.Paths.ManifestPath)
	if manifest == "" || manifest == defaultManifestPath {
		c.Paths.ManifestPath = filepath.Join(c.Paths.StateDir, "manifest.json")
	}
	if c.Paths.ManifestPath, err = expandPath(c.Paths.ManifestPath); err != nil {
		return fmt.Errorf("paths.manifest_path: %w", err)
	}
	database := strings.TrimSpace(c.Paths.DatabasePath)
	if database == "" || database == defaultDatabasePath {
		c.Paths.DatabasePath = filepath.Join(c.Paths.StateDir, "annotations.db")
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.PolicyPath) == "" {
		c.Paths.PolicyPath = defaultPolicyPath
	}
	if c.Paths.PolicyPath, err = expandPath(c.Paths.PolicyPath); err != nil {
		return fmt.Errorf("paths.policy_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() {
	if c.Scan.MaxEntries <= 0 {
		c.Scan.MaxEntries = defaultScanMaxEntries
	}
	if c.Scan.MaxDepth <= 0 {
		c.Scan.MaxDepth = defaultScanMaxDepth
	}
	if c.Scan.TimeoutSeconds < 0 {
		c.Scan.TimeoutSeconds = 0
	}
	c.Scan.Include = trimPatterns(c.Scan.Include)
	c.Scan.Exclude = trimPatterns(c.Scan.Exclude)
}

func trimPatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
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

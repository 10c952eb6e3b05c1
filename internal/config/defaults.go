package config

const (
	defaultRoot           = "."
	defaultStateDir       = "~/.local/share/vigil"
	defaultManifestPath   = "~/.local/share/vigil/manifest.json"
	defaultDatabasePath   = "~/.local/share/vigil/annotations.db"
	defaultPolicyPath     = "~/.config/vigil/policy.yaml"
	defaultScanMaxEntries = 1_000_000
	defaultScanMaxDepth   = 64
	defaultScanTimeout    = 0
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultHistoryLimit   = 20
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Root:         defaultRoot,
			StateDir:     defaultStateDir,
			ManifestPath: defaultManifestPath,
			DatabasePath: defaultDatabasePath,
			PolicyPath:   defaultPolicyPath,
		},
		Scan: Scan{
			MaxEntries:     defaultScanMaxEntries,
			MaxDepth:       defaultScanMaxDepth,
			TimeoutSeconds: defaultScanTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Limit: defaultHistoryLimit,
		},
	}
}

package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"vigil/internal/annotations"
	"vigil/internal/config"
	"vigil/internal/logging"
	"vigil/internal/monitor"
	"vigil/internal/rules"
	"vigil/internal/scan"
	"vigil/internal/supervisor"
	"vigil/internal/verify"
)

// commandContext carries the lazily-resolved dependencies shared by all
// subcommands. The watch monitor lives here so its lifecycle is owned by the
// dispatcher rather than package-global state.
type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	monitorOnce sync.Once
	watchMon    *monitor.Monitor
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, jsonFlag: jsonFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) watchMonitor() (*monitor.Monitor, error) {
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	c.monitorOnce.Do(func() {
		c.watchMon = monitor.New(logger)
	})
	return c.watchMon, nil
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// openAnnotations opens the SQLite annotation store; callers own Close.
func (c *commandContext) openAnnotations() (*annotations.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return annotations.Open(cfg.Paths.DatabasePath)
}

// scanOptions assembles supervisor options from config, policy file, and
// per-invocation flag overrides.
func (c *commandContext) scanOptions(rootFlag string, flagIncludes, flagExcludes []string, timeoutSeconds int) (supervisor.Options, rules.Policy, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return supervisor.Options{}, rules.Policy{}, err
	}

	root := cfg.Paths.Root
	if trimmed := strings.TrimSpace(rootFlag); trimmed != "" {
		if root, err = config.ExpandPath(trimmed); err != nil {
			return supervisor.Options{}, rules.Policy{}, err
		}
	}

	policy, err := rules.LoadPolicy(cfg.Paths.PolicyPath)
	if err != nil {
		return supervisor.Options{}, rules.Policy{}, err
	}

	includes := append(append([]string{}, cfg.Scan.Include...), flagIncludes...)
	excludes := append(append([]string{}, cfg.Scan.Exclude...), flagExcludes...)
	rs, err := policy.RuleSet(includes, excludes)
	if err != nil {
		return supervisor.Options{}, rules.Policy{}, err
	}

	timeout := time.Duration(cfg.Scan.TimeoutSeconds) * time.Second
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}

	opts := supervisor.Options{
		Root:         root,
		ManifestPath: cfg.Paths.ManifestPath,
		Rules:        rs,
		Limits: scan.Limits{
			MaxEntries:    cfg.Scan.MaxEntries,
			MaxDepth:      cfg.Scan.MaxDepth,
			OneFilesystem: cfg.Scan.OneFilesystem,
		},
		Timeout: timeout,
	}
	return opts, policy, nil
}

// loadAnnotations seeds the whitelist from the policy file and returns the
// combined operator annotation sets for verification.
func loadAnnotations(cmd *cobra.Command, store *annotations.Store, policy rules.Policy) (verify.Annotations, error) {
	ctx := cmd.Context()
	if len(policy.Whitelist) > 0 {
		if err := store.SeedWhitelist(ctx, policy.Whitelist); err != nil {
			return verify.Annotations{}, err
		}
	}
	whitelist, err := store.Paths(ctx, annotations.KindWhitelist)
	if err != nil {
		return verify.Annotations{}, err
	}
	critical, err := store.Paths(ctx, annotations.KindCritical)
	if err != nil {
		return verify.Annotations{}, err
	}
	return verify.Annotations{
		Whitelist: verify.PathSet(whitelist),
		Critical:  verify.PathSet(critical),
	}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"vigil/internal/vigilerr"
)

func TestIncludedNoRules(t *testing.T) {
	rs, err := New(nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !rs.Included("anything/at/all.txt") {
		t.Error("empty rule set must include everything")
	}
}

func TestIncluded(t *testing.T) {
	rs, err := New(
		[]string{"logs/audit.log", "vendor/keep/**"},
		[]string{"logs/*", "vendor", "**/*.tmp"},
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		path string
		want bool
	}{
		{"src/main.go", true},
		{"logs/app.log", false},
		{"logs/audit.log", true}, // more specific include wins
		{"vendor/lib/lib.go", false},
		{"vendor/keep/lib.go", true},
		{"build/cache.tmp", false},
		{"deep/nested/file.tmp", false},
	}
	for _, tc := range cases {
		if got := rs.Included(tc.path); got != tc.want {
			t.Errorf("Included(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestIncludedDeterministic(t *testing.T) {
	rs, err := New([]string{"a/b.txt"}, []string{"a/*"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 10; i++ {
		if !rs.Included("a/b.txt") || rs.Included("a/c.txt") {
			t.Fatalf("iteration %d: decisions changed", i)
		}
	}
}

func TestDirectoryPatternCoversSubtree(t *testing.T) {
	rs, err := New(nil, []string{"node_modules"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if rs.Included("node_modules/pkg/index.js") {
		t.Error("directory exclude must cover the whole subtree")
	}
	if !rs.PrunableDir("node_modules") {
		t.Error("excluded directory with no includes beneath must be prunable")
	}
}

func TestPrunableDirBlockedByInclude(t *testing.T) {
	rs, err := New([]string{"vendor/keep/**"}, []string{"vendor"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if rs.PrunableDir("vendor") {
		t.Error("vendor must not be pruned while an include claims a child")
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	if _, err := New(nil, []string{"logs/["}); !errors.Is(err, vigilerr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := New([]string{"  "}, nil); !errors.Is(err, vigilerr.ErrValidation) {
		t.Fatalf("expected validation error for blank pattern, got %v", err)
	}
}

func TestLoadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := `include:
  - logs/audit.log
exclude:
  - logs/*
  - "**/*.tmp"
whitelist:
  - ./local/override.conf
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	policy, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if len(policy.Exclude) != 2 || len(policy.Include) != 1 {
		t.Fatalf("unexpected policy: %+v", policy)
	}
	if len(policy.Whitelist) != 1 || policy.Whitelist[0] != "local/override.conf" {
		t.Fatalf("whitelist not normalized: %+v", policy.Whitelist)
	}

	rs, err := policy.RuleSet(nil, []string{"build"})
	if err != nil {
		t.Fatalf("RuleSet: %v", err)
	}
	if rs.Included("logs/app.log") || rs.Included("build/out.bin") {
		t.Error("excludes from file and CLI must both apply")
	}
	if !rs.Included("logs/audit.log") {
		t.Error("include from file must apply")
	}
}

func TestLoadPolicyMissingFile(t *testing.T) {
	policy, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing policy file must not error: %v", err)
	}
	if len(policy.Exclude) != 0 {
		t.Fatalf("expected empty policy, got %+v", policy)
	}
}

func TestLoadPolicyMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(":\n\t- broken"), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	if _, err := LoadPolicy(path); !errors.Is(err, vigilerr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

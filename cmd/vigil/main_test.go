package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vigil/internal/testsupport"
	"vigil/internal/vigilerr"
)

func writeTestConfig(t *testing.T, root string) string {
	t.Helper()
	stateDir := t.TempDir()
	configPath := filepath.Join(stateDir, "vigil.toml")
	contents := fmt.Sprintf(`[paths]
root = %q
state_dir = %q
policy_path = %q

[logging]
level = "error"
`, root, stateDir, filepath.Join(stateDir, "policy.yaml"))
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateAndVerifyThroughCLI(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{
		"app.conf":     "key=value",
		"bin/tool":     "binary payload",
		"docs/read.md": "docs",
	})
	configPath := writeTestConfig(t, root)

	out, err := runCommand(t, "--config", configPath, "generate")
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Fingerprinted 3 files") {
		t.Fatalf("unexpected generate output: %s", out)
	}

	out, err = runCommand(t, "--config", configPath, "verify")
	if err != nil {
		t.Fatalf("verify on unchanged tree: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Verification passed") {
		t.Fatalf("unexpected verify output: %s", out)
	}
}

func TestVerifyReportsDriftThroughCLI(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{"app.conf": "key=value"})
	configPath := writeTestConfig(t, root)

	if out, err := runCommand(t, "--config", configPath, "generate"); err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}
	testsupport.WriteFile(t, filepath.Join(root, "app.conf"), "tampered")

	out, err := runCommand(t, "--config", configPath, "verify")
	if !errors.Is(err, errDriftDetected) {
		t.Fatalf("expected drift error, got %v\n%s", err, out)
	}
	if !strings.Contains(out, "modified 1") {
		t.Fatalf("report missing modification count: %s", out)
	}
}

func TestWhitelistSuppressesUnauthorizedThroughCLI(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{"app.conf": "key=value"})
	configPath := writeTestConfig(t, root)

	if out, err := runCommand(t, "--config", configPath, "generate"); err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}
	testsupport.WriteFile(t, filepath.Join(root, "deploy.lock"), "expected artifact")

	if _, err := runCommand(t, "--config", configPath, "verify"); !errors.Is(err, errDriftDetected) {
		t.Fatalf("expected drift before whitelisting, got %v", err)
	}

	out, err := runCommand(t, "--config", configPath, "whitelist", "add", "deploy.lock", "--note", "release artifact")
	if err != nil {
		t.Fatalf("whitelist add: %v\n%s", err, out)
	}

	out, err = runCommand(t, "--config", configPath, "verify")
	if err != nil {
		t.Fatalf("verify after whitelisting: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Verification passed") {
		t.Fatalf("unexpected verify output: %s", out)
	}

	out, err = runCommand(t, "--config", configPath, "whitelist", "list")
	if err != nil {
		t.Fatalf("whitelist list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "deploy.lock") || !strings.Contains(out, "release artifact") {
		t.Fatalf("whitelist entry missing from listing: %s", out)
	}
}

func TestHistoryRecordsRunsThroughCLI(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{"app.conf": "key=value"})
	configPath := writeTestConfig(t, root)

	if out, err := runCommand(t, "--config", configPath, "generate"); err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}
	if out, err := runCommand(t, "--config", configPath, "verify"); err != nil {
		t.Fatalf("verify: %v\n%s", err, out)
	}

	out, err := runCommand(t, "--config", configPath, "history")
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	if !strings.Contains(out, "generate") || !strings.Contains(out, "verify") {
		t.Fatalf("history missing runs: %s", out)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when target exists")
	}
	if out, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v\n%s", err, out)
	}
}

func TestConfigShowRendersResolvedValues(t *testing.T) {
	root := t.TempDir()
	configPath := writeTestConfig(t, root)

	out, err := runCommand(t, "--config", configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v\n%s", err, out)
	}
	if !strings.Contains(out, "paths.root") || !strings.Contains(out, root) {
		t.Fatalf("resolved root missing: %s", out)
	}
}

func TestWatchStartRejectsNonPositiveInterval(t *testing.T) {
	root := t.TempDir()
	configPath := writeTestConfig(t, root)

	for _, interval := range []string{"0", "-5"} {
		_, err := runCommand(t, "--config", configPath, "watch", "start", "--interval", interval)
		if !errors.Is(err, vigilerr.ErrValidation) {
			t.Fatalf("interval %s: expected validation error, got %v", interval, err)
		}
	}
}

func TestWatchStatusStartsUninitialized(t *testing.T) {
	root := t.TempDir()
	configPath := writeTestConfig(t, root)

	out, err := runCommand(t, "--config", configPath, "watch", "status")
	if err != nil {
		t.Fatalf("watch status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "uninitialized") {
		t.Fatalf("expected uninitialized state, got: %s", out)
	}
}

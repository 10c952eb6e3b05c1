package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestConsoleHandlerFormatsLine(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("scan started", slog.String("root", "/srv/data"), slog.Int("depth", 4))

	line := buf.String()
	if !strings.Contains(line, "INFO scan started") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "root=/srv/data") || !strings.Contains(line, "depth=4") {
		t.Fatalf("attributes missing: %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("color codes on non-terminal writer: %q", line)
	}
}

func TestConsoleHandlerFlattensGroupsAndQuotes(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.WithGroup("scan").With(slog.String("session", "abc")).Info("done",
		slog.String("detail", "two words"),
		slog.Duration("elapsed", 1500*time.Millisecond))

	line := buf.String()
	if !strings.Contains(line, `detail="two words"`) {
		t.Fatalf("multi-word value not quoted: %q", line)
	}
	if !strings.Contains(line, "scan.session=abc") {
		t.Fatalf("group prefix missing: %q", line)
	}
	if !strings.Contains(line, "scan.elapsed=1.5s") {
		t.Fatalf("duration not rendered: %q", line)
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("kept")

	if strings.Contains(buf.String(), "suppressed") {
		t.Fatalf("info record leaked past warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn record missing: %q", buf.String())
	}
}

func TestJSONHandlerEmitsLowercaseLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Error("manifest corrupt", slog.String("path", "/tmp/m.json"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if payload["level"] != "error" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if payload["msg"] != "manifest corrupt" {
		t.Fatalf("unexpected message: %v", payload["msg"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatal("timestamp key missing")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "logfmt"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if parseLevel("verbose") != slog.LevelInfo {
		t.Fatal("unknown level must map to info")
	}
	if parseLevel("DEBUG") != slog.LevelDebug {
		t.Fatal("level parsing must be case-insensitive")
	}
}

package fingerprint

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vigil/internal/vigilerr"
)

func TestFileKnownDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	if err := os.WriteFile(path, []byte("hello world\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	const want = "a948904f2f0f479b8f8197694b30184b0d2ed1c1cd2a1ec0fb85d299a192a447"
	if got != want {
		t.Fatalf("unexpected digest: %s", got)
	}
}

func TestFileContentIdentity(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "sub", "b.bin")
	if err := os.MkdirAll(filepath.Dir(b), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := []byte(strings.Repeat("payload", 100_000))
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, content, 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	da, err := File(a)
	if err != nil {
		t.Fatalf("File(a): %v", err)
	}
	db, err := File(b)
	if err != nil {
		t.Fatalf("File(b): %v", err)
	}
	if da != db {
		t.Fatalf("identical content produced different digests: %s vs %s", da, db)
	}
	if len(da) != 64 {
		t.Fatalf("digest is not 256-bit hex: %q", da)
	}
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, vigilerr.ErrReadFailure) {
		t.Fatalf("expected ErrReadFailure, got %v", err)
	}
}

func TestReaderMatchesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	if err := os.WriteFile(path, []byte("stream me"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fromFile, err := File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	fromReader, err := Reader(strings.NewReader("stream me"))
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	if fromFile != fromReader {
		t.Fatalf("File and Reader disagree: %s vs %s", fromFile, fromReader)
	}
}

package pathnorm

import (
	"errors"
	"path/filepath"
	"testing"

	"vigil/internal/vigilerr"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"docs/readme.md", "docs/readme.md"},
		{"docs//readme.md", "docs/readme.md"},
		{"./docs/readme.md", "docs/readme.md"},
		{"docs/sub/../readme.md", "docs/readme.md"},
		{".", "."},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRejectsEscapes(t *testing.T) {
	for _, in := range []string{"", "../etc/passwd", "docs/../../etc", "/etc/passwd"} {
		if _, err := Normalize(in); !errors.Is(err, vigilerr.ErrValidation) {
			t.Errorf("Normalize(%q): expected validation error, got %v", in, err)
		}
	}
}

func TestNormalizeNFC(t *testing.T) {
	// "é" as base letter plus combining accent must normalize to the
	// single precomposed code point.
	decomposed := "cafe\u0301.txt"
	composed := "caf\u00e9.txt"
	got, err := Normalize(decomposed)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != composed {
		t.Errorf("Normalize(%q) = %q, want %q", decomposed, got, composed)
	}
}

func TestRel(t *testing.T) {
	root := filepath.Join("/", "srv", "data")
	got, err := Rel(root, filepath.Join(root, "a", "b.txt"))
	if err != nil {
		t.Fatalf("Rel: %v", err)
	}
	if got != "a/b.txt" {
		t.Errorf("Rel = %q, want a/b.txt", got)
	}
	if _, err := Rel(root, filepath.Join("/", "srv", "other", "x")); err == nil {
		t.Error("expected error for path outside root")
	}
}

// Package pathnorm canonicalizes manifest-relative paths so that rule
// matching, baseline keys, and annotation keys always agree. Paths are
// slash-separated, NFC-normalized, and never escape the scan root.
package pathnorm

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"vigil/internal/vigilerr"
)

// Normalize canonicalizes a manifest-relative path: separators become
// forward slashes, redundant elements collapse, and the bytes are NFC
// normalized so the same file name scanned on different platforms yields
// the same key. Absolute paths and paths escaping the root are rejected.
func Normalize(rel string) (string, error) {
	trimmed := strings.TrimSpace(rel)
	if trimmed == "" {
		return "", vigilerr.Wrap(vigilerr.ErrValidation, "normalize path", "empty path", nil)
	}
	slashed := filepath.ToSlash(trimmed)
	if path.IsAbs(slashed) {
		return "", vigilerr.Wrap(vigilerr.ErrValidation, "normalize path", fmt.Sprintf("%q is absolute", rel), nil)
	}
	cleaned := path.Clean(slashed)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", vigilerr.Wrap(vigilerr.ErrValidation, "normalize path", fmt.Sprintf("%q escapes the scan root", rel), nil)
	}
	return norm.NFC.String(cleaned), nil
}

// Rel computes the normalized manifest key for an absolute path under root.
func Rel(root, target string) (string, error) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", vigilerr.Wrap(vigilerr.ErrValidation, "relativize path", target, err)
	}
	return Normalize(rel)
}

// Package rules decides which tree entries participate in a scan. Rules are
// ordered glob patterns over normalized slash-separated relative paths; an
// exclude hides a path unless a more specific include claims it back.
package rules

import (
	"fmt"
	"path"
	"strings"

	"vigil/internal/pathnorm"
	"vigil/internal/vigilerr"
)

// RuleSet holds ordered include and exclude patterns. The zero value
// includes everything.
type RuleSet struct {
	includes []string
	excludes []string
}

// New validates the patterns and builds a rule set. Patterns use path.Match
// syntax per segment; a double-star segment ("**") matches any number of
// segments, and a bare directory pattern matches everything beneath it.
func New(includes, excludes []string) (*RuleSet, error) {
	rs := &RuleSet{}
	for _, p := range includes {
		cleaned, err := validatePattern(p)
		if err != nil {
			return nil, err
		}
		rs.includes = append(rs.includes, cleaned)
	}
	for _, p := range excludes {
		cleaned, err := validatePattern(p)
		if err != nil {
			return nil, err
		}
		rs.excludes = append(rs.excludes, cleaned)
	}
	return rs, nil
}

// Excludes returns a copy of the exclude patterns for manifest persistence.
func (r *RuleSet) Excludes() []string {
	if r == nil || len(r.excludes) == 0 {
		return nil
	}
	out := make([]string, len(r.excludes))
	copy(out, r.excludes)
	return out
}

// Includes returns a copy of the include patterns.
func (r *RuleSet) Includes() []string {
	if r == nil || len(r.includes) == 0 {
		return nil
	}
	out := make([]string, len(r.includes))
	copy(out, r.includes)
	return out
}

// Included reports whether the normalized relative path participates in the
// scan. A path matching an exclude pattern is still included when an include
// pattern of equal or greater specificity also matches it. Same patterns and
// path always yield the same answer.
func (r *RuleSet) Included(rel string) bool {
	if r == nil {
		return true
	}
	exclude := bestMatch(r.excludes, rel)
	if exclude < 0 {
		return true
	}
	include := bestMatch(r.includes, rel)
	return include >= exclude
}

// PrunableDir reports whether an entire directory subtree can be skipped
// without visiting it: true only when an exclude matches the directory and
// no include pattern could match anything beneath it.
func (r *RuleSet) PrunableDir(rel string) bool {
	if r == nil || bestMatch(r.excludes, rel) < 0 {
		return false
	}
	if bestMatch(r.includes, rel) >= 0 {
		return false
	}
	// An include with a "**" or a prefix below rel may still claim a child.
	prefix := rel + "/"
	for _, p := range r.includes {
		if strings.Contains(p, "**") || strings.HasPrefix(p, prefix) {
			return false
		}
	}
	return true
}

// bestMatch returns the specificity of the most specific matching pattern,
// or -1 when none match. Specificity counts literal (non-wildcard) runes so
// "logs/app.log" beats "logs/*".
func bestMatch(patterns []string, rel string) int {
	best := -1
	for _, p := range patterns {
		if !matchGlob(p, rel) {
			continue
		}
		if s := specificity(p); s > best {
			best = s
		}
	}
	return best
}

func specificity(pattern string) int {
	count := 0
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', ']':
		default:
			count++
		}
	}
	return count
}

// matchGlob matches pattern against a slash-separated relative path. Each
// pattern segment uses path.Match; a "**" segment spans zero or more path
// segments. A pattern with fewer segments than the path matches when it
// covers a leading directory, so "vendor" hides the whole vendor tree.
func matchGlob(pattern, rel string) bool {
	if rel == "." {
		return false
	}
	return matchSegments(strings.Split(pattern, "/"), strings.Split(rel, "/"))
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			if len(pat) == 1 {
				return true
			}
			for i := 0; i <= len(segs); i++ {
				if matchSegments(pat[1:], segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		ok, err := path.Match(pat[0], segs[0])
		if err != nil || !ok {
			return false
		}
		pat = pat[1:]
		segs = segs[1:]
	}
	// Pattern exhausted: match the path itself or any deeper entry.
	return true
}

func validatePattern(pattern string) (string, error) {
	cleaned := strings.Trim(strings.TrimSpace(pattern), "/")
	if cleaned == "" {
		return "", vigilerr.Wrap(vigilerr.ErrValidation, "rule pattern", "empty pattern", nil)
	}
	for _, seg := range strings.Split(cleaned, "/") {
		if seg == "**" {
			continue
		}
		if _, err := path.Match(seg, "probe"); err != nil {
			return "", vigilerr.Wrap(vigilerr.ErrValidation, "rule pattern", fmt.Sprintf("bad pattern %q", pattern), err)
		}
	}
	normalized, err := pathnorm.Normalize(cleaned)
	if err != nil {
		return "", err
	}
	return normalized, nil
}

// Package verify diffs a fresh scan against a stored baseline and
// classifies every path.
package verify

import (
	"sort"
	"time"

	"vigil/internal/baseline"
)

// Finding is one classified path in a verification report.
type Finding struct {
	Path     string `json:"path"`
	Detail   string `json:"detail,omitempty"`
	Critical bool   `json:"critical,omitempty"`
}

// Report is the classified outcome of one verification pass.
type Report struct {
	Passed       []Finding     `json:"passed"`
	Modified     []Finding     `json:"modified"`
	Missing      []Finding     `json:"missing"`
	Unauthorized []Finding     `json:"unauthorized"`
	Pass         bool          `json:"pass"`
	// CriticalFailure is set when any deviating path carries a critical
	// mark, so exit-code logic can distinguish drift from must-block.
	CriticalFailure bool          `json:"critical_failure"`
	Elapsed         time.Duration `json:"elapsed_ns"`
}

// Deviations counts findings that fail verification.
func (r *Report) Deviations() int {
	return len(r.Modified) + len(r.Missing) + len(r.Unauthorized)
}

// Annotations carries the operator-supplied path sets consulted during
// classification.
type Annotations struct {
	Whitelist map[string]struct{}
	Critical  map[string]struct{}
}

// Run classifies every path from the baseline and the current scan.
// Precedence per path: present in both with equal digest is Passed, present
// in both with differing digest is Modified, baseline-only is Missing,
// scan-only is Unauthorized unless whitelisted, in which case the path is
// omitted from the report entirely.
func Run(current map[string]baseline.FileRecord, base *baseline.Baseline, ann Annotations) Report {
	started := time.Now()
	report := Report{}

	basePaths := sortedKeys(base.Files)
	for _, path := range basePaths {
		baseRec := base.Files[path]
		curRec, ok := current[path]
		switch {
		case !ok:
			report.Missing = append(report.Missing, finding(path, "present in baseline, absent from scan", ann))
		case curRec.Digest == baseRec.Digest:
			report.Passed = append(report.Passed, finding(path, "", ann))
		default:
			report.Modified = append(report.Modified, finding(path, "digest mismatch", ann))
		}
	}

	for _, path := range sortedKeys(current) {
		if _, ok := base.Files[path]; ok {
			continue
		}
		if _, ok := ann.Whitelist[path]; ok {
			// Whitelisted and unbaselined: expected, not reported.
			continue
		}
		report.Unauthorized = append(report.Unauthorized, finding(path, "not in baseline", ann))
	}

	report.Pass = report.Deviations() == 0
	for _, group := range [][]Finding{report.Modified, report.Missing, report.Unauthorized} {
		for _, f := range group {
			if f.Critical {
				report.CriticalFailure = true
			}
		}
	}
	report.Elapsed = time.Since(started)
	return report
}

func finding(path, detail string, ann Annotations) Finding {
	_, critical := ann.Critical[path]
	return Finding{Path: path, Detail: detail, Critical: critical}
}

func sortedKeys(m map[string]baseline.FileRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PathSet builds an annotation lookup set from a list of normalized paths.
func PathSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

// Package baseline defines the persisted trusted state of a scanned tree
// and its on-disk manifest form.
package baseline

import (
	"io/fs"
	"time"

	"vigil/internal/scan"
)

// SchemaVersion is the current manifest schema. Manifests written before
// versioning carry no schema_version field and load as version 0.
const SchemaVersion = 1

// FileRecord is the fingerprint of one regular file at baseline time.
// Records are unique per normalized relative path.
type FileRecord struct {
	Path    string      `json:"path"`
	Digest  string      `json:"digest"`
	Size    int64       `json:"size"`
	ModTime time.Time   `json:"mod_time"`
	Mode    fs.FileMode `json:"mode"`
}

// ScanStatistics summarizes a scan. Derived data: it must always be
// recomputable from the record map plus the skip log, so older manifests
// that lack it can be backfilled on load.
type ScanStatistics struct {
	Visited  int           `json:"visited"`
	Included int           `json:"included"`
	Excluded int           `json:"excluded"`
	Skipped  int           `json:"skipped"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// Baseline is a complete trusted snapshot. Regeneration fully supersedes a
// prior baseline; there are no merge semantics.
type Baseline struct {
	SchemaVersion   int                   `json:"schema_version"`
	GeneratedAt     time.Time             `json:"generated_at"`
	Root            string                `json:"root"`
	ExcludePatterns []string              `json:"exclude_patterns,omitempty"`
	Files           map[string]FileRecord `json:"files"`
	SkipEvents      []scan.SkipEvent      `json:"skip_events,omitempty"`
	Statistics      *ScanStatistics       `json:"statistics,omitempty"`
}

// RecomputeStatistics derives statistics from the record map and skip log.
// Excluded counts are not recoverable from a manifest, so backfilled
// statistics report zero exclusions and a visited floor; elapsed time is
// unknown and stays zero.
func (b *Baseline) RecomputeStatistics() ScanStatistics {
	included := len(b.Files)
	skipped := len(b.SkipEvents)
	return ScanStatistics{
		Visited:  included + skipped,
		Included: included,
		Skipped:  skipped,
	}
}

// Record looks up a file record by normalized relative path.
func (b *Baseline) Record(path string) (FileRecord, bool) {
	rec, ok := b.Files[path]
	return rec, ok
}

package annotations

import "time"

// Kind distinguishes the two operator annotation classes.
type Kind string

const (
	// KindWhitelist exempts an unbaselined path from the unauthorized
	// classification.
	KindWhitelist Kind = "whitelist"
	// KindCritical elevates any deviation on a path to blocking severity.
	KindCritical Kind = "critical"
)

// Entry is one persisted annotation.
type Entry struct {
	Path      string
	Kind      Kind
	Note      string
	CreatedAt time.Time
}

// RunKind names the operation a history row belongs to.
type RunKind string

const (
	RunGenerate RunKind = "generate"
	RunVerify   RunKind = "verify"
)

// Run is one row of scan history.
type Run struct {
	ID         int64
	SessionID  string
	Kind       RunKind
	State      string
	Root       string
	Visited    int
	Included   int
	Excluded   int
	Skipped    int
	Deviations int
	Critical   bool
	Elapsed    time.Duration
	StartedAt  time.Time
}

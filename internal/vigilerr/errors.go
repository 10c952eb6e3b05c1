package vigilerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrReadFailure marks per-file faults: locked, vanished mid-read, or
	// permission denied. These are counted as skips and never abort a scan.
	ErrReadFailure = errors.New("read failure")
	// ErrTimeout marks a scan that hit its deadline before completing.
	ErrTimeout = errors.New("timeout")
	// ErrCorruptManifest marks a manifest that cannot be parsed at all.
	ErrCorruptManifest = errors.New("corrupt manifest")
	// ErrConcurrentAccess marks lock contention on the manifest.
	ErrConcurrentAccess = errors.New("concurrent access")
	// ErrScanFailed marks structural scan faults such as an unreachable root.
	ErrScanFailed = errors.New("scan failed")
	// ErrValidation marks rejected caller input (bad pattern, bad path).
	ErrValidation = errors.New("validation error")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrScanFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "integrity failure"
	}
	return strings.Join(parts, ": ")
}

// Exit codes returned to the shell. The dispatcher distinguishes drift from
// structural faults so callers can block deploys on drift alone.
const (
	ExitOK         = 0
	ExitStructural = 1
	ExitDrift      = 2
	ExitTimedOut   = 3
)

// ExitCode maps a supervisor error to the process exit code contract.
// A nil error maps to ExitOK; drift is signalled separately by the report.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrTimeout):
		return ExitTimedOut
	default:
		return ExitStructural
	}
}

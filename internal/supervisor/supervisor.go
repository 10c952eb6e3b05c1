// Package supervisor orchestrates generate and verify runs: it drives the
// scan→hash pipeline under a cancellable deadline, guaranteeing the caller
// never blocks past the deadline and that a manifest is only ever written
// whole.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vigil/internal/annotations"
	"vigil/internal/baseline"
	"vigil/internal/fingerprint"
	"vigil/internal/rules"
	"vigil/internal/scan"
	"vigil/internal/verify"
	"vigil/internal/vigilerr"
)

// State is the supervisor's position in its run lifecycle. Terminal states
// persist until the next run begins.
type State string

const (
	StateIdle      State = "idle"
	StateScanning  State = "scanning"
	StateCompleted State = "completed"
	StateTimedOut  State = "timed_out"
	StateFailed    State = "failed"
)

// Options configures one generate or verify run.
type Options struct {
	Root         string
	ManifestPath string
	Rules        *rules.RuleSet
	Limits       scan.Limits
	// Timeout bounds the run's wall-clock time. Zero means no deadline.
	Timeout time.Duration
	// Annotations are consulted during verification only.
	Annotations verify.Annotations
}

// Result is the outcome of one run. On timeout it carries the partial
// statistics gathered before the deadline.
type Result struct {
	SessionID  string
	State      State
	Statistics baseline.ScanStatistics
	Baseline   *baseline.Baseline
	Report     *verify.Report
}

// Supervisor runs at most one scan at a time and records run history.
type Supervisor struct {
	logger  *slog.Logger
	history *annotations.Store

	mu    sync.Mutex
	state State
}

// New constructs a supervisor. The history store is optional; when present
// every run is appended to the scan history.
func New(logger *slog.Logger, history *annotations.Store) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{logger: logger, history: history, state: StateIdle}
}

// State reports the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateScanning {
		return vigilerr.Wrap(vigilerr.ErrConcurrentAccess, "supervisor", "a scan is already in progress", nil)
	}
	s.state = StateScanning
	return nil
}

func (s *Supervisor) finish(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Generate scans the tree and atomically persists a fresh baseline,
// superseding any prior one at the manifest path. The manifest lock is held
// for the whole run so concurrent generates fail fast instead of racing.
func (s *Supervisor) Generate(ctx context.Context, opts Options) (*Result, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	sessionID := uuid.NewString()
	started := time.Now()
	logger := s.logger.With(slog.String("session", sessionID), slog.String("root", opts.Root))
	logger.Info("generate started", slog.Duration("timeout", opts.Timeout))

	store := baseline.NewStore(opts.ManifestPath)
	if err := store.LockExclusive(); err != nil {
		s.finish(StateFailed)
		return nil, err
	}
	defer store.Unlock()

	files, stats, runErr := s.runPipeline(ctx, opts, started)
	result := &Result{SessionID: sessionID, Statistics: stats.ScanStatistics}

	if runErr != nil {
		result.State = classifyFailure(runErr)
		s.finish(result.State)
		s.record(annotations.RunGenerate, sessionID, opts.Root, result, started)
		logger.Warn("generate aborted", slog.String("state", string(result.State)), slog.Any("error", runErr))
		return result, runErr
	}

	b := &baseline.Baseline{
		SchemaVersion:   baseline.SchemaVersion,
		GeneratedAt:     time.Now().UTC(),
		Root:            opts.Root,
		ExcludePatterns: opts.Rules.Excludes(),
		Files:           files,
		SkipEvents:      stats.skipEvents,
		Statistics:      &stats.ScanStatistics,
	}
	if err := store.Save(ctx, b); err != nil {
		result.State = StateFailed
		s.finish(StateFailed)
		s.record(annotations.RunGenerate, sessionID, opts.Root, result, started)
		return result, err
	}

	result.State = StateCompleted
	result.Baseline = b
	s.finish(StateCompleted)
	s.record(annotations.RunGenerate, sessionID, opts.Root, result, started)
	logger.Info("generate completed",
		slog.Int("files", len(files)),
		slog.Duration("elapsed", stats.Elapsed))
	return result, nil
}

// Verify re-scans the tree and diffs it against the stored baseline. The
// shared manifest lock is held for the whole run so verification never
// observes a manifest mid-replacement; other verifies proceed concurrently.
func (s *Supervisor) Verify(ctx context.Context, opts Options) (*Result, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	sessionID := uuid.NewString()
	started := time.Now()
	logger := s.logger.With(slog.String("session", sessionID), slog.String("root", opts.Root))
	logger.Info("verify started", slog.Duration("timeout", opts.Timeout))

	store := baseline.NewStore(opts.ManifestPath)
	if err := store.LockShared(); err != nil {
		s.finish(StateFailed)
		return nil, err
	}
	defer store.Unlock()

	base, err := store.Load()
	if err != nil {
		s.finish(StateFailed)
		result := &Result{SessionID: sessionID, State: StateFailed}
		s.record(annotations.RunVerify, sessionID, opts.Root, result, started)
		return result, err
	}

	files, stats, runErr := s.runPipeline(ctx, opts, started)
	result := &Result{SessionID: sessionID, Statistics: stats.ScanStatistics}

	if runErr != nil {
		result.State = classifyFailure(runErr)
		s.finish(result.State)
		s.record(annotations.RunVerify, sessionID, opts.Root, result, started)
		logger.Warn("verify aborted", slog.String("state", string(result.State)), slog.Any("error", runErr))
		return result, runErr
	}

	report := verify.Run(files, base, opts.Annotations)
	result.State = StateCompleted
	result.Report = &report
	s.finish(StateCompleted)
	s.record(annotations.RunVerify, sessionID, opts.Root, result, started)
	logger.Info("verify completed",
		slog.Bool("pass", report.Pass),
		slog.Int("passed", len(report.Passed)),
		slog.Int("modified", len(report.Modified)),
		slog.Int("missing", len(report.Missing)),
		slog.Int("unauthorized", len(report.Unauthorized)))
	return result, nil
}

// runStats couples the public statistics with the skip log backing them.
type runStats struct {
	baseline.ScanStatistics
	skipEvents []scan.SkipEvent
}

// runPipeline walks the tree and hashes candidates concurrently, racing the
// pipeline against the deadline. On timeout the call returns immediately
// with whatever statistics accumulated; the abandoned worker owns its file
// handles through scoped closes and unwinds at its next checkpoint.
func (s *Supervisor) runPipeline(ctx context.Context, opts Options, started time.Time) (map[string]baseline.FileRecord, runStats, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	candidates, progress, err := scan.Walk(ctx, opts.Root, opts.Rules, opts.Limits)
	if err != nil {
		return nil, runStats{}, err
	}

	done := make(chan map[string]baseline.FileRecord, 1)
	go func() {
		files := make(map[string]baseline.FileRecord)
		for cand := range candidates {
			// Cancellation checkpoint between file operations.
			if ctx.Err() != nil {
				break
			}
			digest, err := fingerprint.File(cand.AbsPath)
			if err != nil {
				progress.RecordSkip(scan.SkipEvent{
					Path:   cand.RelPath,
					Reason: scan.SkipUnreadable,
					Detail: err.Error(),
				})
				continue
			}
			files[cand.RelPath] = baseline.FileRecord{
				Path:    cand.RelPath,
				Digest:  digest,
				Size:    cand.Size,
				ModTime: cand.ModTime,
				Mode:    cand.Mode,
			}
		}
		done <- files
	}()

	select {
	case files := <-done:
		if err := ctx.Err(); err != nil {
			return nil, statsFrom(progress, started), timeoutOrCancel(err)
		}
		return files, statsFrom(progress, started), nil
	case <-ctx.Done():
		// Return control immediately; the worker drains on its own.
		return nil, statsFrom(progress, started), timeoutOrCancel(ctx.Err())
	}
}

func statsFrom(progress *scan.Progress, started time.Time) runStats {
	counters := progress.Snapshot()
	return runStats{
		ScanStatistics: baseline.ScanStatistics{
			Visited:  counters.Visited,
			Included: counters.Included,
			Excluded: counters.Excluded,
			Skipped:  len(counters.Skips),
			Elapsed:  time.Since(started),
		},
		skipEvents: counters.Skips,
	}
}

func timeoutOrCancel(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return vigilerr.Wrap(vigilerr.ErrTimeout, "scan", "deadline elapsed before completion", err)
	}
	return err
}

func classifyFailure(err error) State {
	switch {
	case err == nil:
		return StateCompleted
	case errors.Is(err, vigilerr.ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
		return StateTimedOut
	default:
		return StateFailed
	}
}

func (s *Supervisor) record(kind annotations.RunKind, sessionID, root string, result *Result, started time.Time) {
	if s.history == nil {
		return
	}
	run := annotations.Run{
		SessionID: sessionID,
		Kind:      kind,
		State:     string(result.State),
		Root:      root,
		Visited:   result.Statistics.Visited,
		Included:  result.Statistics.Included,
		Excluded:  result.Statistics.Excluded,
		Skipped:   result.Statistics.Skipped,
		Elapsed:   result.Statistics.Elapsed,
		StartedAt: started.UTC(),
	}
	if result.Report != nil {
		run.Deviations = result.Report.Deviations()
		run.Critical = result.Report.CriticalFailure
	}
	recordCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.history.RecordRun(recordCtx, run); err != nil {
		s.logger.Warn("failed to record scan history", slog.Any("error", err))
	}
}

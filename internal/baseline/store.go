package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"vigil/internal/vigilerr"
)

// ErrNoBaseline indicates the manifest file does not exist yet.
var ErrNoBaseline = errors.New("no baseline manifest")

// Store persists baselines to a manifest file. The manifest is the one
// shared mutable resource in the system, so the store guards it with an
// advisory flock: exclusive for writers, shared for readers, always
// fail-fast rather than queueing.
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore creates a store for the given manifest path.
func NewStore(manifestPath string) *Store {
	return &Store{
		path: manifestPath,
		lock: flock.New(manifestPath + ".lock"),
	}
}

// Path returns the manifest path.
func (s *Store) Path() string {
	return s.path
}

// LockExclusive takes the writer lock for the duration of a generate, so
// the scan and the final save sit in one critical section. Contention
// fails fast with ErrConcurrentAccess.
func (s *Store) LockExclusive() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure manifest directory: %w", err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire manifest lock: %w", err)
	}
	if !ok {
		return vigilerr.Wrap(vigilerr.ErrConcurrentAccess, "generate", "another generate is in progress for this manifest", nil)
	}
	return nil
}

// LockShared takes the reader lock so verifies may run concurrently with
// each other but not with an in-progress generate.
func (s *Store) LockShared() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure manifest directory: %w", err)
	}
	ok, err := s.lock.TryRLock()
	if err != nil {
		return fmt.Errorf("acquire manifest read lock: %w", err)
	}
	if !ok {
		return vigilerr.Wrap(vigilerr.ErrConcurrentAccess, "verify", "a generate holds the manifest lock", nil)
	}
	return nil
}

// Unlock releases whichever lock is held.
func (s *Store) Unlock() {
	_ = s.lock.Unlock()
}

// Save writes the manifest atomically: marshal to a temporary file in the
// manifest's directory, fsync, then rename over the target, so a crash or
// timeout never leaves a half-written manifest. Callers that have not
// already taken the exclusive lock get one for the write.
func (s *Store) Save(ctx context.Context, b *Baseline) error {
	if b == nil {
		return vigilerr.Wrap(vigilerr.ErrValidation, "save manifest", "baseline is nil", nil)
	}
	if !s.lock.Locked() {
		if err := s.LockExclusive(); err != nil {
			return err
		}
		defer s.Unlock()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// Best-effort cleanup when the rename never happened.
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename manifest into place: %w", err)
	}
	return nil
}

// Load reads and upgrades a manifest. Manifests from older schema versions
// are upgraded in memory: absent statistics are recomputed from the record
// map and skip log rather than rejected. ErrCorruptManifest is reserved for
// data that does not parse as a manifest at all.
func (s *Store) Load() (*Baseline, error) {
	if !s.lock.Locked() && !s.lock.RLocked() {
		if err := s.LockShared(); err != nil {
			return nil, err
		}
		defer s.Unlock()
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (run generate first)", ErrNoBaseline, s.path)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, vigilerr.Wrap(vigilerr.ErrCorruptManifest, "load manifest", s.path, err)
	}
	if b.Files == nil && b.Root == "" {
		return nil, vigilerr.Wrap(vigilerr.ErrCorruptManifest, "load manifest", s.path+" has no files map and no root", nil)
	}
	if b.SchemaVersion > SchemaVersion {
		return nil, vigilerr.Wrap(vigilerr.ErrCorruptManifest, "load manifest",
			fmt.Sprintf("manifest schema %d is newer than supported %d", b.SchemaVersion, SchemaVersion), nil)
	}
	if b.Files == nil {
		b.Files = map[string]FileRecord{}
	}
	upgrade(&b)
	return &b, nil
}

// upgrade backfills fields absent from older schemas. The backfill is pure:
// it only derives from data already in the manifest.
func upgrade(b *Baseline) {
	if b.Statistics == nil {
		stats := b.RecomputeStatistics()
		b.Statistics = &stats
	}
	b.SchemaVersion = SchemaVersion
}

// Package scan enumerates candidate files beneath a scan root. The walk is
// lexicographic for reproducibility, streams candidates so hashing can start
// before the walk completes, and treats unreadable entries as recorded
// skips rather than fatal errors.
package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"vigil/internal/pathnorm"
	"vigil/internal/rules"
	"vigil/internal/vigilerr"
)

// Candidate is one regular file eligible for fingerprinting.
type Candidate struct {
	RelPath string
	AbsPath string
	Size    int64
	ModTime time.Time
	Mode    fs.FileMode
}

// SkipReason classifies why an entry was left out of the candidate stream.
type SkipReason string

const (
	SkipUnreadable    SkipReason = "unreadable"
	SkipStatFailed    SkipReason = "stat-failed"
	SkipNotRegular    SkipReason = "not-regular"
	SkipDepthExceeded SkipReason = "depth-exceeded"
	SkipEntryLimit    SkipReason = "entry-limit"
	SkipOtherDevice   SkipReason = "other-device"
)

// SkipEvent records a non-fatal per-entry fault or limit hit.
type SkipEvent struct {
	Path   string     `json:"path"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// Limits guards against pathological trees and symlink cycles.
type Limits struct {
	// MaxEntries caps the number of filesystem entries visited.
	MaxEntries int
	// MaxDepth caps directory recursion depth below the root.
	MaxDepth int
	// OneFilesystem skips subtrees mounted from a different device.
	OneFilesystem bool
}

const (
	DefaultMaxEntries = 1_000_000
	DefaultMaxDepth   = 64
)

func (l Limits) withDefaults() Limits {
	if l.MaxEntries <= 0 {
		l.MaxEntries = DefaultMaxEntries
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	return l
}

// Walk starts enumerating root and returns a channel of candidates in
// lexicographic path order plus a Progress tracker that stays valid after
// cancellation. The channel is closed when the walk finishes, hits a limit,
// or observes ctx cancellation at one of its per-entry checkpoints. A fresh
// call re-walks from scratch.
func Walk(ctx context.Context, root string, rs *rules.RuleSet, limits Limits) (<-chan Candidate, *Progress, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, vigilerr.Wrap(vigilerr.ErrScanFailed, "scan root", root, err)
	}
	if !info.IsDir() {
		return nil, nil, vigilerr.Wrap(vigilerr.ErrScanFailed, "scan root", root+" is not a directory", nil)
	}

	limits = limits.withDefaults()
	progress := newProgress()

	var rootDev uint64
	if limits.OneFilesystem {
		var st unix.Stat_t
		if err := unix.Lstat(root, &st); err != nil {
			return nil, nil, vigilerr.Wrap(vigilerr.ErrScanFailed, "scan root", "stat device for "+root, err)
		}
		rootDev = uint64(st.Dev)
	}

	out := make(chan Candidate, 64)
	w := &walker{
		ctx:      ctx,
		root:     root,
		rules:    rs,
		limits:   limits,
		rootDev:  rootDev,
		progress: progress,
		out:      out,
	}
	go func() {
		defer close(out)
		w.walkDir(root, ".", 0)
	}()
	return out, progress, nil
}

type walker struct {
	ctx      context.Context
	root     string
	rules    *rules.RuleSet
	limits   Limits
	rootDev  uint64
	progress *Progress
	out      chan<- Candidate

	visited int
	stopped bool
}

// checkpoint is the cooperative cancellation point, consulted before every
// filesystem entry so a cancelled walk unwinds within one operation.
func (w *walker) checkpoint() bool {
	if w.stopped {
		return false
	}
	select {
	case <-w.ctx.Done():
		w.stopped = true
		return false
	default:
		return true
	}
}

func (w *walker) walkDir(abs, rel string, depth int) {
	if !w.checkpoint() {
		return
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		w.progress.skip(SkipEvent{Path: rel, Reason: SkipUnreadable, Detail: err.Error()})
		return
	}
	// os.ReadDir sorts by name, which keeps full relative paths
	// lexicographic within each directory level.
	for _, entry := range entries {
		if !w.checkpoint() {
			return
		}
		entryRel := entry.Name()
		if rel != "." {
			entryRel = rel + "/" + entry.Name()
		}
		normRel, err := pathnorm.Normalize(entryRel)
		if err != nil {
			w.progress.skip(SkipEvent{Path: entryRel, Reason: SkipStatFailed, Detail: err.Error()})
			continue
		}
		entryAbs := filepath.Join(abs, entry.Name())

		w.visited++
		w.progress.visit()
		if w.visited > w.limits.MaxEntries {
			w.progress.skip(SkipEvent{Path: normRel, Reason: SkipEntryLimit})
			w.stopped = true
			return
		}

		if entry.IsDir() {
			if w.rules.PrunableDir(normRel) {
				w.progress.exclude()
				continue
			}
			if depth+1 > w.limits.MaxDepth {
				w.progress.skip(SkipEvent{Path: normRel, Reason: SkipDepthExceeded})
				continue
			}
			if w.limits.OneFilesystem && !w.sameDevice(entryAbs, normRel) {
				continue
			}
			w.walkDir(entryAbs, normRel, depth+1)
			if w.stopped {
				return
			}
			continue
		}

		if !w.rules.Included(normRel) {
			w.progress.exclude()
			continue
		}

		info, err := entry.Info()
		if err != nil {
			w.progress.skip(SkipEvent{Path: normRel, Reason: SkipStatFailed, Detail: err.Error()})
			continue
		}
		if !info.Mode().IsRegular() {
			// Symlinks, sockets, and devices are never hashed.
			w.progress.skip(SkipEvent{Path: normRel, Reason: SkipNotRegular, Detail: info.Mode().Type().String()})
			continue
		}

		candidate := Candidate{
			RelPath: normRel,
			AbsPath: entryAbs,
			Size:    info.Size(),
			ModTime: info.ModTime().UTC(),
			Mode:    info.Mode(),
		}
		select {
		case w.out <- candidate:
			w.progress.include()
		case <-w.ctx.Done():
			w.stopped = true
			return
		}
	}
}

func (w *walker) sameDevice(abs, rel string) bool {
	var st unix.Stat_t
	if err := unix.Lstat(abs, &st); err != nil {
		w.progress.skip(SkipEvent{Path: rel, Reason: SkipStatFailed, Detail: err.Error()})
		return false
	}
	if uint64(st.Dev) != w.rootDev {
		w.progress.skip(SkipEvent{Path: rel, Reason: SkipOtherDevice})
		return false
	}
	return true
}

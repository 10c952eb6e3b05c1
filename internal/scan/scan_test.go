package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"vigil/internal/rules"
	"vigil/internal/testsupport"
	"vigil/internal/vigilerr"
)

func collect(t *testing.T, ch <-chan Candidate) []Candidate {
	t.Helper()
	var out []Candidate
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestWalkLexicographicOrder(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{
		"b/two.txt":   "2",
		"a/one.txt":   "1",
		"a/three.txt": "3",
		"zzz.txt":     "z",
	})

	ch, _, err := Walk(context.Background(), root, nil, Limits{})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	got := collect(t, ch)

	paths := make([]string, len(got))
	for i, c := range got {
		paths[i] = c.RelPath
	}
	if !sort.StringsAreSorted(paths) {
		t.Fatalf("candidates not in lexicographic order: %v", paths)
	}
	want := []string{"a/one.txt", "a/three.txt", "b/two.txt", "zzz.txt"}
	if len(paths) != len(want) {
		t.Fatalf("got %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("got %v, want %v", paths, want)
		}
	}
}

func TestWalkAppliesRules(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{
		"src/main.go":   "package main",
		"logs/app.log":  "noise",
		"logs/keep.log": "keep",
	})
	rs, err := rules.New([]string{"logs/keep.log"}, []string{"logs/*"})
	if err != nil {
		t.Fatalf("rules.New: %v", err)
	}

	ch, progress, err := Walk(context.Background(), root, rs, Limits{})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	got := collect(t, ch)

	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	counters := progress.Snapshot()
	if counters.Excluded != 1 {
		t.Fatalf("expected 1 excluded entry, got %d", counters.Excluded)
	}
}

func TestWalkPrunesExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{
		"keep.txt":             "k",
		"vendor/a/deep/f.go":   "f",
		"vendor/b/deeper/g.go": "g",
	})
	rs, err := rules.New(nil, []string{"vendor"})
	if err != nil {
		t.Fatalf("rules.New: %v", err)
	}

	ch, progress, err := Walk(context.Background(), root, rs, Limits{})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	got := collect(t, ch)
	if len(got) != 1 || got[0].RelPath != "keep.txt" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	// The pruned subtree's contents are never visited.
	if counters := progress.Snapshot(); counters.Visited != 2 {
		t.Fatalf("expected 2 visited entries (keep.txt + vendor), got %d", counters.Visited)
	}
}

func TestWalkSkipsNonRegularFiles(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "real.txt"), "data")
	if err := os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	ch, progress, err := Walk(context.Background(), root, nil, Limits{})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	got := collect(t, ch)
	if len(got) != 1 || got[0].RelPath != "real.txt" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	counters := progress.Snapshot()
	if len(counters.Skips) != 1 || counters.Skips[0].Reason != SkipNotRegular {
		t.Fatalf("expected one not-regular skip, got %+v", counters.Skips)
	}
}

func TestWalkEntryLimit(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		testsupport.WriteFile(t, filepath.Join(root, "f"+string(rune('a'+i))+".txt"), "x")
	}

	ch, progress, err := Walk(context.Background(), root, nil, Limits{MaxEntries: 5})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	got := collect(t, ch)
	if len(got) != 5 {
		t.Fatalf("expected 5 candidates under the entry limit, got %d", len(got))
	}
	counters := progress.Snapshot()
	if len(counters.Skips) == 0 || counters.Skips[len(counters.Skips)-1].Reason != SkipEntryLimit {
		t.Fatalf("expected an entry-limit skip, got %+v", counters.Skips)
	}
}

func TestWalkDepthLimit(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{
		"top.txt":          "t",
		"d1/mid.txt":       "m",
		"d1/d2/bottom.txt": "b",
	})

	ch, progress, err := Walk(context.Background(), root, nil, Limits{MaxDepth: 1})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	got := collect(t, ch)
	for _, c := range got {
		if c.RelPath == "d1/d2/bottom.txt" {
			t.Fatal("depth limit did not stop recursion")
		}
	}
	counters := progress.Snapshot()
	found := false
	for _, s := range counters.Skips {
		if s.Reason == SkipDepthExceeded && s.Path == "d1/d2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected depth-exceeded skip for d1/d2, got %+v", counters.Skips)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	_, _, err := Walk(context.Background(), filepath.Join(t.TempDir(), "absent"), nil, Limits{})
	if !errors.Is(err, vigilerr.ErrScanFailed) {
		t.Fatalf("expected ErrScanFailed, got %v", err)
	}
}

func TestWalkCancellation(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 200; i++ {
		testsupport.FillFile(t, filepath.Join(root, "dir", "file"+string(rune('a'+i%26))+string(rune('a'+i/26))+".bin"), 64)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, _, err := Walk(ctx, root, nil, Limits{})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	// Consume one candidate, then cancel without draining.
	<-ch
	cancel()

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("walker did not stop after cancellation")
	}
}

func TestWalkRestartable(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{"a.txt": "1", "b.txt": "2"})

	for i := 0; i < 2; i++ {
		ch, _, err := Walk(context.Background(), root, nil, Limits{})
		if err != nil {
			t.Fatalf("Walk #%d: %v", i, err)
		}
		if got := collect(t, ch); len(got) != 2 {
			t.Fatalf("Walk #%d: expected 2 candidates, got %d", i, len(got))
		}
	}
}

package scan

import "sync"

// Progress accumulates walk counters and skip events. The walker goroutine
// writes while the supervisor may snapshot concurrently, including after a
// timeout, so access is mutex-guarded.
type Progress struct {
	mu       sync.Mutex
	visited  int
	included int
	excluded int
	skips    []SkipEvent
}

func newProgress() *Progress {
	return &Progress{}
}

func (p *Progress) visit() {
	p.mu.Lock()
	p.visited++
	p.mu.Unlock()
}

func (p *Progress) include() {
	p.mu.Lock()
	p.included++
	p.mu.Unlock()
}

func (p *Progress) exclude() {
	p.mu.Lock()
	p.excluded++
	p.mu.Unlock()
}

func (p *Progress) skip(event SkipEvent) {
	p.mu.Lock()
	p.skips = append(p.skips, event)
	p.mu.Unlock()
}

// RecordSkip lets the hashing consumer report per-file read failures into
// the same skip log the walker uses.
func (p *Progress) RecordSkip(event SkipEvent) {
	p.skip(event)
}

// Snapshot returns a consistent copy of the counters and skip events.
func (p *Progress) Snapshot() Counters {
	p.mu.Lock()
	defer p.mu.Unlock()
	skips := make([]SkipEvent, len(p.skips))
	copy(skips, p.skips)
	return Counters{
		Visited:  p.visited,
		Included: p.included,
		Excluded: p.excluded,
		Skips:    skips,
	}
}

// Counters is a point-in-time view of walk progress.
type Counters struct {
	Visited  int
	Included int
	Excluded int
	Skips    []SkipEvent
}

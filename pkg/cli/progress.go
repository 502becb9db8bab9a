package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Progress reports completion of a batch of runs. It is safe for
// concurrent use.
type Progress struct {
	mu      sync.Mutex
	w       io.Writer
	total   int
	done    int
	failed  int
	started time.Time
	now     func() time.Time
}

// NewProgress creates a reporter for total runs. A nil writer disables
// rendering but still counts.
func NewProgress(w io.Writer, total int) *Progress {
	p := &Progress{w: w, total: total, now: time.Now}
	p.started = p.now()
	return p
}

// Done records one finished run.
func (p *Progress) Done(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if failed {
		p.failed++
	}
	p.render()
}

// Counts returns finished and failed runs so far.
func (p *Progress) Counts() (done, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.failed
}

// Finish terminates the progress line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.w != nil && p.total > 0 {
		fmt.Fprintln(p.w)
	}
}

func (p *Progress) render() {
	if p.w == nil || p.total == 0 {
		return
	}
	const width = 30
	filled := width * p.done / p.total
	bar := strings.Repeat("#", filled) + strings.Repeat(".", width-filled)

	rate := 0.0
	if elapsed := p.now().Sub(p.started).Seconds(); elapsed > 0 {
		rate = float64(p.done) / elapsed
	}
	fmt.Fprintf(p.w, "\r[%s] %d/%d runs, %d failed, %.1f runs/s", bar, p.done, p.total, p.failed, rate)
}

package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ProgressReporter follows a paged read: the record total is known up
// front and records arrive one page at a time.
type ProgressReporter interface {
	Start(total int64, pageSize int)
	Page(records int)
	Finish()
}

// PageProgress keeps a single status line per operation, rewritten in place
// after every page:
//
//	exporting audit records: page 2/3, 2000/2005 records (99.8%)
type PageProgress struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	total   int64
	done    int64
	page    int
	pages   int
	started time.Time
}

// NewPageProgress creates a reporter writing to w, or os.Stderr when w is
// nil, so progress never mixes with data on stdout.
func NewPageProgress(w io.Writer, label string) *PageProgress {
	if w == nil {
		w = os.Stderr
	}
	return &PageProgress{w: w, label: label}
}

// Start resets the reporter. A total of zero keeps it silent.
func (p *PageProgress) Start(total int64, pageSize int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total, p.done, p.page = total, 0, 0
	p.pages = 0
	if total > 0 {
		p.pages = 1
		if pageSize > 0 {
			p.pages = int((total + int64(pageSize) - 1) / int64(pageSize))
		}
	}
	p.started = time.Now()
}

// Page records one fetched page. Counts never exceed the announced total;
// rows written after Count ran are not reported.
func (p *PageProgress) Page(records int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total <= 0 {
		return
	}
	p.page = min(p.page+1, p.pages)
	p.done = min(p.done+int64(records), p.total)

	fmt.Fprintf(p.w, "\r%s: page %d/%d, %d/%d records (%.1f%%)",
		p.label, p.page, p.pages, p.done, p.total, float64(p.done)/float64(p.total)*100)
}

// Finish ends the status line with the elapsed time.
func (p *PageProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total <= 0 {
		return
	}
	fmt.Fprintf(p.w, " in %s\n", time.Since(p.started).Round(time.Millisecond))
}

// NopProgress discards progress updates.
type NopProgress struct{}

func (NopProgress) Start(int64, int) {}
func (NopProgress) Page(int)         {}
func (NopProgress) Finish()          {}

package performance

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// UnknownTemplate is the key that samples for template IDs outside the
// catalog are recorded under.
const UnknownTemplate = "_unknown"

// Record is an immutable per-template performance snapshot.
type Record struct {
	TemplateID  string        `json:"template_id"`
	Total       int64         `json:"total"`
	Successful  int64         `json:"successful"`
	Failed      int64         `json:"failed"`
	TotalTime   time.Duration `json:"total_time"`
	AverageTime time.Duration `json:"average_time"`
}

// counters are updated lock-free.
type counters struct {
	total      atomic.Int64
	successful atomic.Int64
	failed     atomic.Int64
	totalNanos atomic.Int64
}

// Aggregator keeps per-template counters. It is the only cross-session
// shared mutable state in the engine and is safe for concurrent use.
type Aggregator struct {
	templates sync.Map // map[string]*counters
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Record adds one generation sample for a template.
func (a *Aggregator) Record(templateID string, success bool, elapsed time.Duration) {
	v, ok := a.templates.Load(templateID)
	if !ok {
		v, _ = a.templates.LoadOrStore(templateID, &counters{})
	}
	c := v.(*counters)

	c.total.Add(1)
	if success {
		c.successful.Add(1)
	} else {
		c.failed.Add(1)
	}
	c.totalNanos.Add(int64(elapsed))
}

// Get returns the snapshot for one template.
func (a *Aggregator) Get(templateID string) (Record, bool) {
	v, ok := a.templates.Load(templateID)
	if !ok {
		return Record{}, false
	}
	return snapshot(templateID, v.(*counters)), true
}

// Snapshot returns a copy of every template's record, sorted by template ID.
func (a *Aggregator) Snapshot() []Record {
	var out []Record
	a.templates.Range(func(key, value any) bool {
		out = append(out, snapshot(key.(string), value.(*counters)))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].TemplateID < out[j].TemplateID })
	return out
}

// Reset clears all counters.
func (a *Aggregator) Reset() {
	a.templates.Range(func(key, _ any) bool {
		a.templates.Delete(key)
		return true
	})
}

// snapshot reads counters individually, so a snapshot taken during
// concurrent writes may be off by in-flight samples.
func snapshot(id string, c *counters) Record {
	r := Record{
		TemplateID: id,
		Total:      c.total.Load(),
		Successful: c.successful.Load(),
		Failed:     c.failed.Load(),
		TotalTime:  time.Duration(c.totalNanos.Load()),
	}
	if r.Total > 0 {
		r.AverageTime = r.TotalTime / time.Duration(r.Total)
	}
	return r
}

package metrics

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/concierge/pkg/config"
	"mercator-hq/concierge/pkg/synthesis"
)

// DefaultMaxCardinality bounds the number of distinct template/persona label
// pairs before new pairs are folded into "other".
const DefaultMaxCardinality = 1000

// Collector records Prometheus metrics for prompt generation. It is a
// synthesis.Observer, so attaching it to the engine is enough to populate
// the generation, guardrail, and escalation series.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	generation *GenerationMetrics
	catalog    *CatalogMetrics

	cardinalityLimiter *CardinalityLimiter
}

var _ synthesis.Observer = (*Collector)(nil)

// NewCollector creates a collector registering into registry. If registry is
// nil, a fresh registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		generation:         NewGenerationMetrics(cfg, registry),
		catalog:            NewCatalogMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(DefaultMaxCardinality),
	}
}

// ObserveGeneration implements synthesis.Observer.
func (c *Collector) ObserveGeneration(_ context.Context, res *synthesis.Result) {
	if !c.config.Enabled || res == nil {
		return
	}

	md := res.Metadata
	template, persona := md.TemplateID, md.PersonaID
	if !c.cardinalityLimiter.Allow(template + "\x00" + persona) {
		template, persona = "other", "other"
	}

	c.generation.RecordGeneration(template, persona, outcome(md), md.Elapsed)
	if md.FallbackUsed && md.Error != "" {
		c.generation.RecordFallback(string(md.Error))
	}
	if g := md.Guardrails; g != nil {
		c.generation.RecordGuardrails(g)
	}
	for _, reason := range md.Escalation.Reasons() {
		c.generation.RecordEscalation(string(reason))
	}
}

// RecordCatalogReload records a catalog reload attempt and, on success, the
// new catalog size.
func (c *Collector) RecordCatalogReload(success bool, templates, personas int) {
	if !c.config.Enabled {
		return
	}
	c.catalog.RecordReload(success, templates, personas)
}

// RegisterAuditStats exposes the audit recorder's written, dropped, and
// failed counts. stats is called on every scrape.
func (c *Collector) RegisterAuditStats(stats func() (written, dropped, failed int64)) {
	for _, s := range []struct {
		name string
		help string
		pick func(w, d, f int64) int64
	}{
		{"audit_records_written_total", "Audit records written to storage", func(w, _, _ int64) int64 { return w }},
		{"audit_records_dropped_total", "Audit records dropped because the buffer was full or closed", func(_, d, _ int64) int64 { return d }},
		{"audit_records_failed_total", "Audit records that failed to store", func(_, _, f int64) int64 { return f }},
	} {
		c.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: c.config.Namespace,
				Name:      s.name,
				Help:      s.help,
			},
			func() float64 {
				return float64(s.pick(stats()))
			},
		))
	}
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func outcome(md synthesis.Metadata) string {
	switch {
	case md.Suppressed:
		return "suppressed"
	case md.FallbackUsed:
		return "fallback"
	default:
		return "success"
	}
}

// CardinalityLimiter caps the number of distinct label sets.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter allowing up to maxCardinality
// label sets.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already known or fits under the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/concierge/pkg/config"
	"mercator-hq/concierge/pkg/synthesis/guardrails"
)

// GenerationMetrics tracks prompt generation.
//
// Metrics:
//   - generations_total{template,persona,outcome}
//   - generation_duration_seconds{template}
//   - fallbacks_total{error}
//   - guardrail_evaluations_total{risk_level}
//   - guardrail_violations_total{kind}
//   - escalations_total{reason}
type GenerationMetrics struct {
	generationsTotal     *prometheus.CounterVec
	generationDuration   *prometheus.HistogramVec
	fallbacksTotal       *prometheus.CounterVec
	guardrailEvaluations *prometheus.CounterVec
	guardrailViolations  *prometheus.CounterVec
	escalationsTotal     *prometheus.CounterVec
}

// NewGenerationMetrics creates and registers generation metrics.
func NewGenerationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *GenerationMetrics {
	gm := &GenerationMetrics{
		generationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "generations_total",
				Help:      "Total number of prompt generations by outcome",
			},
			[]string{"template", "persona", "outcome"},
		),
		generationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "generation_duration_seconds",
				Help:      "Duration of prompt generation in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"template"},
		),
		fallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "fallbacks_total",
				Help:      "Generations that returned the fallback prompt, by error kind",
			},
			[]string{"error"},
		),
		guardrailEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "guardrail_evaluations_total",
				Help:      "Guardrail evaluations by resulting risk level",
			},
			[]string{"risk_level"},
		),
		guardrailViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "guardrail_violations_total",
				Help:      "Guardrail violations by kind",
			},
			[]string{"kind"},
		),
		escalationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "escalations_total",
				Help:      "Escalation triggers fired, by reason",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		gm.generationsTotal,
		gm.generationDuration,
		gm.fallbacksTotal,
		gm.guardrailEvaluations,
		gm.guardrailViolations,
		gm.escalationsTotal,
	)
	return gm
}

// RecordGeneration records one generation.
func (gm *GenerationMetrics) RecordGeneration(template, persona, outcome string, elapsed time.Duration) {
	gm.generationsTotal.WithLabelValues(template, persona, outcome).Inc()
	gm.generationDuration.WithLabelValues(template).Observe(elapsed.Seconds())
}

// RecordFallback records a fallback by error kind.
func (gm *GenerationMetrics) RecordFallback(kind string) {
	gm.fallbacksTotal.WithLabelValues(kind).Inc()
}

// RecordGuardrails records a guardrail verdict.
func (gm *GenerationMetrics) RecordGuardrails(r *guardrails.Result) {
	gm.guardrailEvaluations.WithLabelValues(r.RiskLevel.String()).Inc()
	for _, v := range r.Violations {
		gm.guardrailViolations.WithLabelValues(string(v)).Inc()
	}
}

// RecordEscalation records one fired escalation trigger.
func (gm *GenerationMetrics) RecordEscalation(reason string) {
	gm.escalationsTotal.WithLabelValues(reason).Inc()
}

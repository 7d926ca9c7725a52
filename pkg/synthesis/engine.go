package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/concierge/pkg/catalog"
	"mercator-hq/concierge/pkg/config"
	"mercator-hq/concierge/pkg/conversation"
	"mercator-hq/concierge/pkg/synthesis/escalation"
	"mercator-hq/concierge/pkg/synthesis/guardrails"
	"mercator-hq/concierge/pkg/synthesis/performance"
	"mercator-hq/concierge/pkg/synthesis/style"
	"mercator-hq/concierge/pkg/synthesis/variables"
)

// Options configures an Engine. Catalog is required; everything else has a
// usable zero value.
type Options struct {
	// Catalog supplies the template and persona registries.
	Catalog *catalog.Catalog

	// Engine holds escalation thresholds and orchestrator behavior.
	// Nil means config.DefaultConfig().Engine.
	Engine *config.EngineConfig

	// Guardrails holds content-safety and tier rules.
	// Nil means config.DefaultGuardrails().
	Guardrails *config.GuardrailsConfig

	// Ledger records sticky escalation. Nil disables stickiness.
	Ledger escalation.Ledger

	// Performance receives one sample per generation. Pass the same
	// aggregator across catalog reloads to keep counters.
	Performance *performance.Aggregator

	// Observers are notified after every generation.
	Observers []Observer

	Tracer trace.Tracer
	Logger *slog.Logger
}

// Engine produces persona-styled, guardrail-checked prompts from templates.
// It holds no per-session state and is safe for concurrent use.
type Engine struct {
	catalog    *catalog.Catalog
	cfg        config.EngineConfig
	guardrails *guardrails.Evaluator
	escalation *escalation.Engine
	ledger     escalation.Ledger
	perf       *performance.Aggregator
	observers  []Observer
	tracer     trace.Tracer
	logger     *slog.Logger
}

// New builds an engine. Rule patterns are compiled once here.
func New(opts Options) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, errors.New("synthesis: catalog is required")
	}

	cfg := config.DefaultConfig().Engine
	if opts.Engine != nil {
		cfg = *opts.Engine
	}
	if cfg.FallbackPrompt == "" {
		cfg.FallbackPrompt = config.DefaultFallbackPrompt
	}

	gcfg := config.DefaultGuardrails()
	if opts.Guardrails != nil {
		gcfg = *opts.Guardrails
	}
	evaluator, err := guardrails.NewEvaluator(&gcfg)
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}

	esc, err := escalation.NewEngine(&cfg)
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}

	e := &Engine{
		catalog:    opts.Catalog,
		cfg:        cfg,
		guardrails: evaluator,
		escalation: esc,
		ledger:     opts.Ledger,
		perf:       opts.Performance,
		observers:  append([]Observer(nil), opts.Observers...),
		tracer:     opts.Tracer,
		logger:     opts.Logger,
	}
	if e.perf == nil {
		e.perf = performance.NewAggregator()
	}
	if e.tracer == nil {
		e.tracer = noop.NewTracerProvider().Tracer("concierge/synthesis")
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "synthesis")

	return e, nil
}

// Catalog returns the catalog the engine was built from.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// FallbackPrompt returns the prompt used when generation fails.
func (e *Engine) FallbackPrompt() string {
	return e.cfg.FallbackPrompt
}

// Generate renders a template for a persona and conversation. It never
// returns an error and never panics: on failure the fallback prompt is
// returned with FallbackUsed set and the cause in Metadata.Error and Err.
func (e *Engine) Generate(ctx context.Context, templateID, personaID string, conv *conversation.Context, vars map[string]any) (res *Result) {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "synthesis.Generate",
		trace.WithAttributes(
			attribute.String("template.id", templateID),
			attribute.String("persona.id", personaID),
		),
	)
	defer span.End()

	res = &Result{
		Metadata: Metadata{
			GenerationID:   uuid.NewString(),
			TemplateID:     templateID,
			PersonaID:      personaID,
			CatalogVersion: e.catalog.Version,
			Timestamp:      start.UTC(),
		},
	}
	if conv != nil {
		res.Metadata.SessionID = conv.SessionID
		res.Metadata.NextStep = conv.Step + 1
		res.Metadata.MessageCount = conv.MessageCount
	}

	defer func() {
		if r := recover(); r != nil {
			e.fail(res, &GenerationError{
				Kind:       KindInternal,
				TemplateID: templateID,
				PersonaID:  personaID,
				Err:        fmt.Errorf("%w: %v", ErrInternal, r),
			})
			if !res.Escalated() {
				e.escalateOnFallback(ctx, res, personaID, conv)
			}
		}
		res.Metadata.Elapsed = time.Since(start)
		e.perf.Record(e.performanceKey(templateID), res.Succeeded(), res.Metadata.Elapsed)

		span.SetAttributes(
			attribute.Bool("fallback", res.Metadata.FallbackUsed),
			attribute.Bool("escalated", res.Escalated()),
		)
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, string(res.Metadata.Error))
		}

		e.notify(ctx, res)
	}()

	if err := e.generate(ctx, res, templateID, personaID, conv, vars); err != nil {
		e.fail(res, err)
		e.escalateOnFallback(ctx, res, personaID, conv)
	}
	return res
}

// performanceKey folds template IDs missing from the catalog into one
// series so arbitrary request IDs cannot grow the aggregator.
func (e *Engine) performanceKey(templateID string) string {
	if !e.catalog.Templates.Has(templateID) {
		return performance.UnknownTemplate
	}
	return templateID
}

func (e *Engine) generate(ctx context.Context, res *Result, templateID, personaID string, conv *conversation.Context, vars map[string]any) error {
	tmpl, err := e.catalog.Templates.Get(templateID)
	if err != nil {
		return &GenerationError{Kind: KindTemplateNotFound, TemplateID: templateID, PersonaID: personaID, Err: err}
	}
	persona, err := e.catalog.Personas.Get(personaID)
	if err != nil {
		return &GenerationError{Kind: KindPersonaNotFound, TemplateID: templateID, PersonaID: personaID, Err: err}
	}
	if !tmpl.AllowsPersona(personaID) {
		return &GenerationError{Kind: KindPersonaIncompatible, TemplateID: templateID, PersonaID: personaID, Err: ErrPersonaIncompatible}
	}
	res.Metadata.TemplateKind = tmpl.Kind
	res.Metadata.Limitations = append([]string(nil), persona.Limitations...)

	// The persona's tier stands in for an unset agent tier.
	effective := conv.Clone()
	if effective == nil {
		effective = &conversation.Context{}
	}
	if effective.AgentTier <= 0 {
		effective.AgentTier = persona.KnowledgeTier
	}

	values, err := variables.Resolve(tmpl, effective, vars)
	if err != nil {
		return &GenerationError{Kind: KindMissingRequiredVariable, TemplateID: templateID, PersonaID: personaID, Err: err}
	}
	res.Metadata.Variables = values

	text := style.Apply(variables.Render(tmpl.Body, values), persona.Style)

	_, gspan := e.tracer.Start(ctx, "synthesis.guardrails")
	verdict := e.guardrails.Evaluate(text, tmpl.GuardrailLevel, effective)
	gspan.SetAttributes(
		attribute.Bool("passed", verdict.Passed),
		attribute.String("risk_level", verdict.RiskLevel.String()),
	)
	gspan.End()
	res.Metadata.Guardrails = verdict

	_, espan := e.tracer.Start(ctx, "synthesis.escalation")
	already := e.isEscalated(ctx, effective.SessionID)
	decision := e.escalation.Decide(escalation.Input{
		Context:          effective,
		Persona:          persona,
		Guardrails:       verdict,
		AlreadyEscalated: already,
	})
	if decision.RequiresEscalation && !already {
		e.markEscalated(ctx, effective.SessionID, decision.Reason)
	}
	espan.SetAttributes(attribute.Bool("requires_escalation", decision.RequiresEscalation))
	espan.End()
	res.Metadata.Escalation = decision

	res.Prompt = text
	if e.cfg.SuppressFlaggedPrompts && !verdict.Passed && verdict.RiskLevel >= guardrails.RiskHigh {
		res.Prompt = e.cfg.FallbackPrompt
		res.Metadata.Suppressed = true
		e.logger.Warn("prompt suppressed",
			"generation_id", res.Metadata.GenerationID,
			"template_id", templateID,
			"risk_level", verdict.RiskLevel.String(),
		)
	}

	e.logger.Debug("prompt generated",
		"generation_id", res.Metadata.GenerationID,
		"session_id", res.Metadata.SessionID,
		"template_id", templateID,
		"persona_id", personaID,
		"risk_level", verdict.RiskLevel.String(),
		"escalate", decision.RequiresEscalation,
	)
	return nil
}

// fail replaces the result's prompt with the fallback and records the cause.
func (e *Engine) fail(res *Result, err error) {
	res.Prompt = e.cfg.FallbackPrompt
	res.Metadata.FallbackUsed = true
	res.Metadata.Suppressed = false
	res.Metadata.Error = KindOf(err)
	res.Metadata.ErrorDetail = err.Error()
	res.Err = err

	e.logger.Warn("generation failed, using fallback prompt",
		"generation_id", res.Metadata.GenerationID,
		"session_id", res.Metadata.SessionID,
		"template_id", res.Metadata.TemplateID,
		"persona_id", res.Metadata.PersonaID,
		"error_kind", string(res.Metadata.Error),
		"error", err,
	)
}

// escalateOnFallback decides escalation from the conversation alone when no
// prompt could be rendered. A session already escalated stays escalated, and
// context triggers such as the message limit still fire.
func (e *Engine) escalateOnFallback(ctx context.Context, res *Result, personaID string, conv *conversation.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("fallback escalation check failed",
				"generation_id", res.Metadata.GenerationID,
				"session_id", res.Metadata.SessionID,
				"panic", r,
			)
		}
	}()

	// Unknown personas decide with the zero persona: no triggers, no tier.
	persona, _ := e.catalog.Personas.Get(personaID)
	already := e.isEscalated(ctx, res.Metadata.SessionID)
	decision := e.escalation.Decide(escalation.Input{
		Context:          conv,
		Persona:          persona,
		AlreadyEscalated: already,
	})
	if decision.RequiresEscalation && !already {
		e.markEscalated(ctx, res.Metadata.SessionID, decision.Reason)
	}
	res.Metadata.Escalation = decision
}

func (e *Engine) isEscalated(ctx context.Context, sessionID string) bool {
	if e.ledger == nil || sessionID == "" {
		return false
	}
	escalated, err := e.ledger.IsEscalated(ctx, sessionID)
	if err != nil {
		e.logger.Error("failed to read escalation ledger", "session_id", sessionID, "error", err)
		return false
	}
	return escalated
}

func (e *Engine) markEscalated(ctx context.Context, sessionID, reason string) {
	if e.ledger == nil || sessionID == "" {
		return
	}
	if err := e.ledger.MarkEscalated(ctx, sessionID, reason); err != nil {
		e.logger.Error("failed to record escalation", "session_id", sessionID, "error", err)
	}
}

// notify calls every observer. A panicking observer is logged and skipped.
func (e *Engine) notify(ctx context.Context, res *Result) {
	for _, o := range e.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("observer panicked", "generation_id", res.Metadata.GenerationID, "panic", r)
				}
			}()
			o.ObserveGeneration(ctx, res)
		}()
	}
}

// EvaluateGuardrails runs the guardrail evaluator on arbitrary text.
func (e *Engine) EvaluateGuardrails(ctx context.Context, text string, level guardrails.RiskLevel, conv *conversation.Context) *guardrails.Result {
	_, span := e.tracer.Start(ctx, "synthesis.EvaluateGuardrails")
	defer span.End()

	verdict := e.guardrails.Evaluate(text, level, conv)
	span.SetAttributes(
		attribute.Bool("passed", verdict.Passed),
		attribute.String("risk_level", verdict.RiskLevel.String()),
	)
	return verdict
}

// Performance returns a snapshot of per-template counters.
func (e *Engine) Performance() []performance.Record {
	return e.perf.Snapshot()
}

// Aggregator returns the engine's performance aggregator.
func (e *Engine) Aggregator() *performance.Aggregator {
	return e.perf
}

package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"mercator-hq/concierge/pkg/config"
	"mercator-hq/concierge/pkg/synthesis"
	"mercator-hq/concierge/pkg/synthesis/escalation"
	"mercator-hq/concierge/pkg/synthesis/guardrails"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// sliceStorage is a minimal Storage for recorder tests.
type sliceStorage struct {
	mu      sync.Mutex
	records []*Record
	delay   time.Duration
	err     error
}

func (s *sliceStorage) Store(ctx context.Context, r *Record) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *sliceStorage) Query(context.Context, *Query) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Record(nil), s.records...), nil
}

func (s *sliceStorage) Count(context.Context, *Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records)), nil
}

func (s *sliceStorage) Delete(context.Context, *Query) (int64, error) { return 0, nil }
func (s *sliceStorage) Close() error                                  { return nil }

func testConfig() config.AuditConfig {
	cfg := config.DefaultConfig().Audit
	cfg.Backend = "memory"
	cfg.MaxPromptExcerpt = 31
	return cfg
}

func sampleResult() *synthesis.Result {
	return &synthesis.Result{
		Prompt: "Please contact jane@example.com about the refund for order 42.",
		Metadata: synthesis.Metadata{
			GenerationID: "gen-1",
			SessionID:    "s-1",
			TemplateID:   "billing_inquiry",
			PersonaID:    "tier1_customer_service",
			Timestamp:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Elapsed:      150 * time.Microsecond,
			Guardrails: &guardrails.Result{
				Passed:     false,
				RiskLevel:  guardrails.RiskCritical,
				Violations: []guardrails.ViolationKind{guardrails.ViolationFinancialAdvice},
			},
			Escalation: escalation.Decision{
				RequiresEscalation: true,
				Triggers: []escalation.Trigger{
					{Reason: escalation.ReasonGuardrail},
					{Reason: escalation.ReasonMessageLimit},
				},
			},
		},
	}
}

func TestRecorder_NewRecord(t *testing.T) {
	r := NewRecorder(&sliceStorage{}, testConfig(), func(s string) string {
		return strings.ReplaceAll(s, "jane@example.com", "[EMAIL]")
	}, nil)
	defer r.Close()

	res := sampleResult()
	rec := r.NewRecord(res)

	if rec.ID == "" {
		t.Error("expected record ID")
	}
	if rec.PromptHash != HashString(res.Prompt) {
		t.Errorf("expected prompt hash of full prompt, got %q", rec.PromptHash)
	}
	if rec.PromptExcerpt != "Please contact [EMAIL]" {
		t.Errorf("expected truncated then redacted excerpt, got %q", rec.PromptExcerpt)
	}
	if rec.Passed || rec.RiskLevel != guardrails.RiskCritical {
		t.Errorf("expected failed critical verdict, got passed=%v risk=%s", rec.Passed, rec.RiskLevel)
	}
	if len(rec.Violations) != 1 || rec.Violations[0] != "financial_advice" {
		t.Errorf("expected [financial_advice], got %v", rec.Violations)
	}
	if !rec.Escalated || len(rec.EscalationReasons) != 2 {
		t.Errorf("expected escalated with 2 reasons, got %v %v", rec.Escalated, rec.EscalationReasons)
	}
}

func TestRecorder_FallbackRecord(t *testing.T) {
	r := NewRecorder(&sliceStorage{}, testConfig(), nil, nil)
	defer r.Close()

	rec := r.NewRecord(&synthesis.Result{
		Prompt: "fallback",
		Metadata: synthesis.Metadata{
			TemplateID:   "missing",
			FallbackUsed: true,
			Error:        synthesis.KindTemplateNotFound,
			ErrorDetail:  "template not found: missing",
		},
	})
	if !rec.Passed {
		t.Error("expected records without a guardrail verdict to count as passed")
	}
	if !rec.FallbackUsed || rec.Error != "TemplateNotFound" {
		t.Errorf("expected fallback TemplateNotFound, got %v %q", rec.FallbackUsed, rec.Error)
	}
}

func TestRecorder_DrainsOnClose(t *testing.T) {
	store := &sliceStorage{delay: time.Millisecond}
	r := NewRecorder(store, testConfig(), nil, nil)

	for i := 0; i < 50; i++ {
		r.ObserveGeneration(context.Background(), sampleResult())
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	n, _ := store.Count(context.Background(), &Query{})
	if n != 50 {
		t.Errorf("expected 50 records after drain, got %d", n)
	}
	written, dropped, failed := r.Stats()
	if written != 50 || dropped != 0 || failed != 0 {
		t.Errorf("expected 50/0/0, got %d/%d/%d", written, dropped, failed)
	}

	// Closing twice is safe.
	if err := r.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestRecorder_DropsAfterClose(t *testing.T) {
	store := &sliceStorage{}
	r := NewRecorder(store, testConfig(), nil, nil)
	r.Close()

	r.ObserveGeneration(context.Background(), sampleResult())

	_, dropped, _ := r.Stats()
	if dropped != 1 {
		t.Errorf("expected 1 dropped record, got %d", dropped)
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	store := &sliceStorage{delay: 20 * time.Millisecond}
	cfg := testConfig()
	cfg.AsyncBuffer = 1
	r := NewRecorder(store, cfg, nil, nil)

	for i := 0; i < 10; i++ {
		r.ObserveGeneration(context.Background(), sampleResult())
	}
	r.Close()

	written, dropped, _ := r.Stats()
	if dropped == 0 {
		t.Error("expected some records to be dropped with a full buffer")
	}
	if written+dropped != 10 {
		t.Errorf("expected written+dropped == 10, got %d+%d", written, dropped)
	}
}

func TestRecorder_CountsStorageFailures(t *testing.T) {
	store := &sliceStorage{err: errors.New("disk full")}
	r := NewRecorder(store, testConfig(), nil, nil)

	r.ObserveGeneration(context.Background(), sampleResult())
	r.Close()

	_, _, failed := r.Stats()
	if failed != 1 {
		t.Errorf("expected 1 failed write, got %d", failed)
	}
}

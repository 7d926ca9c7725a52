package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"mercator-hq/concierge/pkg/synthesis/guardrails"
)

func TestHashString(t *testing.T) {
	if HashString("") != "" {
		t.Error("expected empty hash for empty string")
	}
	h := HashString("hello")
	if len(h) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h))
	}
	if h != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Errorf("unexpected sha256 for hello: %s", h)
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello world", 5, "hello"},
		{"short", 10, "short"},
		{"héllo", 2, "hé"},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := Excerpt(tt.in, tt.max); got != tt.want {
			t.Errorf("Excerpt(%q, %d): expected %q, got %q", tt.in, tt.max, tt.want, got)
		}
	}
}

func TestQuery_Validate(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)
	badRisk := guardrails.RiskLevel(9)

	tests := []struct {
		name    string
		query   Query
		wantErr bool
	}{
		{"empty", Query{}, false},
		{"negative limit", Query{Limit: -1}, true},
		{"limit too large", Query{Limit: MaxLimit + 1}, true},
		{"negative offset", Query{Offset: -1}, true},
		{"bad sort order", Query{SortOrder: "sideways"}, true},
		{"inverted range", Query{StartTime: &now, EndTime: &earlier}, true},
		{"bad risk", Query{MinRiskLevel: &badRisk}, true},
		{"valid range", Query{StartTime: &earlier, EndTime: &now, SortOrder: "asc"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			var qe *QueryError
			if err != nil && !errors.As(err, &qe) {
				t.Errorf("expected *QueryError, got %T", err)
			}
		})
	}
}

func TestQuery_Matches(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &Record{
		SessionID:  "s-1",
		TemplateID: "t",
		PersonaID:  "p",
		Timestamp:  base,
		RiskLevel:  guardrails.RiskHigh,
		Escalated:  true,
	}
	yes, no := true, false
	high, critical := guardrails.RiskHigh, guardrails.RiskCritical
	after := base.Add(time.Second)

	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{"empty", Query{}, true},
		{"session", Query{SessionID: "s-1"}, true},
		{"other session", Query{SessionID: "s-2"}, false},
		{"start inclusive", Query{StartTime: &base}, true},
		{"end exclusive", Query{EndTime: &base}, false},
		{"before end", Query{EndTime: &after}, true},
		{"escalated", Query{Escalated: &yes}, true},
		{"not escalated", Query{Escalated: &no}, false},
		{"fallback false", Query{FallbackUsed: &no}, true},
		{"min risk high", Query{MinRiskLevel: &high}, true},
		{"min risk critical", Query{MinRiskLevel: &critical}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(rec); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	if got := RetentionCutoff(now, 0); !got.IsZero() {
		t.Errorf("expected zero cutoff for unlimited retention, got %v", got)
	}
	want := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	if got := RetentionCutoff(now, 30); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func exportRecords() []*Record {
	return []*Record{
		{ID: "a", TemplateID: "t1", Timestamp: time.Unix(0, 0).UTC(), Passed: true, Violations: []string{"x", "y"}},
		{ID: "b", TemplateID: "t2", Timestamp: time.Unix(1, 0).UTC(), RiskLevel: guardrails.RiskHigh, Escalated: true},
	}
}

func TestExport_JSON(t *testing.T) {
	exp, err := NewExporter("json")
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}
	var buf bytes.Buffer
	if err := exp.Export(context.Background(), exportRecords(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	if out[1]["risk_level"] != "high" {
		t.Errorf("expected risk_level as text, got %v", out[1]["risk_level"])
	}
}

func TestExport_JSONEmpty(t *testing.T) {
	exp, _ := NewExporter("json")
	var buf bytes.Buffer
	if err := exp.Export(context.Background(), nil, &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("expected empty array, got %q", buf.String())
	}
}

func TestExport_JSONLines(t *testing.T) {
	exp, _ := NewExporter("jsonl")
	var buf bytes.Buffer
	if err := exp.Export(context.Background(), exportRecords(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(lines))
	}
}

func TestExport_CSV(t *testing.T) {
	exp, _ := NewExporter("csv")
	var buf bytes.Buffer
	if err := exp.Export(context.Background(), exportRecords(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "id" {
		t.Errorf("expected header row, got %v", rows[0])
	}
	if rows[1][12] != "x;y" {
		t.Errorf("expected joined violations, got %q", rows[1][12])
	}
	if rows[2][11] != "high" {
		t.Errorf("expected risk level high, got %q", rows[2][11])
	}
}

func TestNewExporter_Unknown(t *testing.T) {
	if _, err := NewExporter("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

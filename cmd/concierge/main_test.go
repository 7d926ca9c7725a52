package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/concierge/pkg/audit"
	auditstorage "mercator-hq/concierge/pkg/audit/storage"
	"mercator-hq/concierge/pkg/catalog"
	"mercator-hq/concierge/pkg/cli"
	"mercator-hq/concierge/pkg/sessions"
	"mercator-hq/concierge/pkg/synthesis"
	"mercator-hq/concierge/pkg/synthesis/guardrails"
)

// writeConfig writes a config that keeps all state under a temp directory.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`
sessions:
  backend: sqlite
  sqlite:
    path: %q
audit:
  enabled: true
  backend: sqlite
  sqlite:
    path: %q
telemetry:
  logging:
    level: error
`, filepath.Join(dir, "sessions.db"), filepath.Join(dir, "audit.db"))

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"run", "generate", "guard", "catalog", "sessions", "audit", "version", "completion"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("expected command %q to be registered", name)
		}
	}
}

func TestGenerateUpdatesSessionsAndAudit(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := executeCommand(t, "generate", "--config", cfgPath,
		"-t", catalog.TemplateCustomerGreeting,
		"-p", catalog.PersonaTier1CustomerService,
		"--session", "s-1",
		"--var", "customer_name=Jane",
	)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	var res synthesis.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid generate output: %v\n%s", err, out)
	}
	if !strings.Contains(res.Prompt, "Greet Jane warmly") {
		t.Errorf("expected rendered greeting, got %q", res.Prompt)
	}
	if res.Metadata.SessionID != "s-1" {
		t.Errorf("expected session s-1, got %q", res.Metadata.SessionID)
	}

	out, err = executeCommand(t, "sessions", "show", "s-1", "--format", "json", "--config", cfgPath)
	if err != nil {
		t.Fatalf("sessions show failed: %v", err)
	}
	var sess sessions.Session
	if err := json.Unmarshal([]byte(out), &sess); err != nil {
		t.Fatalf("invalid sessions output: %v\n%s", err, out)
	}
	if sess.Generations != 1 || sess.LastTemplate != catalog.TemplateCustomerGreeting {
		t.Errorf("expected one customer_greeting generation, got %d %q", sess.Generations, sess.LastTemplate)
	}

	out, err = executeCommand(t, "audit", "query", "--session", "s-1", "--format", "json", "--config", cfgPath)
	if err != nil {
		t.Fatalf("audit query failed: %v", err)
	}
	var records []*audit.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("invalid audit output: %v\n%s", err, out)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(records))
	}
	if records[0].PromptHash != audit.HashString(res.Prompt) {
		t.Errorf("expected audit hash of the generated prompt")
	}

	out, err = executeCommand(t, "sessions", "clear", "s-1", "--reviewer", "alice", "--config", cfgPath)
	if err != nil {
		t.Fatalf("sessions clear failed: %v", err)
	}
	if !strings.Contains(out, "alice") {
		t.Errorf("expected confirmation naming the reviewer, got %q", out)
	}
}

func TestGuard_FailOnViolation(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := executeCommand(t, "guard", "--config", cfgPath, "--fail-on-violation",
		"you should buy this stock today")
	if !errors.Is(err, errGuardrailsFailed) {
		t.Fatalf("expected guardrails failure, got %v", err)
	}
	if cli.ExitCode(err) != cli.ExitFailure {
		t.Errorf("expected exit code %d, got %d", cli.ExitFailure, cli.ExitCode(err))
	}

	var res guardrails.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid guard output: %v\n%s", err, out)
	}
	if res.Passed || res.RiskLevel != guardrails.RiskCritical {
		t.Errorf("expected failed critical verdict, got passed=%v risk=%s", res.Passed, res.RiskLevel)
	}
}

func TestCatalogValidate(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := executeCommand(t, "catalog", "validate", "--config", cfgPath)
	if err != nil {
		t.Fatalf("catalog validate failed: %v", err)
	}
	if !strings.Contains(out, "builtin") {
		t.Errorf("expected built-in catalog to be validated, got %q", out)
	}

	bad := filepath.Join(t.TempDir(), "catalog.yaml")
	os.WriteFile(bad, []byte("templates: [\n"), 0o644)
	if _, err := executeCommand(t, "catalog", "validate", bad); err == nil {
		t.Error("expected error for malformed catalog")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "Concierge "+Version) {
		t.Errorf("expected version banner, got %q", out)
	}
}

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"valid", "2026-10-01T00:00:00Z/2026-10-02T00:00:00Z", false},
		{"missing end", "2026-10-01T00:00:00Z", true},
		{"bad start", "yesterday/2026-10-02T00:00:00Z", true},
		{"bad end", "2026-10-01T00:00:00Z/tomorrow", true},
		{"inverted", "2026-10-02T00:00:00Z/2026-10-01T00:00:00Z", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseTimeRange(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if err == nil && end.Sub(start) != 24*time.Hour {
				t.Errorf("expected a one-day range, got %v", end.Sub(start))
			}
		})
	}
}

func TestReadConversation(t *testing.T) {
	conv, err := readConversation("", nil)
	if err != nil || conv != nil {
		t.Errorf("expected nil context for empty path, got %v %v", conv, err)
	}

	conv, err = readConversation("-", strings.NewReader(`{"session_id":"s-2","topic":"billing","message_count":3}`))
	if err != nil {
		t.Fatalf("readConversation failed: %v", err)
	}
	if conv.SessionID != "s-2" || conv.Topic != "billing" || conv.MessageCount != 3 {
		t.Errorf("unexpected context %+v", conv)
	}

	if _, err := readConversation("-", strings.NewReader(`{"sesion_id":"typo"}`)); err == nil {
		t.Error("expected error for unknown field")
	}
	if _, err := readConversation(filepath.Join(t.TempDir(), "missing.json"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStringVars(t *testing.T) {
	if stringVars(nil) != nil {
		t.Error("expected nil for no variables")
	}
	got := stringVars(map[string]string{"customer_name": "Jane"})
	if got["customer_name"] != "Jane" {
		t.Errorf("expected customer_name=Jane, got %v", got)
	}
}

type countingProgress struct {
	total    int64
	pageSize int
	pages    []int
	finished bool
}

func (p *countingProgress) Start(total int64, pageSize int) { p.total, p.pageSize = total, pageSize }
func (p *countingProgress) Page(records int)               { p.pages = append(p.pages, records) }
func (p *countingProgress) Finish()                        { p.finished = true }

func TestExportRecords_Pages(t *testing.T) {
	ctx := context.Background()
	storage := auditstorage.NewMemoryStorage()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	const n = exportBatchSize*2 + 5
	for i := 0; i < n; i++ {
		storage.Store(ctx, &audit.Record{
			ID:        fmt.Sprintf("rec-%04d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}

	exporter, _ := audit.NewExporter("jsonl")
	var buf bytes.Buffer
	progress := &countingProgress{}
	count, err := exportRecords(ctx, storage, &audit.Query{SortOrder: "asc"}, exporter, &buf, progress)
	if err != nil {
		t.Fatalf("exportRecords failed: %v", err)
	}
	if count != n {
		t.Errorf("expected %d records, got %d", n, count)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != n {
		t.Errorf("expected %d lines, got %d", n, lines)
	}
	if progress.total != n || progress.pageSize != exportBatchSize || !progress.finished {
		t.Errorf("unexpected progress %+v", progress)
	}
	if diff := cmp.Diff([]int{exportBatchSize, exportBatchSize, 5}, progress.pages); diff != "" {
		t.Errorf("page sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestTables(t *testing.T) {
	f := catalog.Builtin().Export()

	templates := templateTable(f.Templates)
	if len(templates.Rows()) != len(f.Templates) {
		t.Errorf("expected one row per template")
	}
	for _, row := range templates.Rows() {
		if len(row) != len(templates.Header()) {
			t.Fatalf("expected %d columns, got %d", len(templates.Header()), len(row))
		}
		if row[0] == catalog.TemplateCustomerGreeting && row[3] != "customer_name*" {
			t.Errorf("expected required variable marker, got %q", row[3])
		}
	}

	personas := personaTable(f.Personas)
	if len(personas.Rows()) != len(f.Personas) {
		t.Errorf("expected one row per persona")
	}

	records := recordTable{{
		SessionID:         "s-1",
		RiskLevel:         guardrails.RiskHigh,
		EscalationReasons: []string{"guardrail", "message_limit"},
	}}
	row := records.Rows()[0]
	if row[4] != "high" || row[6] != "guardrail;message_limit" {
		t.Errorf("unexpected record row %v", row)
	}
}

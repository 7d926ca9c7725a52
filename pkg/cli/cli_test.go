package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type sampleTable struct{}

func (sampleTable) Header() []string { return []string{"id", "count"} }
func (sampleTable) Rows() [][]string {
	return [][]string{{"alpha", "1"}, {"beta, gamma", "22"}}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format  OutputFormat
		want    string
		wantErr bool
	}{
		{"", "*cli.TextFormatter", false},
		{FormatText, "*cli.TextFormatter", false},
		{FormatJSON, "*cli.JSONFormatter", false},
		{FormatCSV, "*cli.CSVFormatter", false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f, err := NewFormatter(tt.format)
			if tt.wantErr {
				if ExitCode(err) != ExitConfig {
					t.Errorf("expected config error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := fmt.Sprintf("%T", f); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestTextFormatter_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextFormatter{}).FormatTo(&buf, sampleTable{}); err != nil {
		t.Fatalf("FormatTo failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "id") || !strings.Contains(lines[0], "count") {
		t.Errorf("expected header line, got %q", lines[0])
	}
	// Columns are aligned on the widest cell.
	if strings.Index(lines[1], "1") != strings.Index(lines[2], "22") {
		t.Errorf("expected aligned columns, got %q and %q", lines[1], lines[2])
	}
}

func TestTextFormatter_Value(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextFormatter{}).FormatTo(&buf, "hello"); err != nil {
		t.Fatalf("FormatTo failed: %v", err)
	}
	if buf.String() != "hello\n" {
		t.Errorf("expected %q, got %q", "hello\n", buf.String())
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &JSONFormatter{Indent: true}
	if err := f.FormatTo(&buf, map[string]int{"a": 1}); err != nil {
		t.Fatalf("FormatTo failed: %v", err)
	}
	var out map[string]int
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out["a"] != 1 {
		t.Errorf("expected a=1, got %v", out)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("expected indented output")
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&CSVFormatter{}).FormatTo(&buf, sampleTable{}); err != nil {
		t.Fatalf("FormatTo failed: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[2][0] != "beta, gamma" {
		t.Errorf("expected quoted cell to round trip, got %q", rows[2][0])
	}

	if err := (&CSVFormatter{}).FormatTo(&buf, 42); err == nil {
		t.Error("expected error for non-table value")
	}
}

func TestErrors(t *testing.T) {
	cfgErr := NewConfigError("format", "bad value %q", "x")
	if cfgErr.Error() != `config error in format: bad value "x"` {
		t.Errorf("unexpected message %q", cfgErr.Error())
	}
	if NewConfigError("", "missing").Error() != "config error: missing" {
		t.Errorf("unexpected message without field")
	}

	base := errors.New("disk full")
	cmdErr := NewCommandError("audit", base)
	if !errors.Is(cmdErr, base) {
		t.Error("expected CommandError to unwrap to cause")
	}
	if cmdErr.Error() != "audit: disk full" {
		t.Errorf("unexpected message %q", cmdErr.Error())
	}
	if NewCommandError("audit", nil) != nil {
		t.Error("expected nil for nil cause")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", NewConfigError("x", "bad"), ExitConfig},
		{"wrapped config", fmt.Errorf("load: %w", NewConfigError("x", "bad")), ExitConfig},
		{"command", NewCommandError("run", errors.New("boom")), ExitFailure},
		{"plain", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestPageProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewPageProgress(&buf, "exporting")

	p.Start(2005, 1000)
	p.Page(1000)
	if !strings.Contains(buf.String(), "\rexporting: page 1/3, 1000/2005 records (49.9%)") {
		t.Errorf("expected first page status, got %q", buf.String())
	}
	p.Page(1000)
	p.Page(1000)
	if !strings.HasSuffix(buf.String(), "page 3/3, 2005/2005 records (100.0%)") {
		t.Errorf("expected counts clamped to total, got %q", buf.String())
	}
	p.Page(10)
	if !strings.HasSuffix(buf.String(), "page 3/3, 2005/2005 records (100.0%)") {
		t.Errorf("expected page clamped to page count, got %q", buf.String())
	}
	p.Finish()
	if !strings.Contains(buf.String(), " in ") || !strings.HasSuffix(buf.String(), "\n") {
		t.Errorf("expected Finish to end the line with elapsed time, got %q", buf.String())
	}
}

func TestPageProgress_Silent(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		pageSize int
		want     string
	}{
		{"zero total", 0, 100, ""},
		{"no page size", 5, 0, "\rx: page 1/1, 5/5 records (100.0%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := NewPageProgress(&buf, "x")
			p.Start(tt.total, tt.pageSize)
			p.Page(5)
			if buf.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, buf.String())
			}
		})
	}
}

func TestSignalContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := SignalContext(parent)
	defer stop()

	select {
	case <-ctx.Done():
		t.Fatal("expected context to be active")
	default:
	}

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("expected context to follow parent cancellation")
	}
}

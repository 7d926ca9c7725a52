package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Exporter writes records in a specific format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}

// NewExporter returns the exporter for a format name: "json", "jsonl", or
// "csv".
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json":
		return &JSONExporter{Pretty: true}, nil
	case "jsonl":
		return &JSONExporter{Lines: true}, nil
	case "csv":
		return &CSVExporter{IncludeHeader: true}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// JSONExporter writes a JSON array, or one object per line when Lines is
// set.
type JSONExporter struct {
	Pretty bool
	Lines  bool
}

// Export implements Exporter.
func (e *JSONExporter) Export(ctx context.Context, records []*Record, w io.Writer) error {
	format := "json"
	if e.Lines {
		format = "jsonl"
		enc := json.NewEncoder(w)
		for _, r := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := enc.Encode(r); err != nil {
				return &ExportError{Format: format, RecordCount: len(records), Cause: err}
			}
		}
		return nil
	}

	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if records == nil {
		records = []*Record{}
	}
	if err := enc.Encode(records); err != nil {
		return &ExportError{Format: format, RecordCount: len(records), Cause: err}
	}
	return nil
}

// CSVExporter writes one row per record. List fields are joined with ";".
type CSVExporter struct {
	IncludeHeader bool
}

var csvHeader = []string{
	"id", "generation_id", "session_id", "template_id", "persona_id", "catalog_version",
	"timestamp", "elapsed_us", "prompt_hash", "prompt_excerpt",
	"passed", "risk_level", "violations", "escalated", "escalation_reasons",
	"fallback_used", "suppressed", "error",
}

// Export implements Exporter.
func (e *CSVExporter) Export(ctx context.Context, records []*Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return &ExportError{Format: "csv", RecordCount: len(records), Cause: err}
		}
	}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writer.Write(recordToRow(r)); err != nil {
			return &ExportError{Format: "csv", RecordCount: len(records), Cause: err}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return &ExportError{Format: "csv", RecordCount: len(records), Cause: err}
	}
	return nil
}

func recordToRow(r *Record) []string {
	return []string{
		r.ID,
		r.GenerationID,
		r.SessionID,
		r.TemplateID,
		r.PersonaID,
		r.CatalogVersion,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		strconv.FormatInt(r.Elapsed.Microseconds(), 10),
		r.PromptHash,
		r.PromptExcerpt,
		strconv.FormatBool(r.Passed),
		r.RiskLevel.String(),
		strings.Join(r.Violations, ";"),
		strconv.FormatBool(r.Escalated),
		strings.Join(r.EscalationReasons, ";"),
		strconv.FormatBool(r.FallbackUsed),
		strconv.FormatBool(r.Suppressed),
		r.Error,
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/concierge/pkg/audit"
	auditstorage "mercator-hq/concierge/pkg/audit/storage"
	"mercator-hq/concierge/pkg/cli"
	"mercator-hq/concierge/pkg/synthesis/guardrails"
)

// exportBatchSize is the page size used when exporting.
const exportBatchSize = 1000

var auditFlags struct {
	timeRange string
	session   string
	template  string
	persona   string
	escalated bool
	fallback  bool
	minRisk   string
	limit     int
	offset    int
	sort      string
	format    string
	exportAs  string
	output    string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the generation audit trail",
	Long: `Query, export, and prune generation audit records.

Each record holds a SHA-256 hash of the prompt and a bounded, redacted
excerpt, together with the guardrail verdict, escalation reasons, and any
fallback error.

Time Range Format:
  RFC3339 interval "start/end"; start is inclusive and end exclusive.
  Example: "2026-10-01T00:00:00Z/2026-10-02T00:00:00Z"

Examples:
  # Escalated generations for one session
  concierge audit query --session s-123 --escalated

  # High-risk generations yesterday as CSV
  concierge audit query --min-risk high --time-range "2026-10-17T00:00:00Z/2026-10-18T00:00:00Z" --format csv

  # Export everything to a file
  concierge audit export --format jsonl --output audit.jsonl`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit records",
	Args:  cobra.NoArgs,
	RunE:  runAuditQuery,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every matching audit record",
	Args:  cobra.NoArgs,
	RunE:  runAuditExport,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete audit records older than audit.retention_days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPruneJob(cmd, "audit")
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd, auditExportCmd, auditPruneCmd)

	for _, c := range []*cobra.Command{auditQueryCmd, auditExportCmd} {
		c.Flags().StringVar(&auditFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
		c.Flags().StringVar(&auditFlags.session, "session", "", "filter by session ID")
		c.Flags().StringVar(&auditFlags.template, "template", "", "filter by template ID")
		c.Flags().StringVar(&auditFlags.persona, "persona", "", "filter by persona ID")
		c.Flags().BoolVar(&auditFlags.escalated, "escalated", false, "filter by escalation (--escalated=false for non-escalated)")
		c.Flags().BoolVar(&auditFlags.fallback, "fallback", false, "filter by fallback use (--fallback=false for templated prompts)")
		c.Flags().StringVar(&auditFlags.minRisk, "min-risk", "", "minimum risk level (low, medium, high, critical)")
		c.Flags().StringVar(&auditFlags.sort, "sort", "desc", "sort order by timestamp: asc, desc")
	}
	auditQueryCmd.Flags().IntVar(&auditFlags.limit, "limit", audit.DefaultLimit, "max results")
	auditQueryCmd.Flags().IntVar(&auditFlags.offset, "offset", 0, "pagination offset")
	auditQueryCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json, csv")

	auditExportCmd.Flags().StringVar(&auditFlags.exportAs, "format", "jsonl", "export format: json, jsonl, csv")
	auditExportCmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")
}

// buildAuditQuery converts the filter flags into a query. Boolean filters
// apply only when the flag was given.
func buildAuditQuery(cmd *cobra.Command) (*audit.Query, error) {
	q := &audit.Query{
		SessionID:  auditFlags.session,
		TemplateID: auditFlags.template,
		PersonaID:  auditFlags.persona,
		SortOrder:  auditFlags.sort,
	}

	if auditFlags.timeRange != "" {
		start, end, err := parseTimeRange(auditFlags.timeRange)
		if err != nil {
			return nil, cli.NewConfigError("time-range", "%v", err)
		}
		q.StartTime, q.EndTime = &start, &end
	}
	if cmd.Flags().Changed("escalated") {
		v := auditFlags.escalated
		q.Escalated = &v
	}
	if cmd.Flags().Changed("fallback") {
		v := auditFlags.fallback
		q.FallbackUsed = &v
	}
	if auditFlags.minRisk != "" {
		level, err := guardrails.ParseRiskLevel(auditFlags.minRisk)
		if err != nil {
			return nil, cli.NewConfigError("min-risk", "%v", err)
		}
		q.MinRiskLevel = &level
	}
	return q, nil
}

// parseTimeRange parses an RFC3339 "start/end" interval.
func parseTimeRange(s string) (start, end time.Time, err error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return start, end, fmt.Errorf("invalid time range format (expected: start/end)")
	}
	if start, err = time.Parse(time.RFC3339, parts[0]); err != nil {
		return start, end, fmt.Errorf("invalid start time: %w", err)
	}
	if end, err = time.Parse(time.RFC3339, parts[1]); err != nil {
		return start, end, fmt.Errorf("invalid end time: %w", err)
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("end time %s is before start time %s", parts[1], parts[0])
	}
	return start, end, nil
}

func openAuditStorage() (audit.Storage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	storage, err := auditstorage.Open(cfg.Audit, nil)
	if err != nil {
		return nil, cli.NewCommandError("audit", err)
	}
	return storage, nil
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(auditFlags.format))
	if err != nil {
		return err
	}
	q, err := buildAuditQuery(cmd)
	if err != nil {
		return err
	}
	q.Limit = auditFlags.limit
	q.Offset = auditFlags.offset

	storage, err := openAuditStorage()
	if err != nil {
		return err
	}
	defer storage.Close()

	records, err := storage.Query(cmd.Context(), q)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}

	if auditFlags.format == string(cli.FormatJSON) {
		if records == nil {
			records = []*audit.Record{}
		}
		return formatter.FormatTo(cmd.OutOrStdout(), records)
	}
	return formatter.FormatTo(cmd.OutOrStdout(), recordTable(records))
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	exporter, err := audit.NewExporter(auditFlags.exportAs)
	if err != nil {
		return cli.NewConfigError("format", "%v", err)
	}
	q, err := buildAuditQuery(cmd)
	if err != nil {
		return err
	}

	storage, err := openAuditStorage()
	if err != nil {
		return err
	}
	defer storage.Close()

	var w io.Writer = cmd.OutOrStdout()
	var progress cli.ProgressReporter = cli.NopProgress{}
	if auditFlags.output != "" {
		f, err := os.Create(auditFlags.output)
		if err != nil {
			return cli.NewCommandError("audit export", err)
		}
		defer f.Close()
		w = f
		progress = cli.NewPageProgress(cmd.ErrOrStderr(), "exporting audit records")
	}

	n, err := exportRecords(cmd.Context(), storage, q, exporter, w, progress)
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}
	if auditFlags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d records to %s\n", n, auditFlags.output)
	}
	return nil
}

// exportRecords loads every record matching q in pages and writes them with
// exporter in a single call, so JSON output remains one array.
func exportRecords(ctx context.Context, storage audit.Storage, q *audit.Query, exporter audit.Exporter, w io.Writer, progress cli.ProgressReporter) (int, error) {
	total, err := storage.Count(ctx, q)
	if err != nil {
		return 0, err
	}
	progress.Start(total, exportBatchSize)

	var all []*audit.Record
	page := *q
	page.Limit = exportBatchSize
	for page.Offset = 0; int64(page.Offset) < total; page.Offset += exportBatchSize {
		batch, err := storage.Query(ctx, &page)
		if err != nil {
			return 0, err
		}
		all = append(all, batch...)
		progress.Page(len(batch))
		if len(batch) < exportBatchSize {
			break
		}
	}
	progress.Finish()

	if err := exporter.Export(ctx, all, w); err != nil {
		return 0, err
	}
	return len(all), nil
}

type recordTable []*audit.Record

func (t recordTable) Header() []string {
	return []string{"TIMESTAMP", "SESSION", "TEMPLATE", "PERSONA", "RISK", "PASSED", "ESCALATION", "FALLBACK", "ERROR"}
}

func (t recordTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			r.SessionID,
			r.TemplateID,
			r.PersonaID,
			r.RiskLevel.String(),
			strconv.FormatBool(r.Passed),
			strings.Join(r.EscalationReasons, ";"),
			strconv.FormatBool(r.FallbackUsed),
			r.Error,
		})
	}
	return rows
}

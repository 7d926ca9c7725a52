package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/concierge/pkg/audit"
	"mercator-hq/concierge/pkg/config"
	"mercator-hq/concierge/pkg/synthesis/guardrails"
)

const columns = `id, generation_id, session_id, template_id, persona_id, catalog_version,
	timestamp, recorded_at, elapsed_ns, prompt_hash, prompt_excerpt,
	passed, risk_level, violations, escalated, escalation_reasons,
	fallback_used, suppressed, error, error_detail`

// SQLiteStorage stores audit records in SQLite via github.com/mattn/go-sqlite3.
type SQLiteStorage struct {
	db     *sql.DB
	config config.SQLiteConfig
	insert *sql.Stmt
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, enables WAL if configured, and
// creates the schema.
func NewSQLiteStorage(cfg config.SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if cfg.Path == "" {
		return nil, audit.NewStorageError("sqlite", "open", errors.New("path cannot be empty"))
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = config.DefaultSQLiteMaxOpenConns
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = config.DefaultSQLiteBusyTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "audit.storage.sqlite")

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns / 2)

	s := &SQLiteStorage{db: db, config: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit storage initialized",
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return audit.NewStorageError("sqlite", "set_busy_timeout", err)
	}
	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	stmt, err := s.db.Prepare(`INSERT INTO audit_records (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return audit.NewStorageError("sqlite", "prepare_insert", err)
	}
	s.insert = stmt
	return nil
}

// Store persists a record.
func (s *SQLiteStorage) Store(ctx context.Context, r *audit.Record) error {
	violations, _ := json.Marshal(r.Violations)
	reasons, _ := json.Marshal(r.EscalationReasons)

	_, err := s.insert.ExecContext(ctx,
		r.ID, r.GenerationID, r.SessionID, r.TemplateID, r.PersonaID, r.CatalogVersion,
		r.Timestamp.UnixNano(), r.RecordedAt.UnixNano(), int64(r.Elapsed), r.PromptHash, r.PromptExcerpt,
		r.Passed, int(r.RiskLevel), string(violations), r.Escalated, string(reasons),
		r.FallbackUsed, r.Suppressed, nullString(r.Error), nullString(r.ErrorDetail),
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query returns matching records ordered by timestamp.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	q := *query
	if err := q.Validate(); err != nil {
		return nil, err
	}
	q.ApplyDefaults()

	where, args := buildWhereClause(&q)
	sqlQuery := "SELECT " + columns + " FROM audit_records"
	if where != "" {
		sqlQuery += " WHERE " + where
	}
	order := "DESC"
	if q.SortOrder == "asc" {
		order = "ASC"
	}
	sqlQuery += fmt.Sprintf(" ORDER BY timestamp %s, id %s LIMIT %d", order, order, q.Limit)
	if q.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count returns the number of matching records.
func (s *SQLiteStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := buildWhereClause(query)
	sqlQuery := "SELECT COUNT(*) FROM audit_records"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes matching records.
func (s *SQLiteStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := buildWhereClause(query)
	sqlQuery := "DELETE FROM audit_records"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	return n, nil
}

// Close releases the database.
func (s *SQLiteStorage) Close() error {
	if s.insert != nil {
		s.insert.Close()
	}
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite audit storage closed")
	return nil
}

// buildWhereClause returns the WHERE clause without the keyword, and its
// arguments.
func buildWhereClause(q *audit.Query) (string, []any) {
	var conditions []string
	var args []any

	if q.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, q.StartTime.UnixNano())
	}
	if q.EndTime != nil {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, q.EndTime.UnixNano())
	}
	if q.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, q.SessionID)
	}
	if q.TemplateID != "" {
		conditions = append(conditions, "template_id = ?")
		args = append(args, q.TemplateID)
	}
	if q.PersonaID != "" {
		conditions = append(conditions, "persona_id = ?")
		args = append(args, q.PersonaID)
	}
	if q.Escalated != nil {
		conditions = append(conditions, "escalated = ?")
		args = append(args, *q.Escalated)
	}
	if q.FallbackUsed != nil {
		conditions = append(conditions, "fallback_used = ?")
		args = append(args, *q.FallbackUsed)
	}
	if q.MinRiskLevel != nil {
		conditions = append(conditions, "risk_level >= ?")
		args = append(args, int(*q.MinRiskLevel))
	}

	return strings.Join(conditions, " AND "), args
}

func scanRecord(rows *sql.Rows) (*audit.Record, error) {
	var (
		r                       audit.Record
		ts, recordedAt, elapsed int64
		risk                    int
		violations, reasons     sql.NullString
		errVal, errDetail       sql.NullString
	)
	err := rows.Scan(
		&r.ID, &r.GenerationID, &r.SessionID, &r.TemplateID, &r.PersonaID, &r.CatalogVersion,
		&ts, &recordedAt, &elapsed, &r.PromptHash, &r.PromptExcerpt,
		&r.Passed, &risk, &violations, &r.Escalated, &reasons,
		&r.FallbackUsed, &r.Suppressed, &errVal, &errDetail,
	)
	if err != nil {
		return nil, err
	}

	r.Timestamp = time.Unix(0, ts).UTC()
	r.RecordedAt = time.Unix(0, recordedAt).UTC()
	r.Elapsed = time.Duration(elapsed)
	r.RiskLevel = guardrails.RiskLevel(risk)
	r.Error = errVal.String
	r.ErrorDetail = errDetail.String

	if violations.Valid && violations.String != "" {
		if err := json.Unmarshal([]byte(violations.String), &r.Violations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal violations: %w", err)
		}
	}
	if reasons.Valid && reasons.String != "" {
		if err := json.Unmarshal([]byte(reasons.String), &r.EscalationReasons); err != nil {
			return nil, fmt.Errorf("failed to unmarshal escalation reasons: %w", err)
		}
	}
	return &r, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

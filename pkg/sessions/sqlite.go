package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"mercator-hq/concierge/pkg/config"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore persists sessions in a SQLite database so sticky escalation
// survives restarts. Writes are serialized; reads run concurrently.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	mu        sync.RWMutex
	closeOnce sync.Once

	getStmt      *sql.Stmt
	escalateStmt *sql.Stmt
	clearStmt    *sql.Stmt
	touchStmt    *sql.Stmt
	listStmt     *sql.Stmt
	cleanupStmt  *sql.Stmt
}

// NewSQLiteStore opens (creating if needed) a session database.
func NewSQLiteStore(cfg config.SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = config.DefaultSQLiteBusyTimeout
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = config.DefaultSQLiteMaxOpenConns
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	if cfg.WALMode {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, path: cfg.Path}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		escalated INTEGER NOT NULL DEFAULT 0,
		escalation_reason TEXT NOT NULL DEFAULT '',
		escalated_at INTEGER NOT NULL DEFAULT 0,
		cleared_by TEXT NOT NULL DEFAULT '',
		cleared_at INTEGER NOT NULL DEFAULT 0,
		next_step INTEGER NOT NULL DEFAULT 0,
		message_count INTEGER NOT NULL DEFAULT 0,
		generations INTEGER NOT NULL DEFAULT 0,
		last_template TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getStmt, err = s.db.Prepare(`
		SELECT id, escalated, escalation_reason, escalated_at, cleared_by, cleared_at,
			next_step, message_count, generations, last_template, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	// Existing escalation keeps its original reason and time.
	s.escalateStmt, err = s.db.Prepare(`
		INSERT INTO sessions (id, escalated, escalation_reason, escalated_at, created_at, updated_at)
		VALUES (?, 1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			escalation_reason = CASE WHEN sessions.escalated = 1 THEN sessions.escalation_reason ELSE excluded.escalation_reason END,
			escalated_at = CASE WHEN sessions.escalated = 1 THEN sessions.escalated_at ELSE excluded.escalated_at END,
			escalated = 1,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare escalate statement: %w", err)
	}

	s.clearStmt, err = s.db.Prepare(`
		UPDATE sessions
		SET escalated = 0, escalation_reason = '', escalated_at = 0,
			cleared_by = ?, cleared_at = ?, updated_at = ?
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare clear statement: %w", err)
	}

	s.touchStmt, err = s.db.Prepare(`
		INSERT INTO sessions (id, next_step, message_count, generations, last_template, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			next_step = excluded.next_step,
			message_count = excluded.message_count,
			generations = sessions.generations + 1,
			last_template = excluded.last_template,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare touch statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT id, escalated, escalation_reason, escalated_at, cleared_by, cleared_at,
			next_step, message_count, generations, last_template, created_at, updated_at
		FROM sessions
		ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.cleanupStmt, err = s.db.Prepare(`
		DELETE FROM sessions
		WHERE escalated = 0 AND updated_at < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare cleanup statement: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess                                    Session
		escalated                               int
		escalatedAt, clearedAt, created, update int64
	)
	err := row.Scan(
		&sess.ID,
		&escalated,
		&sess.EscalationReason,
		&escalatedAt,
		&sess.ClearedBy,
		&clearedAt,
		&sess.NextStep,
		&sess.MessageCount,
		&sess.Generations,
		&sess.LastTemplate,
		&created,
		&update,
	)
	if err != nil {
		return nil, err
	}
	sess.Escalated = escalated == 1
	sess.EscalatedAt = fromMillis(escalatedAt)
	sess.ClearedAt = fromMillis(clearedAt)
	sess.CreatedAt = fromMillis(created)
	sess.UpdatedAt = fromMillis(update)
	return &sess, nil
}

// Get returns the session or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := scanSession(s.getStmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// MarkEscalated sets the sticky escalated flag.
func (s *SQLiteStore) MarkEscalated(ctx context.Context, id, reason string, at time.Time) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ms := at.UnixMilli()
	if _, err := s.escalateStmt.ExecContext(ctx, id, reason, ms, ms, ms); err != nil {
		return fmt.Errorf("failed to mark session escalated: %w", err)
	}
	return nil
}

// Clear resets the escalated flag on behalf of a reviewer.
func (s *SQLiteStore) Clear(ctx context.Context, id, reviewer string) error {
	if reviewer == "" {
		return ErrReviewerRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	result, err := s.clearStmt.ExecContext(ctx, reviewer, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Touch records one generation for the session.
func (s *SQLiteStore) Touch(ctx context.Context, id string, a Activity, at time.Time) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ms := at.UnixMilli()
	if _, err := s.touchStmt.ExecContext(ctx, id, a.NextStep, a.MessageCount, a.TemplateID, ms, ms); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// List returns every session ordered by ID.
func (s *SQLiteStore) List(ctx context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Cleanup removes idle, non-escalated sessions.
func (s *SQLiteStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.cleanupStmt.ExecContext(ctx, olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(deleted), nil
}

// Close releases the database. It is idempotent.
func (s *SQLiteStore) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.getStmt, s.escalateStmt, s.clearStmt, s.touchStmt, s.listStmt, s.cleanupStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		closeErr = s.db.Close()
	})
	return closeErr
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

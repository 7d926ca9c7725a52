package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the audit database. Times are stored as Unix nanoseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
    id TEXT PRIMARY KEY,
    generation_id TEXT NOT NULL,
    session_id TEXT NOT NULL DEFAULT '',

    template_id TEXT NOT NULL,
    persona_id TEXT NOT NULL,
    catalog_version TEXT NOT NULL DEFAULT '',

    timestamp INTEGER NOT NULL,
    recorded_at INTEGER NOT NULL,
    elapsed_ns INTEGER NOT NULL DEFAULT 0,

    prompt_hash TEXT NOT NULL DEFAULT '',
    prompt_excerpt TEXT NOT NULL DEFAULT '',

    passed BOOLEAN NOT NULL,
    risk_level INTEGER NOT NULL,
    violations TEXT,

    escalated BOOLEAN NOT NULL,
    escalation_reasons TEXT,

    fallback_used BOOLEAN NOT NULL,
    suppressed BOOLEAN NOT NULL,
    error TEXT,
    error_detail TEXT
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_records(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_session_id ON audit_records(session_id);
CREATE INDEX IF NOT EXISTS idx_audit_template_id ON audit_records(template_id);
CREATE INDEX IF NOT EXISTS idx_audit_escalated ON audit_records(escalated);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion reads the latest schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

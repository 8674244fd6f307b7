// Package audit keeps an append-only chain-of-custody log of every mutating
// operation in a SQLite database next to the store files. Audit writes are
// best-effort: callers log failures and carry on with the primary operation.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"
)

// Actions recorded in the log.
const (
	ActionCaseCreated     = "case_created"
	ActionCaseDeleted     = "case_deleted"
	ActionEvidenceAdded   = "evidence_added"
	ActionEvidenceDeleted = "evidence_deleted"
	ActionEvidenceMetaSet = "evidence_meta_set"
	ActionNoteAdded       = "note_added"
	ActionNoteDeleted     = "note_deleted"
	ActionContextChanged  = "context_changed"
	ActionSettingsChanged = "settings_changed"
	ActionExportCreated   = "export_created"
	ActionStoreSeeded     = "store_seeded"
	ActionStoreReset      = "store_reset"
)

// Entry represents one audit log row.
type Entry struct {
	ID         string                 `json:"id"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"` // "case", "evidence", "note", "context", "export", "store"
	EntityID   string                 `json:"entity_id,omitempty"`
	CaseID     string                 `json:"case_id,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Actor      string                 `json:"actor"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Log is the SQLite-backed audit trail.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the audit database at dbPath.
func Open(dbPath string) (*Log, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create audit directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open(sqliteDriver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// Pragmas are issued as statements so both driver flavors accept them.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma: %w", err)
		}
	}

	l := &Log{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate audit database: %w", err)
	}
	return l, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	return l.db.Close()
}

// migrate performs idempotent schema setup.
func (l *Log) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS audit_entries (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT,
			case_id TEXT,
			details TEXT NOT NULL,
			actor TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_entries(action)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_case_id ON audit_entries(case_id)`,
	}

	for _, migration := range migrations {
		if _, err := l.db.Exec(migration); err != nil {
			return fmt.Errorf("failed to execute audit migration: %w", err)
		}
	}
	return nil
}

// Append records one entry. ID, actor, and timestamp are filled in when the
// caller leaves them empty.
func (l *Log) Append(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("audit_%d", time.Now().UnixNano())
	}
	if entry.Actor == "" {
		entry.Actor = CurrentActor()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	query := `INSERT INTO audit_entries (
		id, action, entity_type, entity_id, case_id, details, actor, timestamp
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = l.db.ExecContext(ctx, query,
		entry.ID, entry.Action, entry.EntityType, entry.EntityID, entry.CaseID,
		string(detailsJSON), entry.Actor, entry.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, action, entity_type, entity_id, case_id, details, actor, timestamp
		FROM audit_entries ORDER BY timestamp DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var entityID, caseID sql.NullString
		var detailsJSON string
		var timestamp int64

		err := rows.Scan(&entry.ID, &entry.Action, &entry.EntityType, &entityID,
			&caseID, &detailsJSON, &entry.Actor, &timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		entry.EntityID = entityID.String
		entry.CaseID = caseID.String
		entry.Timestamp = time.Unix(0, timestamp)

		if err := json.Unmarshal([]byte(detailsJSON), &entry.Details); err != nil {
			entry.Details = map[string]interface{}{"raw": detailsJSON}
		}

		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CurrentActor resolves the OS user for attribution, falling back to the
// USER environment variable and then "unknown".
func CurrentActor() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}

package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	newID func() string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens (and if needed initializes) a SQLite-backed session store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency between suggestion requests.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, newID: uuid.NewString}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS writing_sessions (
		session_id TEXT PRIMARY KEY,
		topic TEXT NOT NULL,
		target_audience TEXT NOT NULL DEFAULT '',
		outline_json TEXT NOT NULL DEFAULT '[]',
		content_json TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// Create persists a new session holding the topic and optional audience,
// and returns its id.
func (s *SQLiteStore) Create(ctx context.Context, topic string, audience Audience) (string, error) {
	id := s.newID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin create tx: %w", err)
	}
	defer tx.Rollback()

	exists, err := sessionExists(ctx, tx, id)
	if err != nil {
		return "", err
	}
	if exists {
		return "", &ConflictError{SessionID: id}
	}

	now := time.Now().UnixNano()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO writing_sessions (session_id, topic, target_audience, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, topic, string(audience), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit create tx: %w", err)
	}
	return id, nil
}

// Get fetches a session by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*WritingSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, topic, target_audience, outline_json, content_json,
		       created_at, updated_at
		FROM writing_sessions WHERE session_id = ?`, id)

	var ws WritingSession
	var audience, outlineJSON, contentJSON string
	var createdAt, updatedAt int64

	err := row.Scan(&ws.SessionID, &ws.Topic, &audience, &outlineJSON, &contentJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{SessionID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	ws.TargetAudience = Audience(audience)
	if err := json.Unmarshal([]byte(outlineJSON), &ws.Outline); err != nil {
		return nil, fmt.Errorf("decode outline: %w", err)
	}
	if err := json.Unmarshal([]byte(contentJSON), &ws.Content); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	ws.CreatedAt = time.Unix(0, createdAt)
	ws.UpdatedAt = time.Unix(0, updatedAt)

	return &ws, nil
}

// Update overwrites the mutable fields of an existing session.
func (s *SQLiteStore) Update(ctx context.Context, ws *WritingSession) error {
	outlineJSON, err := json.Marshal(outlineOrEmpty(ws.Outline))
	if err != nil {
		return fmt.Errorf("encode outline: %w", err)
	}
	contentJSON, err := json.Marshal(contentOrEmpty(ws.Content))
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update tx: %w", err)
	}
	defer tx.Rollback()

	exists, err := sessionExists(ctx, tx, ws.SessionID)
	if err != nil {
		return err
	}
	if !exists {
		return &NotFoundError{SessionID: ws.SessionID}
	}

	// MAX keeps updated_at strictly advancing even under clock skew.
	_, err = tx.ExecContext(ctx, `
		UPDATE writing_sessions
		SET topic = ?, target_audience = ?, outline_json = ?, content_json = ?,
		    updated_at = MAX(?, updated_at + 1)
		WHERE session_id = ?`,
		ws.Topic, string(ws.TargetAudience), string(outlineJSON), string(contentJSON),
		time.Now().UnixNano(), ws.SessionID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update tx: %w", err)
	}
	return nil
}

func sessionExists(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM writing_sessions WHERE session_id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check session existence: %w", err)
	}
	return true, nil
}

func outlineOrEmpty(outline []OutlineSection) []OutlineSection {
	if outline == nil {
		return []OutlineSection{}
	}
	return outline
}

func contentOrEmpty(content map[string]string) map[string]string {
	if content == nil {
		return map[string]string{}
	}
	return content
}

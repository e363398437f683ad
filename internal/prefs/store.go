package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

const schema = `
CREATE TABLE IF NOT EXISTS user_preferences (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sender_pattern TEXT NOT NULL UNIQUE,
    preferred_action TEXT NOT NULL,
    confidence REAL NOT NULL,
    action_count INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS weekly_summaries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    week_start TEXT NOT NULL UNIQUE,
    emails_processed INTEGER NOT NULL DEFAULT 0,
    emails_kept INTEGER NOT NULL DEFAULT 0,
    emails_deleted INTEGER NOT NULL DEFAULT 0,
    emails_unsubscribed INTEGER NOT NULL DEFAULT 0,
    auto_actions_applied INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_preferences_confidence ON user_preferences(confidence);
CREATE INDEX IF NOT EXISTS idx_summaries_week ON weekly_summaries(week_start);
`

// Store persists learned preferences and weekly summaries in sqlite.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if necessary) the preference database at path.
// The connection uses WAL mode with a busy timeout so concurrent cleany
// processes queue instead of failing.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing database handle. Used in tests.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a transaction, committing on nil and rolling back on
// error. Preference updates go through here so concurrent read-modify-write
// cycles are serialized by the database.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPreference returns the preference for a sender pattern.
func (s *Store) GetPreference(ctx context.Context, pattern string) (*SenderPreference, error) {
	var pref SenderPreference
	query := `SELECT * FROM user_preferences WHERE sender_pattern = ?`
	err := s.db.GetContext(ctx, &pref, query, pattern)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}
	return &pref, nil
}

// ListPreferences returns all preferences with confidence at or above min,
// most confident first.
func (s *Store) ListPreferences(ctx context.Context, min float64) ([]SenderPreference, error) {
	var prefs []SenderPreference
	query := `SELECT * FROM user_preferences WHERE confidence >= ? ORDER BY confidence DESC, sender_pattern`
	if err := s.db.SelectContext(ctx, &prefs, query, min); err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	return prefs, nil
}

// GetWeeklySummary returns the summary row for the given week start date.
func (s *Store) GetWeeklySummary(ctx context.Context, weekStart string) (*WeeklySummary, error) {
	var sum WeeklySummary
	query := `SELECT * FROM weekly_summaries WHERE week_start = ?`
	err := s.db.GetContext(ctx, &sum, query, weekStart)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly summary: %w", err)
	}
	return &sum, nil
}

// ListWeeklySummaries returns up to limit summaries, newest week first.
func (s *Store) ListWeeklySummaries(ctx context.Context, limit int) ([]WeeklySummary, error) {
	var sums []WeeklySummary
	query := `SELECT * FROM weekly_summaries ORDER BY week_start DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &sums, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list weekly summaries: %w", err)
	}
	return sums, nil
}

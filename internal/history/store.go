// Package history records dispatched commands and generation outcomes in
// SQLite, giving the bot an inspectable audit trail.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store implements domain.HistoryStore using SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS commands (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		keyword     TEXT NOT NULL,
		argument    TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_commands_time ON commands(created_at);

	CREATE TABLE IF NOT EXISTS generations (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		kind        TEXT NOT NULL,
		query       TEXT,
		url         TEXT,
		ok          INTEGER NOT NULL,
		error       TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_generations_time ON generations(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) RecordCommand(ctx context.Context, keyword, argument string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commands (keyword, argument) VALUES (?, ?)`,
		keyword, argument,
	)
	return err
}

func (s *Store) RecordGeneration(ctx context.Context, kind, query, url string, ok bool, errMsg string) error {
	okInt := 0
	if ok {
		okInt = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations (kind, query, url, ok, error) VALUES (?, ?, ?, ?, ?)`,
		kind, query, url, okInt, errMsg,
	)
	return err
}

// CommandRecord is one row of the commands table.
type CommandRecord struct {
	Keyword   string
	Argument  string
	CreatedAt time.Time
}

// RecentCommands returns the newest commands first, up to limit.
func (s *Store) RecentCommands(ctx context.Context, limit int) ([]CommandRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT keyword, argument, created_at FROM commands ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CommandRecord
	for rows.Next() {
		var rec CommandRecord
		if err := rows.Scan(&rec.Keyword, &rec.Argument, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GenerationRecord is one row of the generations table.
type GenerationRecord struct {
	Kind      string
	Query     string
	URL       string
	OK        bool
	Error     string
	CreatedAt time.Time
}

// RecentGenerations returns the newest generation outcomes first, up to limit.
func (s *Store) RecentGenerations(ctx context.Context, limit int) ([]GenerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, query, url, ok, error, created_at FROM generations ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []GenerationRecord
	for rows.Next() {
		var rec GenerationRecord
		var okInt int
		if err := rows.Scan(&rec.Kind, &rec.Query, &rec.URL, &okInt, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.OK = okInt != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Package sqlite provides the file-backed record store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	apperrors "forum-xp-backend/internal/common/errors"
	"forum-xp-backend/internal/features/progression/models"
	"forum-xp-backend/internal/features/progression/repository"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id       TEXT PRIMARY KEY,
	current_xp    INTEGER NOT NULL DEFAULT 0,
	current_level INTEGER NOT NULL DEFAULT 0
)`

// Store persists user records in a local SQLite database. Writes are
// synchronous: once Put returns, the record is on disk.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file and ensures the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=FULL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create users table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, userID string) (*models.UserRecord, error) {
	record := &models.UserRecord{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT current_xp, current_level FROM users WHERE user_id = ?`, userID,
	).Scan(&record.XP, &record.Level)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Sprintf("get user %s", userID), err)
	}
	return record, nil
}

func (s *Store) Put(ctx context.Context, record *models.UserRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, current_xp, current_level) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET current_xp = excluded.current_xp, current_level = excluded.current_level`,
		record.UserID, record.XP, record.Level,
	)
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Sprintf("put user %s", record.UserID), err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

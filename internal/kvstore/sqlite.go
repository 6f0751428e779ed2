package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLite keeps flags in the flags table. Arm is atomic across processes
// sharing the database file.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Get(ctx context.Context, key string) (bool, error) {
	var value int
	err := s.db.QueryRowContext(ctx, `SELECT value FROM flags WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read flag %q: %w", key, err)
	}
	return value != 0, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value bool) error {
	query := `
		INSERT INTO flags (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, boolToInt(value), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write flag %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Arm(ctx context.Context, key string) (bool, error) {
	query := `
		INSERT INTO flags (key, value, updated_at) VALUES (?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET value = 1, updated_at = excluded.updated_at
		WHERE flags.value = 0
	`
	res, err := s.db.ExecContext(ctx, query, key, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("failed to arm flag %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to arm flag %q: %w", key, err)
	}
	return n == 1, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

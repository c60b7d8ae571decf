// Package sqlite provides SQLite-backed storage for participation flags and
// the draw ledger.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"carddraw/internal/models"
	"carddraw/internal/storage/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// ErrNotConfigured is returned by methods called on a nil or closed store.
var ErrNotConfigured = errors.New("storage is not configured")

// Store persists draw state in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens a SQLite store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetFlag returns the stored value for (device, key), or "" when absent.
func (s *Store) GetFlag(ctx context.Context, device, key string) (string, error) {
	if s == nil || s.sqlDB == nil {
		return "", ErrNotConfigured
	}
	var value string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT flag_value FROM participation_flags WHERE device_id = ? AND flag_key = ?`,
		device, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get flag %s: %w", key, err)
	}
	return value, nil
}

// SetFlag stores value for (device, key), replacing any previous value.
func (s *Store) SetFlag(ctx context.Context, device, key, value string) error {
	if s == nil || s.sqlDB == nil {
		return ErrNotConfigured
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO participation_flags (device_id, flag_key, flag_value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (device_id, flag_key) DO UPDATE SET
		   flag_value = excluded.flag_value,
		   updated_at = excluded.updated_at`,
		device, key, value, s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set flag %s: %w", key, err)
	}
	return nil
}

// LedgerEntryExists reports whether team already has a result for category.
func (s *Store) LedgerEntryExists(ctx context.Context, category models.Category, team string) (bool, error) {
	if s == nil || s.sqlDB == nil {
		return false, ErrNotConfigured
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM ledger_entries WHERE category = ? AND team = ?`,
		string(category), team,
	).Scan(&count); err != nil {
		return false, fmt.Errorf("check ledger entry: %w", err)
	}
	return count > 0, nil
}

// AppendLedgerEntry records entry unless the team already has one for the
// category. It reports whether a new row was written.
func (s *Store) AppendLedgerEntry(ctx context.Context, entry models.LedgerEntry) (bool, error) {
	if s == nil || s.sqlDB == nil {
		return false, ErrNotConfigured
	}
	recordedAt := entry.RecordedAt
	if recordedAt == 0 {
		recordedAt = s.now().UTC().UnixMilli()
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO ledger_entries (category, team, result, recorded_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (category, team) DO NOTHING`,
		string(entry.Category), entry.Team, entry.Result, recordedAt,
	)
	if err != nil {
		return false, fmt.Errorf("append ledger entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append ledger entry: %w", err)
	}
	return n > 0, nil
}

// ListLedgerEntries returns every entry for category, oldest first.
func (s *Store) ListLedgerEntries(ctx context.Context, category models.Category) ([]models.LedgerEntry, error) {
	if s == nil || s.sqlDB == nil {
		return nil, ErrNotConfigured
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT team, result, recorded_at FROM ledger_entries
		 WHERE category = ?
		 ORDER BY recorded_at, team`,
		string(category),
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.LedgerEntry, 0)
	for rows.Next() {
		entry := models.LedgerEntry{Category: category}
		if err := rows.Scan(&entry.Team, &entry.Result, &entry.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}

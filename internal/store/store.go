// Package store persists the serialized workspace (ordered tabs with their
// layout trees) in a local SQLite database.
//
// The store is a lagging mirror of in-memory state: saves replace the whole
// tab set transactionally, and a failed save never affects the in-memory
// workspace. Callers treat SaveTabs as fire-and-forget.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"deskmux/internal/workspace"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open creates the database file (and parent directory) if needed, applies
// pending migrations, and returns the store.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle. Safe on a nil store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveTabs replaces the persisted tab set with records, preserving order.
// The replacement is transactional: a failure leaves the previous contents
// intact.
func (s *Store) SaveTabs(ctx context.Context, records []workspace.TabRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tabs`); err != nil {
		return fmt.Errorf("clear tabs: %w", err)
	}
	for position, rec := range records {
		layout, err := json.Marshal(rec.Layout)
		if err != nil {
			return fmt.Errorf("marshal layout for tab %s: %w", rec.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO tabs(tab_id, name, layout, active_pane_id, position, opened_at)
VALUES (?, ?, ?, ?, ?, ?)
`, rec.ID, rec.Name, string(layout), rec.ActivePaneID, position, ts(rec.OpenedAt))
		if err != nil {
			return fmt.Errorf("insert tab %s: %w", rec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// LoadTabs returns the persisted tab records in their saved order.
func (s *Store) LoadTabs(ctx context.Context) ([]workspace.TabRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT tab_id, name, layout, active_pane_id, opened_at
FROM tabs
ORDER BY position
`)
	if err != nil {
		return nil, fmt.Errorf("query tabs: %w", err)
	}
	defer rows.Close()

	var records []workspace.TabRecord
	for rows.Next() {
		var rec workspace.TabRecord
		var layout, openedAt string
		if err := rows.Scan(&rec.ID, &rec.Name, &layout, &rec.ActivePaneID, &openedAt); err != nil {
			return nil, fmt.Errorf("scan tab: %w", err)
		}
		if layout != "" && layout != "null" {
			if err := json.Unmarshal([]byte(layout), &rec.Layout); err != nil {
				return nil, fmt.Errorf("unmarshal layout for tab %s: %w", rec.ID, err)
			}
		}
		rec.OpenedAt = parseTS(openedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tabs: %w", err)
	}
	return records, nil
}

// GetTab returns one persisted tab record by id.
func (s *Store) GetTab(ctx context.Context, tabID string) (workspace.TabRecord, error) {
	var rec workspace.TabRecord
	var layout, openedAt string
	err := s.db.QueryRowContext(ctx, `
SELECT tab_id, name, layout, active_pane_id, opened_at
FROM tabs
WHERE tab_id = ?
`, tabID).Scan(&rec.ID, &rec.Name, &layout, &rec.ActivePaneID, &openedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return workspace.TabRecord{}, ErrNotFound
	}
	if err != nil {
		return workspace.TabRecord{}, fmt.Errorf("query tab %s: %w", tabID, err)
	}
	if layout != "" && layout != "null" {
		if err := json.Unmarshal([]byte(layout), &rec.Layout); err != nil {
			return workspace.TabRecord{}, fmt.Errorf("unmarshal layout for tab %s: %w", tabID, err)
		}
	}
	rec.OpenedAt = parseTS(openedAt)
	return rec, nil
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

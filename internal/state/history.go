package state

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/tsundoku-app/tsundoku/internal/download"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

// AddToHistory adds or updates a finished item
func AddToHistory(entry download.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	return withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO history (
				id, kind, title, source, dest_dir, pages, completed_at, time_taken
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				kind=excluded.kind,
				title=excluded.title,
				source=excluded.source,
				dest_dir=excluded.dest_dir,
				pages=excluded.pages,
				completed_at=excluded.completed_at,
				time_taken=excluded.time_taken
		`,
			entry.ID, string(entry.Kind), entry.Title, entry.Source, entry.DestDir,
			entry.Pages, entry.CompletedAt, entry.TimeTaken)
		if err != nil {
			return fmt.Errorf("failed to add history entry: %w", err)
		}
		return nil
	})
}

// ListHistory returns finished items, newest first. limit <= 0 returns all.
func ListHistory(limit int) ([]download.HistoryEntry, error) {
	d, err := GetDB()
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	rows, err := d.Query(`
		SELECT id, kind, title, source, dest_dir, pages, completed_at, time_taken
		FROM history
		ORDER BY completed_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			utils.Debug("Error closing rows: %v", err)
		}
	}()

	var entries []download.HistoryEntry
	for rows.Next() {
		var e download.HistoryEntry
		var kind string
		var source, destDir sql.NullString
		var pages, completedAt, timeTaken sql.NullInt64

		if err := rows.Scan(&e.ID, &kind, &e.Title, &source, &destDir, &pages, &completedAt, &timeTaken); err != nil {
			return nil, err
		}

		e.Kind = download.ContentKind(kind)
		if source.Valid {
			e.Source = source.String
		}
		if destDir.Valid {
			e.DestDir = destDir.String
		}
		if pages.Valid {
			e.Pages = int(pages.Int64)
		}
		if completedAt.Valid {
			e.CompletedAt = completedAt.Int64
		}
		if timeTaken.Valid {
			e.TimeTaken = timeTaken.Int64
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearHistory removes every history entry and returns how many were removed
func ClearHistory() (int64, error) {
	d, err := GetDB()
	if err != nil {
		return 0, err
	}

	result, err := d.Exec("DELETE FROM history")
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// Store adapts the package functions to download.Store.
type Store struct{}

var _ download.Store = Store{}

func (Store) SaveQueue(kind download.ContentKind, items []download.Item) error {
	return SaveQueue(kind, items)
}

func (Store) LoadQueue(kind download.ContentKind) ([]download.Item, error) {
	return LoadQueue(kind)
}

func (Store) AddToHistory(entry download.HistoryEntry) error {
	return AddToHistory(entry)
}

package state

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/tsundoku-app/tsundoku/internal/download"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

// URLs are stored newline separated; commas are legal inside URLs.
const urlSep = "\n"

// SaveQueue replaces the persisted queue of kind with items, keeping their order.
func SaveQueue(kind download.ContentKind, items []download.Item) error {
	return withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM queue_items WHERE kind = ?", string(kind)); err != nil {
			return fmt.Errorf("failed to clear queue: %w", err)
		}
		if len(items) == 0 {
			return nil
		}

		stmt, err := tx.Prepare(`
			INSERT INTO queue_items (
				id, kind, title, source, urls, dest_dir, position, state, pages_done, error, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				kind=excluded.kind,
				title=excluded.title,
				source=excluded.source,
				urls=excluded.urls,
				dest_dir=excluded.dest_dir,
				position=excluded.position,
				state=excluded.state,
				pages_done=excluded.pages_done,
				error=excluded.error
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, it := range items {
			if _, err := stmt.Exec(
				it.ID, string(kind), it.Title, it.Source, strings.Join(it.URLs, urlSep), it.DestDir,
				i, string(it.State), it.PagesDone, it.Error, it.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to save item %s: %w", utils.ShortID(it.ID), err)
			}
		}
		return nil
	})
}

// LoadQueue returns the persisted queue of kind in its saved order.
func LoadQueue(kind download.ContentKind) ([]download.Item, error) {
	d, err := GetDB()
	if err != nil {
		return nil, err
	}

	rows, err := d.Query(`
		SELECT id, kind, title, source, urls, dest_dir, state, pages_done, error, created_at
		FROM queue_items
		WHERE kind = ?
		ORDER BY position
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			utils.Debug("Error closing rows: %v", err)
		}
	}()

	var items []download.Item
	for rows.Next() {
		var it download.Item
		var itemKind, urls, itemState string
		var source, destDir, errMsg sql.NullString
		var pagesDone, createdAt sql.NullInt64

		if err := rows.Scan(&it.ID, &itemKind, &it.Title, &source, &urls, &destDir, &itemState, &pagesDone, &errMsg, &createdAt); err != nil {
			return nil, err
		}

		it.Kind = download.ContentKind(itemKind)
		it.State = download.ItemState(itemState)
		if urls != "" {
			it.URLs = strings.Split(urls, urlSep)
		}
		if source.Valid {
			it.Source = source.String
		}
		if destDir.Valid {
			it.DestDir = destDir.String
		}
		if errMsg.Valid {
			it.Error = errMsg.String
		}
		if pagesDone.Valid {
			it.PagesDone = int(pagesDone.Int64)
		}
		if createdAt.Valid {
			it.CreatedAt = createdAt.Int64
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

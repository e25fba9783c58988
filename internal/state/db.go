package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tsundoku-app/tsundoku/internal/utils"
	_ "modernc.org/sqlite"
)

var (
	db         *sql.DB
	dbMu       sync.Mutex
	dbPath     string
	configured bool
)

const schema = `
CREATE TABLE IF NOT EXISTS queue_items (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	title TEXT NOT NULL,
	source TEXT,
	urls TEXT NOT NULL,
	dest_dir TEXT,
	position INTEGER NOT NULL,
	state TEXT,
	pages_done INTEGER DEFAULT 0,
	error TEXT,
	created_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_queue_items_kind ON queue_items(kind, position);

CREATE TABLE IF NOT EXISTS history (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	title TEXT NOT NULL,
	source TEXT,
	dest_dir TEXT,
	pages INTEGER,
	completed_at INTEGER,
	time_taken INTEGER
);
`

// Configure sets the path for the SQLite database
func Configure(path string) {
	dbMu.Lock()
	defer dbMu.Unlock()
	dbPath = path
	configured = true
}

func initDB() error {
	dbMu.Lock()
	defer dbMu.Unlock()

	if db != nil {
		return nil
	}

	if !configured || dbPath == "" {
		return fmt.Errorf("state database not configured: call state.Configure() first")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	d, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite serialises writers; a single connection avoids SQLITE_BUSY
	d.SetMaxOpenConns(1)

	if _, err := d.Exec(schema); err != nil {
		_ = d.Close()
		return fmt.Errorf("failed to create tables: %w", err)
	}

	db = d
	return nil
}

// CloseDB closes the database connection
func CloseDB() {
	dbMu.Lock()
	defer dbMu.Unlock()
	if db != nil {
		if err := db.Close(); err != nil {
			utils.Debug("Error closing state db: %v", err)
		}
		db = nil
	}
}

// GetDB returns the database instance, initializing it if necessary
func GetDB() (*sql.DB, error) {
	if err := initDB(); err != nil {
		return nil, err
	}
	dbMu.Lock()
	defer dbMu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return db, nil
}

func withTx(fn func(*sql.Tx) error) error {
	d, err := GetDB()
	if err != nil {
		return err
	}

	tx, err := d.Begin()
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

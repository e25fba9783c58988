package state

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
)

// setupTestDB points the package at a fresh database in a temp dir.
func setupTestDB(t testing.TB) string {
	t.Helper()
	tempDir := t.TempDir()

	dbMu.Lock()
	if db != nil {
		_ = db.Close()
		db = nil
	}
	configured = false
	dbMu.Unlock()

	Configure(filepath.Join(tempDir, "tsundoku.db"))
	if err := initDB(); err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	t.Cleanup(CloseDB)
	return tempDir
}

func TestDBLifecycle(t *testing.T) {
	setupTestDB(t)

	d, err := GetDB()
	if err != nil {
		t.Fatalf("GetDB failed: %v", err)
	}
	if d == nil {
		t.Fatal("GetDB returned nil")
	}

	d2, err := GetDB()
	if err != nil {
		t.Fatalf("GetDB 2 failed: %v", err)
	}
	if d != d2 {
		t.Error("GetDB should return the same instance")
	}

	CloseDB()
	if db != nil {
		t.Error("db variable should be nil after CloseDB")
	}

	// GetDB re-opens after CloseDB
	d3, err := GetDB()
	if err != nil {
		t.Fatalf("Re-opening GetDB failed: %v", err)
	}

	for _, table := range []string{"queue_items", "history"} {
		if _, err := d3.Exec("SELECT * FROM " + table + " LIMIT 1"); err != nil {
			t.Errorf("Table '%s' check failed: %v", table, err)
		}
	}
}

func TestGetDB_NotConfigured(t *testing.T) {
	dbMu.Lock()
	if db != nil {
		_ = db.Close()
		db = nil
	}
	configured = false
	dbPath = ""
	dbMu.Unlock()

	if _, err := GetDB(); err == nil {
		t.Fatal("expected error for unconfigured database")
	}
}

func TestInitDB_CreatesDir(t *testing.T) {
	setupTestDB(t)
	CloseDB()

	nested := filepath.Join(t.TempDir(), "a", "b", "tsundoku.db")
	Configure(nested)
	if _, err := GetDB(); err != nil {
		t.Fatalf("GetDB with nested path failed: %v", err)
	}
}

func TestWithTx_Commit(t *testing.T) {
	setupTestDB(t)

	err := withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO history (id, kind, title) VALUES (?, ?, ?)", "tx-test-1", "manga", "Ch.1")
		return err
	})
	if err != nil {
		t.Fatalf("withTx failed: %v", err)
	}

	d, _ := GetDB()
	var title string
	if err := d.QueryRow("SELECT title FROM history WHERE id = ?", "tx-test-1").Scan(&title); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if title != "Ch.1" {
		t.Errorf("Expected 'Ch.1', got '%s'", title)
	}
}

func TestWithTx_Rollback(t *testing.T) {
	setupTestDB(t)

	expectedErr := fmt.Errorf("intentional error")
	err := withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO history (id, kind, title) VALUES (?, ?, ?)", "tx-test-2", "manga", "Ch.2"); err != nil {
			return err
		}
		return expectedErr
	})
	if err != expectedErr {
		t.Fatalf("Expected error %v, got %v", expectedErr, err)
	}

	d, _ := GetDB()
	var count int
	if err := d.QueryRow("SELECT count(*) FROM history WHERE id = ?", "tx-test-2").Scan(&count); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if count != 0 {
		t.Error("Transaction should have rolled back, but record found")
	}
}

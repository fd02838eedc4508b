package db

import (
	"path/filepath"
	"testing"
)

func TestInitDB_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "co2.db")

	db, err := InitDB(path)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer db.Close()

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='refresh_events'`).Scan(&name)
	if err != nil {
		t.Fatalf("refresh_events table missing: %v", err)
	}

	// idempotent on reopen
	db2, err := InitDB(path)
	if err != nil {
		t.Fatalf("second InitDB: %v", err)
	}
	_ = db2.Close()
}

func TestInitDB_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "co2.db")
	if _, err := InitDB(path); err == nil {
		t.Fatalf("expected error for unreachable path")
	}
}

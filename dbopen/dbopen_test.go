package dbopen

import (
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpen_AppliesPragmas(t *testing.T) {
	// WHAT: Open sets WAL mode and foreign keys on the connection.
	// WHY: Concurrent runs share the database; without WAL writers block readers.
	db := OpenMemory(t)

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestOpen_WithSchema(t *testing.T) {
	// WHAT: WithSchema executes DDL before Open returns.
	// WHY: Callers expect tables to exist on first use.
	db := OpenMemory(t, WithSchema(`CREATE TABLE things (id TEXT PRIMARY KEY)`))

	if _, err := db.Exec(`INSERT INTO things (id) VALUES ('a')`); err != nil {
		t.Fatalf("insert into schema table: %v", err)
	}
}

func TestOpen_WithMkdirAll(t *testing.T) {
	// WHAT: WithMkdirAll creates missing parent directories.
	// WHY: First run on a fresh host has no data directory yet.
	path := filepath.Join(t.TempDir(), "nested", "deep", "test.db")
	db, err := Open(path, WithMkdirAll())
	if err != nil {
		t.Fatalf("open with mkdir: %v", err)
	}
	db.Close()
}

func TestOpen_MissingParentFails(t *testing.T) {
	// WHAT: Without WithMkdirAll, opening under a missing directory fails.
	// WHY: Guards against silently writing to an unexpected location.
	path := filepath.Join(t.TempDir(), "missing", "test.db")
	if _, err := Open(path); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}

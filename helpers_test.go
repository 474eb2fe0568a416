package cellarkv

// helpers_test.go implements shared test fixtures.

import (
	"path/filepath"
	"testing"

	"github.com/aalhour/cellarkv/internal/engine"
)

func testOptions() *Options {
	opts := DefaultOptions()
	opts.Logger = DiscardLogger
	return opts
}

// openMemDB creates an in-memory database closed at the end of the test.
func openMemDB(t *testing.T) *Database {
	t.Helper()
	opts := testOptions()
	opts.Backend = BackendInMemory
	db, err := Create(t.Name(), opts)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// dbPath returns a fresh database file path in the test's temp dir.
func dbPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.cellar")
}

// checkNoLeaks fails the test if engine handles created during the test
// are still live when it ends.
func checkNoLeaks(t *testing.T) {
	t.Helper()
	before := engine.LiveHandles()
	t.Cleanup(func() {
		if after := engine.LiveHandles(); after != before {
			t.Errorf("live engine handles = %d, want %d", after, before)
		}
	})
}

// writeStrings commits key/value pairs to table in one write transaction.
func writeStrings(t *testing.T, db *Database, table string, kv map[string]string) {
	t.Helper()
	tx, err := db.BeginWrite()
	if err != nil {
		t.Fatalf("BeginWrite: %v", err)
	}
	tbl, err := OpenTypedTable[string, string](tx, table)
	if err != nil {
		t.Fatalf("OpenTypedTable: %v", err)
	}
	for k, v := range kv {
		if err := tbl.Insert(k, v); err != nil {
			t.Fatalf("Insert(%q): %v", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

// readAll returns every entry of a string table as seen by a new read
// transaction.
func readAll(t *testing.T, db *Database, table string) map[string]string {
	t.Helper()
	tx, err := db.BeginRead()
	if err != nil {
		t.Fatalf("BeginRead: %v", err)
	}
	defer tx.Close()
	tbl, err := OpenTypedReadOnlyTable[string, string](tx, table)
	if err != nil {
		t.Fatalf("OpenTypedReadOnlyTable: %v", err)
	}
	out := make(map[string]string)
	for k, v := range tbl.All() {
		out[k] = v
	}
	return out
}

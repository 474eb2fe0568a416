package cellarkv

// database_test.go implements tests for opening, closing and compacting.

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.etcd.io/bbolt"

	"github.com/aalhour/cellarkv/internal/logging"
)

func TestDatabaseCreateOpen(t *testing.T) {
	checkNoLeaks(t)
	path := dbPath(t)

	db, err := Create(path, testOptions())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if db.Path() != path {
		t.Fatalf("Path = %q, want %q", db.Path(), path)
	}
	writeStrings(t, db, "kv", map[string]string{"k": "v"})
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := db.BeginRead(); !errors.Is(err, ErrDisposed) {
		t.Fatalf("BeginRead after Close = %v, want ErrDisposed", err)
	}

	// Create on an existing file opens it.
	db, err = Create(path, testOptions())
	if err != nil {
		t.Fatalf("Create existing: %v", err)
	}
	if got := readAll(t, db, "kv"); got["k"] != "v" {
		t.Fatalf("contents = %v", got)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if db.Encoding() != Encoding(Primitive) {
		t.Fatalf("default encoding = %T", db.Encoding())
	}
	if got := db.Options(); got.KeyBufferSize != 256 || got.ValueBufferSize != 4096 {
		t.Fatalf("default buffer sizes = %d, %d", got.KeyBufferSize, got.ValueBufferSize)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDatabaseOpenErrors(t *testing.T) {
	if _, err := Open(dbPath(t), testOptions()); !errors.Is(err, ErrFile) {
		t.Fatalf("Open missing = %v, want ErrFile", err)
	}

	garbage := dbPath(t)
	if err := os.WriteFile(garbage, bytes.Repeat([]byte("not a database "), 1024), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(garbage, testOptions()); err == nil {
		t.Fatal("Open garbage succeeded")
	}

	mem := testOptions()
	mem.Backend = BackendInMemory
	if _, err := Open("x", mem); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("Open in-memory = %v, want ErrInvalidOptions", err)
	}

	bad := testOptions()
	bad.KeyBufferSize = -1
	if _, err := Create(dbPath(t), bad); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("Create with bad options = %v, want ErrInvalidOptions", err)
	}
}

func TestDatabaseAlreadyOpen(t *testing.T) {
	path := dbPath(t)
	db, err := Create(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := Open(path, testOptions()); !errors.Is(err, ErrDatabaseAlreadyOpen) {
		t.Fatalf("second Open = %v, want ErrDatabaseAlreadyOpen", err)
	}
}

func TestDatabaseCloseWithTransaction(t *testing.T) {
	db := openMemDB(t)

	rtx, err := db.BeginRead()
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); !errors.Is(err, ErrTransactionInUse) {
		t.Fatalf("Close with a live transaction = %v, want ErrTransactionInUse", err)
	}

	// Still usable.
	writeStrings(t, db, "kv", map[string]string{"k": "v"})
	if err := rtx.Close(); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestDatabaseCompact(t *testing.T) {
	path := dbPath(t)
	db, err := Create(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}

	want := make(map[string]string)
	for i := range 2000 {
		want[fmt.Sprintf("key%05d", i)] = strings.Repeat("v", 200)
	}
	writeStrings(t, db, "big", want)

	// Delete most of it so compaction has something to reclaim.
	tx, err := db.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	table, err := OpenTypedTable[string, string](tx, "big")
	if err != nil {
		t.Fatal(err)
	}
	for i := range 1900 {
		key := fmt.Sprintf("key%05d", i)
		if _, err := table.Remove(key); err != nil {
			t.Fatal(err)
		}
		delete(want, key)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	rtx, err := db.BeginRead()
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Compact(); !errors.Is(err, ErrCompaction) {
		t.Fatalf("Compact with a live transaction = %v, want ErrCompaction", err)
	}
	if err := rtx.Close(); err != nil {
		t.Fatal(err)
	}

	if err := db.Compact(); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if diff := cmp.Diff(want, readAll(t, db, "big")); diff != "" {
		t.Fatalf("contents after compaction (-want +got):\n%s", diff)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = Open(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if got := len(readAll(t, db, "big")); got != len(want) {
		t.Fatalf("entries after reopen = %d, want %d", got, len(want))
	}
}

func TestDatabaseCompactInMemory(t *testing.T) {
	db := openMemDB(t)
	if err := db.Compact(); err != nil {
		t.Fatalf("Compact in memory: %v", err)
	}
}

func TestDatabaseNilOptions(t *testing.T) {
	path := dbPath(t)
	db, err := Create(path, nil)
	if err != nil {
		t.Fatalf("Create(nil options): %v", err)
	}
	writeStrings(t, db, "kv", map[string]string{"k": "v"})
	if db.Options().Logger == nil || db.Encoding() == nil {
		t.Fatalf("nil options not defaulted: %+v", db.Options())
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = Open(path, nil)
	if err != nil {
		t.Fatalf("Open(nil options): %v", err)
	}
	defer db.Close()
	if got := readAll(t, db, "kv"); got["k"] != "v" {
		t.Fatalf("after reopen: %v", got)
	}
}

func TestDatabaseCorruption(t *testing.T) {
	path := dbPath(t)
	db, err := Create(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	writeStrings(t, db, "kv", map[string]string{"k": "v"})
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	// Change a stored value behind the engine's back.
	bdb, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = bdb.Update(func(tx *bbolt.Tx) error {
		tables := tx.Bucket([]byte("tables"))
		if tables == nil {
			return errors.New("no tables bucket")
		}
		kv := tables.Bucket([]byte("kv"))
		if kv == nil {
			return errors.New("no kv bucket")
		}
		return kv.Put([]byte("\x01k"), []byte("tampered"))
	})
	if cerr := bdb.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger := logging.NewLogger(&buf, logging.LevelWarn)
	var fatal string
	logger.SetFatalHandler(func(msg string) { fatal = msg })
	opts := testOptions()
	opts.Logger = logger

	if _, err := Open(path, opts); !errors.Is(err, ErrCorruption) {
		t.Fatalf("Open tampered file = %v, want ErrCorruption", err)
	}
	if !strings.Contains(fatal, "[db] open "+path) {
		t.Fatalf("fatal handler got %q", fatal)
	}
	if !strings.Contains(buf.String(), "FATAL [db] open") {
		t.Fatalf("log missing FATAL line:\n%s", buf.String())
	}
}

func TestDatabaseNonDurableFlushedOnClose(t *testing.T) {
	path := dbPath(t)
	db, err := Create(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	tx, err := db.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.SetDurability(DurabilityNone); err != nil {
		t.Fatal(err)
	}
	table, err := OpenTypedTable[string, string](tx, "kv")
	if err != nil {
		t.Fatal(err)
	}
	_ = table.Insert("k", "v")
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if got := readAll(t, db, "kv"); got["k"] != "v" {
		t.Fatalf("non-durable commit not visible: %v", got)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = Open(path, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if got := readAll(t, db, "kv"); got["k"] != "v" {
		t.Fatalf("after reopen: %v", got)
	}
}

func TestDatabaseLogging(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Backend = BackendInMemory
	opts.Logger = NewLogger(&buf, LogLevelDebug)
	db, err := Create("logged", opts)
	if err != nil {
		t.Fatal(err)
	}

	tx, err := db.BeginWrite()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tx.OpenTable("t"); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"INFO [db] created in-memory database logged",
		"DEBUG [txn] write transaction 1 started",
		"WARN [txn] commit of write transaction 1 released 1 open tables and savepoints",
		"DEBUG [txn] write transaction 1 committed",
		"INFO [db] closed logged",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

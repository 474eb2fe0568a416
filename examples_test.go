package cellarkv_test

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aalhour/cellarkv"
)

func ExampleCreate() {
	dir, err := os.MkdirTemp("", "cellarkv-example-*")
	if err != nil {
		panic(err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	db, err := cellarkv.Create(filepath.Join(dir, "example.cellar"), nil)
	if err != nil {
		panic(err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginWrite()
	if err != nil {
		panic(err)
	}
	table, err := cellarkv.OpenTypedTable[string, string](tx, "greetings")
	if err != nil {
		panic(err)
	}
	if err := table.Insert("k", "v"); err != nil {
		panic(err)
	}
	if err := tx.Commit(); err != nil {
		panic(err)
	}

	rtx, err := db.BeginRead()
	if err != nil {
		panic(err)
	}
	defer func() { _ = rtx.Close() }()
	read, err := cellarkv.OpenTypedReadOnlyTable[string, string](rtx, "greetings")
	if err != nil {
		panic(err)
	}
	val, err := read.Get("k")
	if err != nil {
		panic(err)
	}

	fmt.Println(val)
	// Output:
	// v
}

func ExampleTypedReadOnlyTable_RangeInclusive() {
	opts := cellarkv.DefaultOptions()
	opts.Backend = cellarkv.BackendInMemory
	opts.Logger = cellarkv.DiscardLogger
	db, err := cellarkv.Create("numbers", opts)
	if err != nil {
		panic(err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginWrite()
	if err != nil {
		panic(err)
	}
	numbers, err := cellarkv.OpenTypedTable[int64, string](tx, "numbers")
	if err != nil {
		panic(err)
	}
	for i := int64(-2); i <= 5; i++ {
		if err := numbers.Insert(i, fmt.Sprintf("n%d", i)); err != nil {
			panic(err)
		}
	}
	if err := numbers.Close(); err != nil {
		panic(err)
	}
	if err := tx.Commit(); err != nil {
		panic(err)
	}

	rtx, err := db.BeginRead()
	if err != nil {
		panic(err)
	}
	defer func() { _ = rtx.Close() }()
	read, err := cellarkv.OpenTypedReadOnlyTable[int64, string](rtx, "numbers")
	if err != nil {
		panic(err)
	}
	it, err := read.RangeInclusive(-1, 2)
	if err != nil {
		panic(err)
	}
	defer func() { _ = it.Close() }()
	for it.Next() {
		fmt.Println(it.Key(), it.Value())
	}
	// Output:
	// -1 n-1
	// 0 n0
	// 1 n1
	// 2 n2
}

func ExampleWriteTransaction_RestoreSavepoint() {
	opts := &cellarkv.Options{Backend: cellarkv.BackendInMemory, Logger: cellarkv.DiscardLogger}
	db, err := cellarkv.Create("savepoints", opts)
	if err != nil {
		panic(err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginWrite()
	if err != nil {
		panic(err)
	}
	defer func() { _ = tx.Close() }()
	table, err := cellarkv.OpenTypedTable[string, int](tx, "letters")
	if err != nil {
		panic(err)
	}
	_ = table.Insert("a", 1)
	sp, err := tx.EphemeralSavepoint()
	if err != nil {
		panic(err)
	}
	_ = table.Insert("b", 2)
	if err := tx.RestoreSavepoint(sp); err != nil {
		panic(err)
	}

	_, foundA, _ := table.TryGet("a")
	_, foundB, _ := table.TryGet("b")
	fmt.Println(foundA, foundB)
	// Output:
	// true false
}

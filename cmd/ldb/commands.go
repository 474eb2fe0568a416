package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aalhour/cellarkv"
)

type runner struct {
	db  *cellarkv.Database
	cfg *config
	out io.Writer
}

type command struct {
	name  string
	usage string
	help  string
	args  int
	fn    func(r *runner, args []string) error
}

var commands = []command{
	{"tables", "tables", "List tables", 0, (*runner).cmdTables},
	{"scan", "scan", "Scan the entries of --table", 0, (*runner).cmdScan},
	{"get", "get <key>", "Get the value for a key", 1, (*runner).cmdGet},
	{"put", "put <key> <val>", "Put a key-value pair", 2, (*runner).cmdPut},
	{"delete", "delete <key>", "Delete a key", 1, (*runner).cmdDelete},
	{"drop", "drop <table>", "Delete a table", 1, (*runner).cmdDrop},
	{"rename", "rename <old> <new>", "Rename a table", 2, (*runner).cmdRename},
	{"compact", "compact", "Compact the database file", 0, (*runner).cmdCompact},
	{"savepoints", "savepoints", "List persistent savepoints", 0, (*runner).cmdSavepoints},
	{"savepoint", "savepoint", "Create a persistent savepoint", 0, (*runner).cmdSavepoint},
	{"restore", "restore <id>", "Restore a persistent savepoint", 1, (*runner).cmdRestore},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func (r *runner) exec(name string, args []string) error {
	c, ok := lookupCommand(name)
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	if len(args) != c.args {
		return fmt.Errorf("%w: usage: %s", errUsage, c.usage)
	}
	return c.fn(r, args)
}

func (r *runner) formatOutput(data []byte) string {
	if r.cfg.hexOutput {
		return hex.EncodeToString(data)
	}
	// Print as string if printable, else hex
	for _, b := range data {
		if b < 32 || b > 126 {
			return "0x" + hex.EncodeToString(data)
		}
	}
	return string(data)
}

func parseInput(s string) []byte {
	// Try hex decode first (if prefixed with 0x)
	if strings.HasPrefix(s, "0x") {
		decoded, err := hex.DecodeString(s[2:])
		if err == nil {
			return decoded
		}
	}
	return []byte(s)
}

// read runs fn in a read transaction.
func (r *runner) read(fn func(tx *cellarkv.ReadTransaction) error) error {
	tx, err := r.db.BeginRead()
	if err != nil {
		return err
	}
	defer tx.Close()
	return fn(tx)
}

// write runs fn in a write transaction and commits if fn succeeds.
func (r *runner) write(fn func(tx *cellarkv.WriteTransaction) error) error {
	tx, err := r.db.BeginWrite()
	if err != nil {
		return err
	}
	defer tx.Close()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *runner) cmdTables(_ []string) error {
	return r.read(func(tx *cellarkv.ReadTransaction) error {
		names, err := tx.ListTables()
		if err != nil {
			return err
		}
		for _, name := range names {
			t, err := tx.OpenTable(name)
			if err != nil {
				return err
			}
			n, err := t.Len()
			if err != nil {
				return err
			}
			fmt.Fprintf(r.out, "%s\t%d\n", name, n)
			if err := t.Close(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *runner) cmdScan(_ []string) error {
	return r.read(func(tx *cellarkv.ReadTransaction) error {
		t, err := tx.OpenTable(r.cfg.table)
		if err != nil {
			return err
		}
		var from, to []byte
		if r.cfg.from != "" {
			from = parseInput(r.cfg.from)
		}
		if r.cfg.to != "" {
			to = parseInput(r.cfg.to)
		}
		it, err := t.Range(from, to)
		if err != nil {
			return err
		}
		defer it.Close()

		count := 0
		for it.Next() {
			fmt.Fprintf(r.out, "%s => %s\n", r.formatOutput(it.Key()), r.formatOutput(it.Value()))
			count++
			if r.cfg.limit > 0 && count >= r.cfg.limit {
				break
			}
		}
		if err := it.Error(); err != nil {
			return fmt.Errorf("iterator error: %w", err)
		}
		fmt.Fprintf(r.out, "\n(%d entries scanned)\n", count)
		return nil
	})
}

func (r *runner) cmdGet(args []string) error {
	return r.read(func(tx *cellarkv.ReadTransaction) error {
		t, err := tx.OpenTable(r.cfg.table)
		if err != nil {
			return err
		}
		blob, err := t.Get(parseInput(args[0]))
		if err != nil {
			return err
		}
		value, err := blob.Bytes()
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, r.formatOutput(value))
		return nil
	})
}

func (r *runner) cmdPut(args []string) error {
	err := r.write(func(tx *cellarkv.WriteTransaction) error {
		t, err := tx.OpenTable(r.cfg.table)
		if err != nil {
			return err
		}
		return t.Insert(parseInput(args[0]), parseInput(args[1]))
	})
	if err != nil {
		return fmt.Errorf("put failed: %w", err)
	}
	fmt.Fprintln(r.out, "OK")
	return nil
}

func (r *runner) cmdDelete(args []string) error {
	var removed bool
	err := r.write(func(tx *cellarkv.WriteTransaction) error {
		t, err := tx.OpenTable(r.cfg.table)
		if err != nil {
			return err
		}
		removed, err = t.Remove(parseInput(args[0]))
		return err
	})
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if !removed {
		fmt.Fprintln(r.out, "(not found)")
		return nil
	}
	fmt.Fprintln(r.out, "OK")
	return nil
}

func (r *runner) cmdDrop(args []string) error {
	var deleted bool
	err := r.write(func(tx *cellarkv.WriteTransaction) error {
		var err error
		deleted, err = tx.DeleteTable(args[0])
		return err
	})
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("table %q does not exist", args[0])
	}
	fmt.Fprintln(r.out, "OK")
	return nil
}

func (r *runner) cmdRename(args []string) error {
	err := r.write(func(tx *cellarkv.WriteTransaction) error {
		return tx.RenameTable(args[0], args[1])
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, "OK")
	return nil
}

func (r *runner) cmdCompact(_ []string) error {
	if err := r.db.Compact(); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "OK")
	return nil
}

func (r *runner) cmdSavepoints(_ []string) error {
	// Savepoints are only listed by write transactions; this one changes nothing.
	tx, err := r.db.BeginWrite()
	if err != nil {
		return err
	}
	ids, err := tx.ListPersistentSavepoints()
	if abortErr := tx.Abort(); err == nil {
		err = abortErr
	}
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(r.out, id)
	}
	fmt.Fprintf(r.out, "\n(%d savepoints)\n", len(ids))
	return nil
}

func (r *runner) cmdSavepoint(_ []string) error {
	var id uint64
	err := r.write(func(tx *cellarkv.WriteTransaction) error {
		var err error
		id, err = tx.PersistentSavepoint()
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, id)
	return nil
}

func (r *runner) cmdRestore(args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid savepoint id %q", errUsage, args[0])
	}
	err = r.write(func(tx *cellarkv.WriteTransaction) error {
		sp, err := tx.GetPersistentSavepoint(id)
		if err != nil {
			return err
		}
		return tx.RestoreSavepoint(sp)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, "OK")
	return nil
}

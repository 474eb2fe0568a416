package cellarkv

// table.go implements the writable byte-slice table.

import (
	"errors"

	"github.com/aalhour/cellarkv/internal/engine"
	"github.com/aalhour/cellarkv/internal/logging"
)

// Table is a table opened by a WriteTransaction. Keys and values are raw
// bytes; see TypedTable for encoded keys and values.
//
// Writes become visible to other transactions when the owning transaction
// commits.
type Table struct {
	handle   engine.Handle
	name     string
	owner    *children
	blobs    children
	logger   Logger
	disposed bool
}

func newTable(tx *WriteTransaction, h engine.Handle, name string) *Table {
	t := &Table{handle: h, name: name, owner: &tx.children, logger: tx.logger}
	tx.children.add(t)
	return t
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Insert stores value under key, replacing any previous value.
func (t *Table) Insert(key, value []byte) error {
	if t.disposed {
		return disposedError("table")
	}
	return engineError("insert", engine.Insert(t.handle, key, value))
}

// Get returns the value stored under key, or an error matching
// ErrKeyNotFound. Close the blob when done, or leave it to the table.
func (t *Table) Get(key []byte) (*Blob, error) {
	if t.disposed {
		return nil, disposedError("table")
	}
	return get(&t.blobs, t.handle, key)
}

// TryGet is Get that reports a missing key with found == false.
func (t *Table) TryGet(key []byte) (b *Blob, found bool, err error) {
	if t.disposed {
		return nil, false, disposedError("table")
	}
	return tryGet(&t.blobs, t.handle, key)
}

// Remove deletes key and reports whether it was present.
func (t *Table) Remove(key []byte) (bool, error) {
	if t.disposed {
		return false, disposedError("table")
	}
	removed, st := engine.Remove(t.handle, key)
	return removed, engineError("remove", st)
}

// Len returns the number of entries.
func (t *Table) Len() (uint64, error) {
	if t.disposed {
		return 0, disposedError("table")
	}
	n, st := engine.TableLen(t.handle)
	return n, engineError("len", st)
}

// Close releases the table and every blob it returned. Closing twice is
// a no-op.
func (t *Table) Close() error {
	if t.disposed {
		return nil
	}
	t.owner.remove(t)
	return t.release()
}

func (t *Table) release() error {
	if t.disposed {
		return nil
	}
	t.disposed = true
	return releaseTable(t.logger, t.name, &t.blobs, t.handle)
}

// releaseTable frees a table's children and then the table itself.
func releaseTable(logger Logger, name string, kids *children, h engine.Handle) error {
	n, err := kids.releaseAll()
	if n > 0 {
		logger.Warnf("%stable %q closed with %d open results", logging.NSTable, name, n)
	}
	return errors.Join(err, engineError("free table", engine.FreeTable(h)))
}

func get(owner *children, h engine.Handle, key []byte) (*Blob, error) {
	b, found, err := tryGet(owner, h, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, engineError("get", engine.StatusKeyNotFound)
	}
	return b, nil
}

func tryGet(owner *children, h engine.Handle, key []byte) (*Blob, bool, error) {
	bh, data, st := engine.Get(h, key)
	switch st {
	case engine.StatusOK:
		return newBlob(owner, bh, data), true, nil
	case engine.StatusKeyNotFound:
		return nil, false, nil
	default:
		return nil, false, engineError("get", st)
	}
}

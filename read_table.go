package cellarkv

// read_table.go implements the read-only byte-slice table.

import (
	"github.com/aalhour/cellarkv/internal/engine"
)

// ReadOnlyTable is a table opened by a ReadTransaction. It sees the
// snapshot taken when the transaction began.
type ReadOnlyTable struct {
	handle   engine.Handle
	name     string
	owner    *children
	results  children
	logger   Logger
	disposed bool
}

func newReadOnlyTable(tx *ReadTransaction, h engine.Handle, name string) *ReadOnlyTable {
	t := &ReadOnlyTable{handle: h, name: name, owner: &tx.children, logger: tx.logger}
	tx.children.add(t)
	return t
}

// Name returns the table name.
func (t *ReadOnlyTable) Name() string {
	return t.name
}

// Get returns the value stored under key, or an error matching
// ErrKeyNotFound.
func (t *ReadOnlyTable) Get(key []byte) (*Blob, error) {
	if t.disposed {
		return nil, disposedError("read-only table")
	}
	return get(&t.results, t.handle, key)
}

// TryGet is Get that reports a missing key with found == false.
func (t *ReadOnlyTable) TryGet(key []byte) (b *Blob, found bool, err error) {
	if t.disposed {
		return nil, false, disposedError("read-only table")
	}
	return tryGet(&t.results, t.handle, key)
}

// Len returns the number of entries.
func (t *ReadOnlyTable) Len() (uint64, error) {
	if t.disposed {
		return 0, disposedError("read-only table")
	}
	n, st := engine.TableLen(t.handle)
	return n, engineError("len", st)
}

// Iter returns an iterator over every entry.
func (t *ReadOnlyTable) Iter() (*Iterator, error) {
	return t.rangeFlags(nil, nil, 0)
}

// Range returns an iterator over the keys k with start <= k < end. A nil
// bound is unbounded.
func (t *ReadOnlyTable) Range(start, end []byte) (*Iterator, error) {
	return t.rangeFlags(start, end, 0)
}

// RangeInclusive returns an iterator over the keys k with
// start <= k <= end. A nil bound is unbounded.
func (t *ReadOnlyTable) RangeInclusive(start, end []byte) (*Iterator, error) {
	return t.rangeFlags(start, end, engine.RangeEndInclusive)
}

func (t *ReadOnlyTable) rangeFlags(start, end []byte, flags engine.RangeFlags) (*Iterator, error) {
	if t.disposed {
		return nil, disposedError("read-only table")
	}
	h, st := engine.Range(t.handle, start, end, flags)
	if st != engine.StatusOK {
		return nil, engineError("range", st)
	}
	return newIterator(&t.results, h), nil
}

// Close releases the table along with its open iterators and blobs.
// Closing twice is a no-op.
func (t *ReadOnlyTable) Close() error {
	if t.disposed {
		return nil
	}
	t.owner.remove(t)
	return t.release()
}

func (t *ReadOnlyTable) release() error {
	if t.disposed {
		return nil
	}
	t.disposed = true
	return releaseTable(t.logger, t.name, &t.results, t.handle)
}

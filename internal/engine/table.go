package engine

import (
	"bytes"

	"github.com/aalhour/cellarkv/internal/mempool"
)

// table is an open table. Exactly one of wtx and rtx is set.
type table struct {
	name  string
	wtx   *writeTx
	rtx   *readTx
	data  *tableData // read side only; the write side looks up tx.working
	freed bool
}

// contents returns the live data behind t, or false once t or its
// transaction has ended.
func (t *table) contents() (*tableData, bool) {
	if t.freed {
		return nil, false
	}
	if t.wtx != nil {
		if t.wtx.done {
			return nil, false
		}
		td, ok := t.wtx.working.tables[t.name]
		return td, ok
	}
	if t.rtx.done {
		return nil, false
	}
	return t.data, true
}

func writableTable(h Handle) (*table, *tableData, Status) {
	t, ok := lookup[*table](h)
	if !ok || t.wtx == nil {
		return nil, nil, StatusInvalidHandle
	}
	td, ok := t.contents()
	if !ok {
		return nil, nil, StatusInvalidHandle
	}
	return t, td, StatusOK
}

func readableTable(h Handle) (*table, *tableData, Status) {
	t, ok := lookup[*table](h)
	if !ok {
		return nil, nil, StatusInvalidHandle
	}
	td, ok := t.contents()
	if !ok {
		return nil, nil, StatusInvalidHandle
	}
	return t, td, StatusOK
}

// Insert stores value under key, replacing any previous value. Both slices
// are copied.
func Insert(h Handle, key, value []byte) Status {
	t, td, st := writableTable(h)
	if st != StatusOK {
		return st
	}
	td.put(key, value)
	t.wtx.changes.touch(t.name, key)
	return StatusOK
}

// Remove deletes key. It reports whether the key was present.
func Remove(h Handle, key []byte) (bool, Status) {
	t, td, st := writableTable(h)
	if st != StatusOK {
		return false, st
	}
	if !td.remove(key) {
		return false, StatusOK
	}
	t.wtx.changes.touch(t.name, key)
	return true, StatusOK
}

// Get returns a blob holding a copy of the value stored under key. The
// blob must be released with FreeBlob.
func Get(h Handle, key []byte) (Handle, []byte, Status) {
	_, td, st := readableTable(h)
	if st != StatusOK {
		return InvalidHandle, nil, st
	}
	v, ok := td.get(key)
	if !ok {
		return InvalidHandle, nil, StatusKeyNotFound
	}
	b, data := newBlob(v)
	return b, data, StatusOK
}

// TableLen returns the number of entries in the table.
func TableLen(h Handle) (uint64, Status) {
	_, td, st := readableTable(h)
	if st != StatusOK {
		return 0, st
	}
	return uint64(td.tree.Len()), StatusOK
}

// FreeTable releases a table handle. Iterators created from it stop working.
func FreeTable(h Handle) Status {
	t, ok := take[*table](h)
	if !ok {
		return StatusInvalidHandle
	}
	t.freed = true
	if t.wtx != nil {
		if t.wtx.tables[t.name] == t {
			delete(t.wtx.tables, t.name)
		}
		return StatusOK
	}
	delete(t.rtx.tables, t)
	return StatusOK
}

// RangeFlags adjusts the inclusiveness of range bounds. The default range
// includes its start and excludes its end.
type RangeFlags uint8

const (
	RangeStartExclusive RangeFlags = 1 << iota
	RangeEndInclusive
)

type iterator struct {
	table      *table
	data       *tableData
	start, end []byte
	flags      RangeFlags
	last       []byte
	started    bool
	exhausted  bool
}

// Iter iterates a read-only table in key order.
func Iter(h Handle) (Handle, Status) {
	return Range(h, nil, nil, 0)
}

// Range iterates a read-only table over the keys between start and end. A
// nil bound is unbounded; an empty non-nil bound is the empty key.
func Range(h Handle, start, end []byte, flags RangeFlags) (Handle, Status) {
	t, td, st := readableTable(h)
	if st != StatusOK {
		return InvalidHandle, st
	}
	if t.rtx == nil {
		return InvalidHandle, StatusInvalidHandle
	}
	it := &iterator{table: t, data: td, flags: flags}
	if start != nil {
		it.start = bytes.Clone(start)
		if it.start == nil {
			it.start = []byte{}
		}
	}
	if end != nil {
		it.end = bytes.Clone(end)
		if it.end == nil {
			it.end = []byte{}
		}
	}
	return handles.add(it), StatusOK
}

// IterNext returns blobs holding the next key and value. StatusKeyNotFound
// marks the end of the iteration.
func IterNext(h Handle) (keyBlob Handle, key []byte, valueBlob Handle, value []byte, status Status) {
	it, ok := lookup[*iterator](h)
	if !ok {
		return InvalidHandle, nil, InvalidHandle, nil, StatusInvalidHandle
	}
	if _, ok := it.table.contents(); !ok {
		return InvalidHandle, nil, InvalidHandle, nil, StatusInvalidHandle
	}
	if it.exhausted {
		return InvalidHandle, nil, InvalidHandle, nil, StatusKeyNotFound
	}

	e, found := it.advance()
	if !found || !it.beforeEnd(e.key) {
		it.exhausted = true
		return InvalidHandle, nil, InvalidHandle, nil, StatusKeyNotFound
	}
	it.last = e.key
	it.started = true

	keyBlob, key = newBlob(e.key)
	valueBlob, value = newBlob(e.value)
	return keyBlob, key, valueBlob, value, StatusOK
}

func (it *iterator) advance() (entry, bool) {
	var next entry
	found := false
	visit := func(e entry) bool {
		if it.started && bytes.Compare(e.key, it.last) <= 0 {
			return true
		}
		if !it.started && it.flags&RangeStartExclusive != 0 && it.start != nil && bytes.Equal(e.key, it.start) {
			return true
		}
		next, found = e, true
		return false
	}
	switch {
	case it.started:
		it.data.tree.AscendGreaterOrEqual(entry{key: it.last}, visit)
	case it.start != nil:
		it.data.tree.AscendGreaterOrEqual(entry{key: it.start}, visit)
	default:
		it.data.tree.Ascend(visit)
	}
	return next, found
}

func (it *iterator) beforeEnd(key []byte) bool {
	if it.end == nil {
		return true
	}
	c := bytes.Compare(key, it.end)
	return c < 0 || (c == 0 && it.flags&RangeEndInclusive != 0)
}

// FreeIter releases an iterator.
func FreeIter(h Handle) Status {
	if _, ok := take[*iterator](h); !ok {
		return StatusInvalidHandle
	}
	return StatusOK
}

type blob struct {
	data []byte
}

func newBlob(src []byte) (Handle, []byte) {
	b := &blob{data: mempool.GlobalPool.Clone(src)}
	return handles.add(b), b.data
}

// FreeBlob releases a blob returned by Get or IterNext. Its bytes must not
// be used afterwards.
func FreeBlob(h Handle) Status {
	b, ok := take[*blob](h)
	if !ok {
		return StatusInvalidHandle
	}
	mempool.GlobalPool.Put(b.data)
	b.data = nil
	return StatusOK
}

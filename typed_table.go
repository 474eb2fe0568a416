package cellarkv

// typed_table.go implements tables whose keys and values are Go values
// converted by the database's Encoding.

import (
	"iter"

	"github.com/aalhour/cellarkv/internal/engine"
	"github.com/aalhour/cellarkv/internal/logging"
)

// TypedTable is a Table with keys of type K and values of type V.
type TypedTable[K, V any] struct {
	table *Table
	codec *codec
}

// OpenTypedTable opens, creating if needed, a typed table in tx. The
// table uses the database encoding at the time it is opened.
func OpenTypedTable[K, V any](tx *WriteTransaction, name string) (*TypedTable[K, V], error) {
	t, err := tx.OpenTable(name)
	if err != nil {
		return nil, err
	}
	return &TypedTable[K, V]{table: t, codec: tx.db.codec()}, nil
}

// Table returns the underlying byte-slice table.
func (t *TypedTable[K, V]) Table() *Table {
	return t.table
}

// Name returns the table name.
func (t *TypedTable[K, V]) Name() string {
	return t.table.Name()
}

// Insert stores value under key, replacing any previous value.
func (t *TypedTable[K, V]) Insert(key K, value V) error {
	if t.table.disposed {
		return disposedError("table")
	}
	kbuf, k, err := t.codec.encodeKey(key)
	if err != nil {
		return encodingError("encode key", key, err)
	}
	defer release(kbuf)
	vbuf, v, err := t.codec.encodeValue(value)
	if err != nil {
		return encodingError("encode value", value, err)
	}
	defer release(vbuf)
	return t.table.Insert(k, v)
}

// Get returns the value stored under key, or an error matching
// ErrKeyNotFound.
func (t *TypedTable[K, V]) Get(key K) (V, error) {
	v, found, err := t.TryGet(key)
	if err == nil && !found {
		err = engineError("get", engine.StatusKeyNotFound)
	}
	return v, err
}

// TryGet is Get that reports a missing key with found == false.
func (t *TypedTable[K, V]) TryGet(key K) (value V, found bool, err error) {
	if t.table.disposed {
		return value, false, disposedError("table")
	}
	kbuf, k, err := t.codec.encodeKey(key)
	if err != nil {
		return value, false, encodingError("encode key", key, err)
	}
	defer release(kbuf)
	b, found, err := t.table.TryGet(k)
	if err != nil || !found {
		return value, false, err
	}
	return decodeBlob[V](t.codec, b)
}

// Remove deletes key and reports whether it was present.
func (t *TypedTable[K, V]) Remove(key K) (bool, error) {
	if t.table.disposed {
		return false, disposedError("table")
	}
	kbuf, k, err := t.codec.encodeKey(key)
	if err != nil {
		return false, encodingError("encode key", key, err)
	}
	defer release(kbuf)
	return t.table.Remove(k)
}

// Len returns the number of entries.
func (t *TypedTable[K, V]) Len() (uint64, error) {
	return t.table.Len()
}

// Close releases the table. Closing twice is a no-op.
func (t *TypedTable[K, V]) Close() error {
	return t.table.Close()
}

// TypedReadOnlyTable is a ReadOnlyTable with keys of type K and values of
// type V.
type TypedReadOnlyTable[K, V any] struct {
	table *ReadOnlyTable
	codec *codec
}

// OpenTypedReadOnlyTable opens an existing typed table in tx.
func OpenTypedReadOnlyTable[K, V any](tx *ReadTransaction, name string) (*TypedReadOnlyTable[K, V], error) {
	t, err := tx.OpenTable(name)
	if err != nil {
		return nil, err
	}
	return &TypedReadOnlyTable[K, V]{table: t, codec: tx.db.codec()}, nil
}

// Table returns the underlying byte-slice table.
func (t *TypedReadOnlyTable[K, V]) Table() *ReadOnlyTable {
	return t.table
}

// Name returns the table name.
func (t *TypedReadOnlyTable[K, V]) Name() string {
	return t.table.Name()
}

// Get returns the value stored under key, or an error matching
// ErrKeyNotFound.
func (t *TypedReadOnlyTable[K, V]) Get(key K) (V, error) {
	v, found, err := t.TryGet(key)
	if err == nil && !found {
		err = engineError("get", engine.StatusKeyNotFound)
	}
	return v, err
}

// TryGet is Get that reports a missing key with found == false.
func (t *TypedReadOnlyTable[K, V]) TryGet(key K) (value V, found bool, err error) {
	if t.table.disposed {
		return value, false, disposedError("read-only table")
	}
	kbuf, k, err := t.codec.encodeKey(key)
	if err != nil {
		return value, false, encodingError("encode key", key, err)
	}
	defer release(kbuf)
	b, found, err := t.table.TryGet(k)
	if err != nil || !found {
		return value, false, err
	}
	return decodeBlob[V](t.codec, b)
}

// Len returns the number of entries.
func (t *TypedReadOnlyTable[K, V]) Len() (uint64, error) {
	return t.table.Len()
}

// Iter returns an iterator over every entry in key order.
func (t *TypedReadOnlyTable[K, V]) Iter() (*TypedIterator[K, V], error) {
	it, err := t.table.Iter()
	if err != nil {
		return nil, err
	}
	return &TypedIterator[K, V]{it: it, codec: t.codec}, nil
}

// Range returns an iterator over the keys k with start <= k < end.
func (t *TypedReadOnlyTable[K, V]) Range(start, end K) (*TypedIterator[K, V], error) {
	return t.typedRange(start, end, false)
}

// RangeInclusive returns an iterator over the keys k with start <= k <= end.
func (t *TypedReadOnlyTable[K, V]) RangeInclusive(start, end K) (*TypedIterator[K, V], error) {
	return t.typedRange(start, end, true)
}

func (t *TypedReadOnlyTable[K, V]) typedRange(start, end K, inclusive bool) (*TypedIterator[K, V], error) {
	if t.table.disposed {
		return nil, disposedError("read-only table")
	}
	sbuf, s, err := t.codec.encodeKey(start)
	if err != nil {
		return nil, encodingError("encode key", start, err)
	}
	defer release(sbuf)
	ebuf, e, err := t.codec.encodeKey(end)
	if err != nil {
		return nil, encodingError("encode key", end, err)
	}
	defer release(ebuf)

	var it *Iterator
	if inclusive {
		it, err = t.table.RangeInclusive(s, e)
	} else {
		it, err = t.table.Range(s, e)
	}
	if err != nil {
		return nil, err
	}
	return &TypedIterator[K, V]{it: it, codec: t.codec}, nil
}

// All returns a sequence over every entry in key order. The underlying
// iterator is closed when the loop ends. An error stops the sequence and
// is logged; use Iter to observe it.
func (t *TypedReadOnlyTable[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		it, err := t.Iter()
		if err != nil {
			t.codec.logger.Warnf("%siterating %q: %v", logging.NSTable, t.table.name, err)
			return
		}
		defer it.Close()
		for it.Next() {
			if !yield(it.Key(), it.Value()) {
				return
			}
		}
		if err := it.Error(); err != nil {
			t.codec.logger.Warnf("%siterating %q: %v", logging.NSTable, t.table.name, err)
		}
	}
}

// Close releases the table and its open iterators. Closing twice is a
// no-op.
func (t *TypedReadOnlyTable[K, V]) Close() error {
	return t.table.Close()
}

// TypedIterator walks a TypedReadOnlyTable in key order. Keys and values
// are decoded copies and stay valid after the iterator moves on.
type TypedIterator[K, V any] struct {
	it    *Iterator
	codec *codec
	key   K
	value V
	err   error
}

// Next advances to the next entry and decodes it. It returns false at the
// end of the range or on error; check Error afterwards.
func (it *TypedIterator[K, V]) Next() bool {
	if it.err != nil || !it.it.Next() {
		return false
	}
	var k K
	var v V
	if err := it.codec.keys.Decode(it.it.Key(), &k); err != nil {
		it.err = encodingError("decode key", k, err)
		return false
	}
	if err := it.codec.values.Decode(it.it.Value(), &v); err != nil {
		it.err = encodingError("decode value", v, err)
		return false
	}
	it.key, it.value = k, v
	return true
}

// Key returns the current key.
func (it *TypedIterator[K, V]) Key() K {
	return it.key
}

// Value returns the current value.
func (it *TypedIterator[K, V]) Value() V {
	return it.value
}

// Error returns the error that stopped the iteration, if any.
func (it *TypedIterator[K, V]) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.it.Error()
}

// Close releases the iterator. Closing twice is a no-op.
func (it *TypedIterator[K, V]) Close() error {
	return it.it.Close()
}

// decodeBlob decodes and closes b.
func decodeBlob[V any](c *codec, b *Blob) (V, bool, error) {
	var v V
	defer b.Close()
	if err := c.values.Decode(b.data, &v); err != nil {
		return v, false, encodingError("decode value", v, err)
	}
	return v, true, nil
}

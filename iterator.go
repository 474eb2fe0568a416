package cellarkv

// iterator.go implements forward iteration over a read-only table.

import (
	"errors"

	"github.com/aalhour/cellarkv/internal/engine"
)

// Iterator walks a key range of a ReadOnlyTable in ascending key order.
//
//	it, err := table.Iter()
//	...
//	defer it.Close()
//	for it.Next() {
//		use(it.Key(), it.Value())
//	}
//	if err := it.Error(); err != nil {
//		...
//	}
//
// Key and Value are only valid until the next call to Next or Close.
// Callers that keep them must copy.
type Iterator struct {
	handle     engine.Handle
	owner      *children
	key, value *Blob
	err        error
	done       bool
	disposed   bool
}

func newIterator(owner *children, h engine.Handle) *Iterator {
	it := &Iterator{handle: h, owner: owner}
	owner.add(it)
	return it
}

// Next advances to the next entry. It returns false at the end of the
// range or on error; check Error afterwards.
func (it *Iterator) Next() bool {
	if it.disposed {
		it.err = disposedError("iterator")
		return false
	}
	if it.done {
		return false
	}
	if err := it.releaseStep(); err != nil {
		it.fail(err)
		return false
	}
	kh, k, vh, v, st := engine.IterNext(it.handle)
	switch st {
	case engine.StatusOK:
		it.key = newBlob(nil, kh, k)
		it.value = newBlob(nil, vh, v)
		return true
	case engine.StatusKeyNotFound:
		it.done = true
		return false
	default:
		it.fail(engineError("iterator next", st))
		return false
	}
}

func (it *Iterator) fail(err error) {
	it.err = err
	it.done = true
}

// Key returns the current key, or nil when not positioned on an entry.
func (it *Iterator) Key() []byte {
	if it.disposed || it.key == nil {
		return nil
	}
	return it.key.data
}

// Value returns the current value, or nil when not positioned on an entry.
func (it *Iterator) Value() []byte {
	if it.disposed || it.value == nil {
		return nil
	}
	return it.value.data
}

// Error returns the error that stopped the iteration, if any.
func (it *Iterator) Error() error {
	return it.err
}

// Close releases the iterator. Closing twice is a no-op.
func (it *Iterator) Close() error {
	if it.disposed {
		return nil
	}
	it.owner.remove(it)
	return it.release()
}

func (it *Iterator) release() error {
	if it.disposed {
		return nil
	}
	stepErr := it.releaseStep()
	it.disposed = true
	return errors.Join(stepErr, engineError("free iterator", engine.FreeIter(it.handle)))
}

// releaseStep frees the blobs of the current entry.
func (it *Iterator) releaseStep() error {
	var errs []error
	if it.key != nil {
		errs = append(errs, it.key.release())
		it.key = nil
	}
	if it.value != nil {
		errs = append(errs, it.value.release())
		it.value = nil
	}
	return errors.Join(errs...)
}

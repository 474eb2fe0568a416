// Package engine is the embedded storage engine behind cellarkv.
//
// The package is used through a flat, handle-based call surface: every
// resource (database, transaction, table, iterator, savepoint, value blob)
// is addressed by an opaque Handle and every call reports a Status. Names
// and paths are NUL-terminated UTF-8 byte strings. Callers own the handles
// they receive and must release each one exactly once through the matching
// Free function; a released handle is never reused.
//
// Tables are ordered copy-on-write B-trees (github.com/google/btree). Read
// transactions see a lazily cloned snapshot of the last commit. The single
// write transaction works on its own clone, and savepoints are further clones
// of that working state. The file backend persists commits to bbolt.
package engine

import "sync"

// Handle is an opaque reference to a live engine resource.
type Handle uint64

// InvalidHandle is never assigned to a resource.
const InvalidHandle Handle = 0

// Status is the result code of every engine call.
type Status int32

const (
	StatusOK                  Status = 0
	StatusFileError           Status = 1
	StatusDatabaseAlreadyOpen Status = 2
	StatusUpgradeRequired     Status = 4
	StatusStorageError        Status = 5
	StatusCompaction          Status = 11
	StatusTableDoesNotExist   Status = 25
	StatusTableExists         Status = 26
	StatusTableAlreadyOpen    Status = 27
	StatusTransactionInUse    Status = 41
	StatusTableStillOpen      Status = 42
	StatusInvalidSavepoint    Status = 51
	StatusSavepointNotFound   Status = 52
	StatusKeyNotFound         Status = 100
	StatusInvalidHandle       Status = 101
	StatusInvalidArgument     Status = 102
	StatusCorruption          Status = 103
)

// String returns a short description of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFileError:
		return "file error"
	case StatusDatabaseAlreadyOpen:
		return "database already open"
	case StatusUpgradeRequired:
		return "file format upgrade required"
	case StatusStorageError:
		return "storage error"
	case StatusCompaction:
		return "compaction failed"
	case StatusTableDoesNotExist:
		return "table does not exist"
	case StatusTableExists:
		return "table exists"
	case StatusTableAlreadyOpen:
		return "table already open"
	case StatusTransactionInUse:
		return "transaction still in use"
	case StatusTableStillOpen:
		return "table still open"
	case StatusInvalidSavepoint:
		return "invalid savepoint"
	case StatusSavepointNotFound:
		return "savepoint not found"
	case StatusKeyNotFound:
		return "key not found"
	case StatusInvalidHandle:
		return "invalid handle"
	case StatusInvalidArgument:
		return "invalid argument"
	case StatusCorruption:
		return "corruption"
	default:
		return "unknown status"
	}
}

// registry maps handles to the resources they name.
type registry struct {
	mu      sync.Mutex
	next    Handle
	objects map[Handle]any
}

var handles = &registry{objects: make(map[Handle]any)}

func (r *registry) add(obj any) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.objects[r.next] = obj
	return r.next
}

// lookup returns the resource behind h if it has type T.
func lookup[T any](h Handle) (T, bool) {
	handles.mu.Lock()
	obj, ok := handles.objects[h]
	handles.mu.Unlock()
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := obj.(T)
	return t, ok
}

// take removes h from the registry if it names a resource of type T.
func take[T any](h Handle) (T, bool) {
	handles.mu.Lock()
	defer handles.mu.Unlock()
	obj, ok := handles.objects[h]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := obj.(T)
	if ok {
		delete(handles.objects, h)
	}
	return t, ok
}

// LiveHandles reports the number of handles that have not been released.
func LiveHandles() int {
	handles.mu.Lock()
	defer handles.mu.Unlock()
	return len(handles.objects)
}

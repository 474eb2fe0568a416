package cellarkv

// errors.go defines the error values returned by the client.
//
// Errors fall into five kinds:
//   - use of a released resource (ErrDisposed)
//   - a failure reported by the engine (*EngineError, matching the sentinels below)
//   - a missing key (ErrKeyNotFound)
//   - a key or value that could not be encoded or decoded (ErrEncoding)
//   - a key or value type no encoding supports (ErrUnsupportedType)

import (
	"errors"
	"fmt"

	"github.com/aalhour/cellarkv/internal/engine"
)

var (
	// ErrDisposed is returned by every operation on a released resource.
	ErrDisposed = errors.New("cellar: resource already released")

	// ErrKeyNotFound is returned by Get when the key is absent.
	ErrKeyNotFound = errors.New("cellar: key not found")

	ErrFile                = errors.New("cellar: file error")
	ErrDatabaseAlreadyOpen = errors.New("cellar: database already open")
	ErrUpgradeRequired     = errors.New("cellar: file format upgrade required")
	ErrStorage             = errors.New("cellar: storage error")
	ErrCompaction          = errors.New("cellar: compaction failed")
	ErrTableNotFound       = errors.New("cellar: table does not exist")
	ErrTableExists         = errors.New("cellar: table already exists")
	ErrTableAlreadyOpen    = errors.New("cellar: table already open")
	ErrTransactionInUse    = errors.New("cellar: transactions still open")
	ErrTableStillOpen      = errors.New("cellar: table still open")
	ErrInvalidSavepoint    = errors.New("cellar: invalid savepoint")
	ErrSavepointNotFound   = errors.New("cellar: savepoint not found")
	ErrInvalidHandle       = errors.New("cellar: invalid handle")
	ErrInvalidArgument     = errors.New("cellar: invalid argument")
	ErrCorruption          = errors.New("cellar: corruption detected")

	// ErrInvalidOptions is returned for options that fail validation.
	ErrInvalidOptions = errors.New("cellar: invalid options")

	// ErrEncoding is the parent of every encode and decode failure.
	ErrEncoding = errors.New("cellar: encoding failed")
	// ErrValueTooLarge is returned when a value does not fit the maximum encoded size.
	ErrValueTooLarge = fmt.Errorf("%w: value exceeds the maximum encoded size", ErrEncoding)
	// ErrSizeMismatch is returned when stored bytes have the wrong width for the type.
	ErrSizeMismatch = fmt.Errorf("%w: stored size does not match the type", ErrEncoding)

	// ErrUnsupportedType is returned for a key or value type the encoding cannot handle.
	ErrUnsupportedType = errors.New("cellar: unsupported type")
)

var statusErrors = map[engine.Status]error{
	engine.StatusFileError:           ErrFile,
	engine.StatusDatabaseAlreadyOpen: ErrDatabaseAlreadyOpen,
	engine.StatusUpgradeRequired:     ErrUpgradeRequired,
	engine.StatusStorageError:        ErrStorage,
	engine.StatusCompaction:          ErrCompaction,
	engine.StatusTableDoesNotExist:   ErrTableNotFound,
	engine.StatusTableExists:         ErrTableExists,
	engine.StatusTableAlreadyOpen:    ErrTableAlreadyOpen,
	engine.StatusTransactionInUse:    ErrTransactionInUse,
	engine.StatusTableStillOpen:      ErrTableStillOpen,
	engine.StatusInvalidSavepoint:    ErrInvalidSavepoint,
	engine.StatusSavepointNotFound:   ErrSavepointNotFound,
	engine.StatusKeyNotFound:         ErrKeyNotFound,
	engine.StatusInvalidHandle:       ErrInvalidHandle,
	engine.StatusInvalidArgument:     ErrInvalidArgument,
	engine.StatusCorruption:          ErrCorruption,
}

// EngineError is a failure reported by the storage engine.
// It matches the sentinel for its code with errors.Is.
type EngineError struct {
	Op      string
	Code    int32
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("cellar: %s: %s (code %d)", e.Op, e.Message, e.Code)
}

func (e *EngineError) Unwrap() error {
	return statusErrors[engine.Status(e.Code)]
}

// engineError converts a non-OK status into an *EngineError.
func engineError(op string, st engine.Status) error {
	if st == engine.StatusOK {
		return nil
	}
	return &EngineError{Op: op, Code: int32(st), Message: st.String()}
}

// EncodingError reports a key or value that could not be encoded or
// decoded. Op is "encode key", "encode value", "decode key" or
// "decode value".
type EncodingError struct {
	Op   string
	Type string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cellar: %s %s: %v", e.Op, e.Type, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func encodingError(op string, v any, err error) error {
	if err == nil {
		return nil
	}
	return &EncodingError{Op: op, Type: fmt.Sprintf("%T", v), Err: err}
}

func disposedError(resource string) error {
	return fmt.Errorf("%w: %s", ErrDisposed, resource)
}

func unsupportedType(v any) error {
	return fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

func sizeMismatch(out any, want, got int) error {
	return fmt.Errorf("%w: %T needs %d bytes, got %d", ErrSizeMismatch, out, want, got)
}

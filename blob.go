package cellarkv

// blob.go implements engine-owned value buffers.

import (
	"github.com/aalhour/cellarkv/internal/engine"
)

// Blob is a value returned by Get. Its bytes belong to the engine and are
// valid until the Blob, its table, or its transaction is closed.
type Blob struct {
	handle   engine.Handle
	data     []byte
	owner    *children
	disposed bool
}

func newBlob(owner *children, h engine.Handle, data []byte) *Blob {
	b := &Blob{handle: h, data: data, owner: owner}
	if owner != nil {
		owner.add(b)
	}
	return b
}

// Bytes returns the value. The slice must not be used after Close.
func (b *Blob) Bytes() ([]byte, error) {
	if b.disposed {
		return nil, disposedError("blob")
	}
	return b.data, nil
}

// Len returns the length of the value, or 0 after Close.
func (b *Blob) Len() int {
	if b.disposed {
		return 0
	}
	return len(b.data)
}

// Close releases the value. Closing twice is a no-op.
func (b *Blob) Close() error {
	if b.disposed {
		return nil
	}
	b.owner.remove(b)
	return b.release()
}

func (b *Blob) release() error {
	if b.disposed {
		return nil
	}
	b.disposed = true
	b.data = nil
	return engineError("free blob", engine.FreeBlob(b.handle))
}

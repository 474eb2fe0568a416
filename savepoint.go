package cellarkv

// savepoint.go implements ephemeral and persistent savepoints.
//
// An ephemeral savepoint lives only inside the write transaction that
// created it. A persistent savepoint is stored under an id that later
// write transactions can look up until it is deleted. Restoring either
// kind rewinds every table change, including created, deleted and renamed
// tables, and invalidates the savepoints taken after it.

import (
	"github.com/aalhour/cellarkv/internal/engine"
	"github.com/aalhour/cellarkv/internal/logging"
)

// Savepoint is a handle to a captured transaction state.
type Savepoint struct {
	handle     engine.Handle
	tx         *WriteTransaction
	id         uint64
	persistent bool
	disposed   bool
}

func newSavepoint(tx *WriteTransaction, h engine.Handle, id uint64, persistent bool) *Savepoint {
	sp := &Savepoint{handle: h, tx: tx, id: id, persistent: persistent}
	tx.children.add(sp)
	return sp
}

// ID returns the persistent savepoint id, or 0 for an ephemeral savepoint.
func (sp *Savepoint) ID() uint64 {
	return sp.id
}

// Persistent reports whether the savepoint outlives its transaction.
func (sp *Savepoint) Persistent() bool {
	return sp.persistent
}

// Close releases the handle. A persistent savepoint stays stored; use
// DeletePersistentSavepoint to remove it. Closing twice is a no-op.
func (sp *Savepoint) Close() error {
	if sp.disposed {
		return nil
	}
	sp.tx.children.remove(sp)
	return sp.release()
}

func (sp *Savepoint) release() error {
	if sp.disposed {
		return nil
	}
	sp.disposed = true
	return engineError("free savepoint", engine.FreeSavepoint(sp.handle))
}

// EphemeralSavepoint captures the transaction's current state.
func (tx *WriteTransaction) EphemeralSavepoint() (*Savepoint, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	h, st := engine.WriteTxEphemeralSavepoint(tx.handle)
	if st != engine.StatusOK {
		return nil, engineError("ephemeral savepoint", st)
	}
	return newSavepoint(tx, h, 0, false), nil
}

// PersistentSavepoint captures the transaction's current state under a
// new id. The savepoint is stored when the transaction commits.
func (tx *WriteTransaction) PersistentSavepoint() (uint64, error) {
	if err := tx.check(); err != nil {
		return 0, err
	}
	id, st := engine.WriteTxPersistentSavepoint(tx.handle)
	if st != engine.StatusOK {
		return 0, engineError("persistent savepoint", st)
	}
	tx.logger.Debugf("%swrite transaction %d created persistent savepoint %d", logging.NSSavepoint, tx.id, id)
	return id, nil
}

// GetPersistentSavepoint returns a handle to a persistent savepoint, or an
// error matching ErrSavepointNotFound.
func (tx *WriteTransaction) GetPersistentSavepoint(id uint64) (*Savepoint, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	h, st := engine.WriteTxGetPersistentSavepoint(tx.handle, id)
	if st != engine.StatusOK {
		return nil, engineError("get persistent savepoint", st)
	}
	return newSavepoint(tx, h, id, true), nil
}

// DeletePersistentSavepoint deletes a persistent savepoint and reports
// whether it existed.
func (tx *WriteTransaction) DeletePersistentSavepoint(id uint64) (bool, error) {
	if err := tx.check(); err != nil {
		return false, err
	}
	deleted, st := engine.WriteTxDeletePersistentSavepoint(tx.handle, id)
	if st != engine.StatusOK {
		return false, engineError("delete persistent savepoint", st)
	}
	return deleted, nil
}

// ListPersistentSavepoints returns the ids of the persistent savepoints in
// ascending order.
func (tx *WriteTransaction) ListPersistentSavepoints() ([]uint64, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	ids, st := engine.WriteTxListPersistentSavepoints(tx.handle)
	return ids, engineError("list persistent savepoints", st)
}

// RestoreSavepoint rewinds the transaction to sp. Open tables stay usable
// and reflect the restored contents. Savepoints taken after sp become
// invalid.
func (tx *WriteTransaction) RestoreSavepoint(sp *Savepoint) error {
	if err := tx.check(); err != nil {
		return err
	}
	if sp == nil || sp.disposed {
		return disposedError("savepoint")
	}
	if st := engine.WriteTxRestoreSavepoint(tx.handle, sp.handle); st != engine.StatusOK {
		return engineError("restore savepoint", st)
	}
	if sp.persistent {
		tx.logger.Infof("%swrite transaction %d restored persistent savepoint %d", logging.NSSavepoint, tx.id, sp.id)
	}
	return nil
}

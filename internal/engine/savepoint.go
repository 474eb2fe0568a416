package engine

import (
	"maps"
	"slices"
)

// savepoint is a frozen copy of a write transaction's state.
//
// Ephemeral savepoints also carry the change set at the time they were
// taken, so restoring one rewinds exactly what the transaction did since.
// A savepoint fetched by persistent id has no change set; restoring it
// rewrites every table.
type savepoint struct {
	tx           *writeTx
	seq          uint64
	state        *state
	changes      *changeSet
	persistentID uint64
	invalid      bool
}

func (tx *writeTx) newSavepoint(st *state, changes *changeSet, id uint64) Handle {
	tx.seq++
	sp := &savepoint{tx: tx, seq: tx.seq, state: st, changes: changes, persistentID: id}
	tx.savepoints[sp] = struct{}{}
	return handles.add(sp)
}

// WriteTxEphemeralSavepoint captures the current state of the transaction.
func WriteTxEphemeralSavepoint(h Handle) (Handle, Status) {
	tx, st := liveWriteTx(h)
	if st != StatusOK {
		return InvalidHandle, st
	}
	return tx.newSavepoint(tx.working.clone(), tx.changes.clone(), 0), StatusOK
}

// WriteTxRestoreSavepoint rewinds the transaction to sp. Savepoints taken
// after sp become invalid. Open tables stay open and see the restored
// contents; an open table that did not exist at sp is restored empty.
func WriteTxRestoreSavepoint(h Handle, sp Handle) Status {
	tx, st := liveWriteTx(h)
	if st != StatusOK {
		return st
	}
	s, ok := lookup[*savepoint](sp)
	if !ok {
		return StatusInvalidHandle
	}
	if s.tx != tx || s.invalid {
		return StatusInvalidSavepoint
	}

	tx.db.mu.Lock()
	working := s.state.clone()
	tx.db.mu.Unlock()

	if s.changes != nil {
		tx.changes = s.changes.clone()
	} else {
		for name := range tx.db.committedNames() {
			tx.changes.rewrite(name)
		}
		for name := range working.tables {
			tx.changes.rewrite(name)
		}
	}
	for name := range tx.tables {
		if _, ok := working.tables[name]; !ok {
			working.tables[name] = newTableData()
			tx.changes.rewrite(name)
		}
	}
	tx.working = working

	for other := range tx.savepoints {
		if other.seq > s.seq {
			other.invalid = true
		}
	}
	return StatusOK
}

func (db *database) committedNames() map[string]struct{} {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make(map[string]struct{}, len(db.committed.tables))
	for name := range db.committed.tables {
		out[name] = struct{}{}
	}
	return out
}

// WriteTxPersistentSavepoint captures the current state under a new id.
// The savepoint becomes durable when the transaction commits.
func WriteTxPersistentSavepoint(h Handle) (uint64, Status) {
	tx, st := liveWriteTx(h)
	if st != StatusOK {
		return 0, st
	}
	db := tx.db
	db.mu.Lock()
	id := db.nextSavepointID
	db.nextSavepointID++
	db.mu.Unlock()

	tx.changes.addSavepoint(id, tx.working.clone())
	return id, StatusOK
}

// persistentState returns the persistent savepoint id as seen by tx.
func (tx *writeTx) persistentState(id uint64) (*state, bool) {
	if st, ok := tx.changes.savepointsAdded[id]; ok {
		return st, true
	}
	if _, deleted := tx.changes.savepointsDeleted[id]; deleted {
		return nil, false
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	st, ok := tx.db.savepoints[id]
	return st, ok
}

// WriteTxGetPersistentSavepoint returns a savepoint handle for id.
func WriteTxGetPersistentSavepoint(h Handle, id uint64) (Handle, Status) {
	tx, st := liveWriteTx(h)
	if st != StatusOK {
		return InvalidHandle, st
	}
	saved, ok := tx.persistentState(id)
	if !ok {
		return InvalidHandle, StatusSavepointNotFound
	}
	return tx.newSavepoint(saved, nil, id), StatusOK
}

// WriteTxDeletePersistentSavepoint deletes id. It reports false if no such
// savepoint existed.
func WriteTxDeletePersistentSavepoint(h Handle, id uint64) (bool, Status) {
	tx, st := liveWriteTx(h)
	if st != StatusOK {
		return false, st
	}
	if _, ok := tx.persistentState(id); !ok {
		return false, StatusOK
	}
	tx.changes.deleteSavepoint(id)
	return true, StatusOK
}

// WriteTxListPersistentSavepoints returns the persistent savepoint ids
// visible to the transaction in ascending order.
func WriteTxListPersistentSavepoints(h Handle) ([]uint64, Status) {
	tx, st := liveWriteTx(h)
	if st != StatusOK {
		return nil, st
	}
	tx.db.mu.Lock()
	ids := maps.Clone(tx.db.savepoints)
	tx.db.mu.Unlock()

	for id := range tx.changes.savepointsDeleted {
		delete(ids, id)
	}
	for id, st := range tx.changes.savepointsAdded {
		ids[id] = st
	}
	return slices.Sorted(maps.Keys(ids)), StatusOK
}

// FreeSavepoint releases a savepoint handle. Persistent savepoints are not
// deleted by this.
func FreeSavepoint(h Handle) Status {
	sp, ok := take[*savepoint](h)
	if !ok {
		return StatusInvalidHandle
	}
	delete(sp.tx.savepoints, sp)
	return StatusOK
}

package engine

import (
	"github.com/aalhour/cellarkv/internal/cstr"
)

// Durability controls when a commit reaches stable storage.
type Durability int

const (
	// DurabilityNone keeps the commit in memory until the next durable
	// commit, compaction, or close persists it.
	DurabilityNone Durability = iota
	// DurabilityEventual writes the commit without waiting for fsync.
	DurabilityEventual
	// DurabilityImmediate writes and syncs the commit before returning.
	DurabilityImmediate
)

// String returns the name of the durability level.
func (d Durability) String() string {
	switch d {
	case DurabilityNone:
		return "none"
	case DurabilityEventual:
		return "eventual"
	case DurabilityImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

type writeTx struct {
	db          *database
	working     *state
	changes     *changeSet
	durability  Durability
	twoPhase    bool
	quickRepair bool

	// Live children. A transaction cannot end cleanly while any remain.
	tables     map[string]*table
	savepoints map[*savepoint]struct{}

	seq  uint64
	done bool
}

type readTx struct {
	db       *database
	snapshot *state
	tables   map[*table]struct{}
	done     bool
}

func liveWriteTx(h Handle) (*writeTx, Status) {
	tx, ok := lookup[*writeTx](h)
	if !ok || tx.done {
		return nil, StatusInvalidHandle
	}
	return tx, StatusOK
}

func tableName(name []byte) (string, Status) {
	s, err := cstr.Decode(name)
	if err != nil || s == "" {
		return "", StatusInvalidArgument
	}
	return s, StatusOK
}

// WriteTxSetDurability sets the durability of the coming commit.
func WriteTxSetDurability(h Handle, d Durability) Status {
	tx, st := liveWriteTx(h)
	if st != StatusOK {
		return st
	}
	if d < DurabilityNone || d > DurabilityImmediate {
		return StatusInvalidArgument
	}
	tx.durability = d
	return StatusOK
}

// WriteTxSetTwoPhaseCommit makes the commit write a pending header first
// and finalize it in a second step.
func WriteTxSetTwoPhaseCommit(h Handle, enabled bool) Status {
	tx, st := liveWriteTx(h)
	if st != StatusOK {
		return st
	}
	tx.twoPhase = enabled
	return StatusOK
}

// WriteTxSetQuickRepair makes the commit store per-table digests.
func WriteTxSetQuickRepair(h Handle, enabled bool) Status {
	tx, st := liveWriteTx(h)
	if st != StatusOK {
		return st
	}
	tx.quickRepair = enabled
	return StatusOK
}

// WriteTxOpenTable opens a table for writing, creating it if missing.
// A table can be open at most once per write transaction.
func WriteTxOpenTable(h Handle, name []byte) (Handle, Status) {
	tx, st := liveWriteTx(h)
	if st != StatusOK {
		return InvalidHandle, st
	}
	n, st := tableName(name)
	if st != StatusOK {
		return InvalidHandle, st
	}
	if _, open := tx.tables[n]; open {
		return InvalidHandle, StatusTableAlreadyOpen
	}
	if _, ok := tx.working.tables[n]; !ok {
		tx.working.tables[n] = newTableData()
		tx.changes.rewrite(n)
	}
	t := &table{name: n, wtx: tx}
	tx.tables[n] = t
	return handles.add(t), StatusOK
}

// WriteTxDeleteTable deletes a table. It reports false if none existed.
func WriteTxDeleteTable(h Handle, name []byte) (bool, Status) {
	tx, st := liveWriteTx(h)
	if st != StatusOK {
		return false, st
	}
	n, st := tableName(name)
	if st != StatusOK {
		return false, st
	}
	if _, open := tx.tables[n]; open {
		return false, StatusTableAlreadyOpen
	}
	if _, ok := tx.working.tables[n]; !ok {
		return false, StatusOK
	}
	delete(tx.working.tables, n)
	tx.changes.rewrite(n)
	return true, StatusOK
}

// WriteTxRenameTable renames a table. Neither name may be open.
func WriteTxRenameTable(h Handle, oldName, newName []byte) Status {
	tx, st := liveWriteTx(h)
	if st != StatusOK {
		return st
	}
	from, st := tableName(oldName)
	if st != StatusOK {
		return st
	}
	to, st := tableName(newName)
	if st != StatusOK {
		return st
	}
	if _, open := tx.tables[from]; open {
		return StatusTableAlreadyOpen
	}
	if _, open := tx.tables[to]; open {
		return StatusTableAlreadyOpen
	}
	td, ok := tx.working.tables[from]
	if !ok {
		return StatusTableDoesNotExist
	}
	if _, exists := tx.working.tables[to]; exists {
		return StatusTableExists
	}
	delete(tx.working.tables, from)
	tx.working.tables[to] = td
	tx.changes.rewrite(from)
	tx.changes.rewrite(to)
	return StatusOK
}

// WriteTxListTables returns the table names visible to the transaction, sorted.
func WriteTxListTables(h Handle) ([]string, Status) {
	tx, st := liveWriteTx(h)
	if st != StatusOK {
		return nil, st
	}
	return tx.working.names(), StatusOK
}

// WriteTxCommit commits the transaction. The handle is consumed whatever
// the outcome; if tables or savepoints are still open the transaction is
// aborted and StatusTableStillOpen is returned.
func WriteTxCommit(h Handle) Status {
	tx, ok := take[*writeTx](h)
	if !ok {
		return StatusInvalidHandle
	}
	return tx.end(true)
}

// WriteTxAbort discards the transaction. The handle is consumed.
func WriteTxAbort(h Handle) Status {
	tx, ok := take[*writeTx](h)
	if !ok {
		return StatusInvalidHandle
	}
	return tx.end(false)
}

func (tx *writeTx) end(commit bool) Status {
	db := tx.db
	db.mu.Lock()
	defer func() {
		tx.done = true
		db.liveTxs--
		db.mu.Unlock()
		<-db.writeSlot
	}()
	if len(tx.tables) > 0 || len(tx.savepoints) > 0 {
		return StatusTableStillOpen
	}
	if !commit {
		return StatusOK
	}
	return db.commitLocked(tx)
}

// ReadTxOpenTable opens an existing table for reading.
func ReadTxOpenTable(h Handle, name []byte) (Handle, Status) {
	tx, ok := lookup[*readTx](h)
	if !ok || tx.done {
		return InvalidHandle, StatusInvalidHandle
	}
	n, st := tableName(name)
	if st != StatusOK {
		return InvalidHandle, st
	}
	td, ok := tx.snapshot.tables[n]
	if !ok {
		return InvalidHandle, StatusTableDoesNotExist
	}
	t := &table{name: n, rtx: tx, data: td}
	tx.tables[t] = struct{}{}
	return handles.add(t), StatusOK
}

// ReadTxListTables returns the table names in the snapshot, sorted.
func ReadTxListTables(h Handle) ([]string, Status) {
	tx, ok := lookup[*readTx](h)
	if !ok || tx.done {
		return nil, StatusInvalidHandle
	}
	return tx.snapshot.names(), StatusOK
}

// FreeReadTransaction ends a read transaction. The handle is consumed even
// when StatusTableStillOpen is returned.
func FreeReadTransaction(h Handle) Status {
	tx, ok := take[*readTx](h)
	if !ok {
		return StatusInvalidHandle
	}
	db := tx.db
	db.mu.Lock()
	defer db.mu.Unlock()
	tx.done = true
	db.liveTxs--
	if len(tx.tables) > 0 {
		return StatusTableStillOpen
	}
	return StatusOK
}

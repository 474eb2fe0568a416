package cellarkv

// write_transaction.go implements write transactions.
//
// A write transaction is open until Commit or Abort. Both release every
// table and savepoint opened under the transaction, newest first, before
// the engine ends it, and both consume the transaction even when they
// fail. Close aborts a transaction that is still open.

import (
	"errors"

	"github.com/aalhour/cellarkv/internal/cstr"
	"github.com/aalhour/cellarkv/internal/engine"
	"github.com/aalhour/cellarkv/internal/logging"
)

// WriteTransaction modifies the database. Only one write transaction is
// live at a time; Database.BeginWrite blocks until the previous one ends.
type WriteTransaction struct {
	handle   engine.Handle
	id       uint64
	children children
	logger   Logger
	db       *Database
	disposed bool
}

func (tx *WriteTransaction) check() error {
	if tx.disposed {
		return disposedError("write transaction")
	}
	return nil
}

// SetDurability sets when the commit reaches disk.
func (tx *WriteTransaction) SetDurability(d Durability) error {
	if err := tx.check(); err != nil {
		return err
	}
	return engineError("set durability", engine.WriteTxSetDurability(tx.handle, d.engine()))
}

// SetTwoPhaseCommit makes the commit write a pending header first and
// finalize it in a second step, so an interrupted commit is detected and
// completed on the next open.
func (tx *WriteTransaction) SetTwoPhaseCommit(enabled bool) error {
	if err := tx.check(); err != nil {
		return err
	}
	return engineError("set two-phase commit", engine.WriteTxSetTwoPhaseCommit(tx.handle, enabled))
}

// SetQuickRepair makes the commit store per-table digests so that the
// next open can verify tables without rehashing the whole file.
func (tx *WriteTransaction) SetQuickRepair(enabled bool) error {
	if err := tx.check(); err != nil {
		return err
	}
	return engineError("set quick repair", engine.WriteTxSetQuickRepair(tx.handle, enabled))
}

// OpenTable opens a table by name, creating it if it does not exist.
func (tx *WriteTransaction) OpenTable(name string) (*Table, error) {
	cs := cstr.FromString(name)
	defer cs.Release()
	return tx.openTable(cs, name)
}

// OpenTableUTF8 is OpenTable with the name given as UTF-8 bytes.
func (tx *WriteTransaction) OpenTableUTF8(name []byte) (*Table, error) {
	cs := cstr.FromBytes(name)
	defer cs.Release()
	return tx.openTable(cs, string(name))
}

func (tx *WriteTransaction) openTable(cs cstr.String, name string) (*Table, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	h, st := engine.WriteTxOpenTable(tx.handle, cs.Bytes())
	if st != engine.StatusOK {
		return nil, engineError("open table "+name, st)
	}
	return newTable(tx, h, name), nil
}

// DeleteTable deletes a table and reports whether it existed. The table
// must not be open.
func (tx *WriteTransaction) DeleteTable(name string) (bool, error) {
	cs := cstr.FromString(name)
	defer cs.Release()
	return tx.deleteTable(cs, name)
}

// DeleteTableUTF8 is DeleteTable with the name given as UTF-8 bytes.
func (tx *WriteTransaction) DeleteTableUTF8(name []byte) (bool, error) {
	cs := cstr.FromBytes(name)
	defer cs.Release()
	return tx.deleteTable(cs, string(name))
}

func (tx *WriteTransaction) deleteTable(cs cstr.String, name string) (bool, error) {
	if err := tx.check(); err != nil {
		return false, err
	}
	deleted, st := engine.WriteTxDeleteTable(tx.handle, cs.Bytes())
	if st != engine.StatusOK {
		return false, engineError("delete table "+name, st)
	}
	if deleted {
		tx.logger.Debugf("%sdeleted table %q", logging.NSTable, name)
	}
	return deleted, nil
}

// RenameTable renames a table. Neither name may be open.
func (tx *WriteTransaction) RenameTable(oldName, newName string) error {
	from := cstr.FromString(oldName)
	defer from.Release()
	to := cstr.FromString(newName)
	defer to.Release()
	return tx.renameTable(from, to, oldName, newName)
}

// RenameTableUTF8 is RenameTable with the names given as UTF-8 bytes.
func (tx *WriteTransaction) RenameTableUTF8(oldName, newName []byte) error {
	from := cstr.FromBytes(oldName)
	defer from.Release()
	to := cstr.FromBytes(newName)
	defer to.Release()
	return tx.renameTable(from, to, string(oldName), string(newName))
}

func (tx *WriteTransaction) renameTable(from, to cstr.String, oldName, newName string) error {
	if err := tx.check(); err != nil {
		return err
	}
	if st := engine.WriteTxRenameTable(tx.handle, from.Bytes(), to.Bytes()); st != engine.StatusOK {
		return engineError("rename table "+oldName, st)
	}
	tx.logger.Debugf("%srenamed table %q to %q", logging.NSTable, oldName, newName)
	return nil
}

// ListTables returns the table names visible to the transaction, sorted.
func (tx *WriteTransaction) ListTables() ([]string, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	names, st := engine.WriteTxListTables(tx.handle)
	return names, engineError("list tables", st)
}

// Commit releases the transaction's tables and savepoints and makes its
// writes visible. The transaction is finished whether or not Commit
// succeeds.
func (tx *WriteTransaction) Commit() error {
	if err := tx.check(); err != nil {
		return err
	}
	childErr := tx.finish("commit")
	if st := engine.WriteTxCommit(tx.handle); st != engine.StatusOK {
		tx.logger.Errorf("%swrite transaction %d commit failed: %s", logging.NSTxn, tx.id, st)
		fatalStatus(tx.logger, "commit", st)
		return errors.Join(childErr, engineError("commit", st))
	}
	tx.logger.Debugf("%swrite transaction %d committed", logging.NSTxn, tx.id)
	return childErr
}

// Abort discards every write made by the transaction.
func (tx *WriteTransaction) Abort() error {
	if err := tx.check(); err != nil {
		return err
	}
	childErr := tx.finish("abort")
	if st := engine.WriteTxAbort(tx.handle); st != engine.StatusOK {
		return errors.Join(childErr, engineError("abort", st))
	}
	tx.logger.Debugf("%swrite transaction %d aborted", logging.NSTxn, tx.id)
	return childErr
}

// Close aborts the transaction if it is still open.
func (tx *WriteTransaction) Close() error {
	if tx.disposed {
		return nil
	}
	return tx.Abort()
}

// finish marks the transaction finished and releases its children.
func (tx *WriteTransaction) finish(op string) error {
	tx.disposed = true
	n, err := tx.children.releaseAll()
	if n > 0 {
		tx.logger.Warnf("%s%s of write transaction %d released %d open tables and savepoints", logging.NSTxn, op, tx.id, n)
	}
	return err
}

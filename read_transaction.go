package cellarkv

// read_transaction.go implements read transactions.

import (
	"errors"

	"github.com/aalhour/cellarkv/internal/cstr"
	"github.com/aalhour/cellarkv/internal/engine"
	"github.com/aalhour/cellarkv/internal/logging"
)

// ReadTransaction reads a consistent snapshot of the database. Any number
// of read transactions may run alongside the single write transaction.
//
// Close releases the transaction together with every table, iterator and
// blob opened under it.
type ReadTransaction struct {
	handle   engine.Handle
	id       uint64
	children children
	logger   Logger
	db       *Database
	disposed bool
}

// OpenTable opens an existing table by name.
func (tx *ReadTransaction) OpenTable(name string) (*ReadOnlyTable, error) {
	cs := cstr.FromString(name)
	defer cs.Release()
	return tx.openTable(cs, name)
}

// OpenTableUTF8 opens an existing table whose name is given as UTF-8 bytes.
func (tx *ReadTransaction) OpenTableUTF8(name []byte) (*ReadOnlyTable, error) {
	cs := cstr.FromBytes(name)
	defer cs.Release()
	return tx.openTable(cs, string(name))
}

func (tx *ReadTransaction) openTable(cs cstr.String, name string) (*ReadOnlyTable, error) {
	if tx.disposed {
		return nil, disposedError("read transaction")
	}
	h, st := engine.ReadTxOpenTable(tx.handle, cs.Bytes())
	if st != engine.StatusOK {
		return nil, engineError("open table "+name, st)
	}
	return newReadOnlyTable(tx, h, name), nil
}

// ListTables returns the table names in the snapshot, sorted.
func (tx *ReadTransaction) ListTables() ([]string, error) {
	if tx.disposed {
		return nil, disposedError("read transaction")
	}
	names, st := engine.ReadTxListTables(tx.handle)
	return names, engineError("list tables", st)
}

// Close ends the transaction. Closing twice is a no-op.
func (tx *ReadTransaction) Close() error {
	if tx.disposed {
		return nil
	}
	tx.disposed = true
	n, err := tx.children.releaseAll()
	if n > 0 {
		tx.logger.Warnf("%sread transaction %d closed with %d open tables", logging.NSTxn, tx.id, n)
	}
	tx.logger.Debugf("%sread transaction %d closed", logging.NSTxn, tx.id)
	return errors.Join(err, engineError("end read transaction", engine.FreeReadTransaction(tx.handle)))
}

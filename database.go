package cellarkv

// database.go implements opening, closing and compacting a database.

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aalhour/cellarkv/internal/cstr"
	"github.com/aalhour/cellarkv/internal/engine"
	"github.com/aalhour/cellarkv/internal/logging"
)

// Database is an open store. Its methods are safe for concurrent use; the
// transactions it hands out are not.
type Database struct {
	handle engine.Handle
	path   string
	opts   *Options
	logger Logger

	mu       sync.RWMutex
	encoding Encoding
	closed   bool

	txSeq atomic.Uint64
}

// Create opens the database at path, creating the file if it does not
// exist. With BackendInMemory the path only names the database.
func Create(path string, opts *Options) (*Database, error) {
	o, err := prepare(opts)
	if err != nil {
		return nil, err
	}
	cs := cstr.FromString(path)
	defer cs.Release()
	h, st := engine.CreateDatabase(cs.Bytes(), &engine.DatabaseOptions{
		CacheSize: o.CacheSize,
		Backend:   o.Backend.engine(),
	})
	if st != engine.StatusOK {
		fatalStatus(o.Logger, "create "+path, st)
		return nil, engineError("create "+path, st)
	}
	db := newDatabase(h, path, o)
	db.logger.Infof("%screated %s database %s", logging.NSDB, o.Backend, path)
	return db, nil
}

// Open opens an existing database file. It fails with an error matching
// ErrFile when the file does not exist.
func Open(path string, opts *Options) (*Database, error) {
	o, err := prepare(opts)
	if err != nil {
		return nil, err
	}
	if o.Backend != BackendFile {
		return nil, fmt.Errorf("%w: Open needs the file backend, use Create for %s", ErrInvalidOptions, o.Backend)
	}
	cs := cstr.FromString(path)
	defer cs.Release()
	h, st := engine.OpenDatabase(cs.Bytes())
	if st != engine.StatusOK {
		fatalStatus(o.Logger, "open "+path, st)
		return nil, engineError("open "+path, st)
	}
	db := newDatabase(h, path, o)
	db.logger.Infof("%sopened database %s", logging.NSDB, path)
	return db, nil
}

// fatalStatus reports statuses that leave the store unusable.
func fatalStatus(l Logger, op string, st engine.Status) {
	if st == engine.StatusCorruption || st == engine.StatusStorageError {
		l.Fatalf("%s%s: %s", logging.NSDB, op, st)
	}
}

func prepare(opts *Options) (*Options, error) {
	o := opts.withDefaults()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func newDatabase(h engine.Handle, path string, o *Options) *Database {
	return &Database{
		handle:   h,
		path:     path,
		opts:     o,
		logger:   o.Logger,
		encoding: o.Encoding,
	}
}

// Path returns the path the database was opened with.
func (db *Database) Path() string {
	return db.path
}

// Options returns a copy of the options the database was opened with.
func (db *Database) Options() Options {
	return *db.opts
}

// Encoding returns the encoding used by typed tables opened from now on.
func (db *Database) Encoding() Encoding {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.encoding
}

// SetEncoding replaces the encoding for typed tables opened from now on.
// Tables that are already open keep the encoding they were opened with.
// A Compressed encoding applies to values only; keys use its inner
// encoding so that they keep their order.
func (db *Database) SetEncoding(enc Encoding) {
	if enc == nil {
		enc = Primitive
	}
	db.mu.Lock()
	db.encoding = enc
	db.mu.Unlock()
}

// WithEncoding sets the encoding and returns db, for chaining after Create
// or Open.
func (db *Database) WithEncoding(enc Encoding) *Database {
	db.SetEncoding(enc)
	return db
}

// codec captures the current encoding configuration for a typed table.
func (db *Database) codec() *codec {
	enc := db.Encoding()
	keys, values := enc, enc
	if c, ok := enc.(*compressedEncoding); ok {
		keys = c.inner
	} else if db.opts.ValueCompression != NoCompression {
		values = &compressedEncoding{inner: enc, codec: db.opts.ValueCompression, limit: db.opts.MaxEncodedSize}
	}
	return &codec{
		keys:       keys,
		values:     values,
		keyInitial: db.opts.KeyBufferSize,
		valInitial: db.opts.ValueBufferSize,
		limit:      db.opts.MaxEncodedSize,
		logger:     db.logger,
	}
}

func (db *Database) check() error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return disposedError("database")
	}
	return nil
}

// BeginWrite starts a write transaction, blocking while another write
// transaction is open.
func (db *Database) BeginWrite() (*WriteTransaction, error) {
	if err := db.check(); err != nil {
		return nil, err
	}
	h, st := engine.BeginWrite(db.handle)
	if st != engine.StatusOK {
		return nil, engineError("begin write", st)
	}
	tx := &WriteTransaction{handle: h, id: db.txSeq.Add(1), logger: db.logger, db: db}
	db.logger.Debugf("%swrite transaction %d started", logging.NSTxn, tx.id)
	return tx, nil
}

// BeginRead starts a read transaction on the latest committed state.
func (db *Database) BeginRead() (*ReadTransaction, error) {
	if err := db.check(); err != nil {
		return nil, err
	}
	h, st := engine.BeginRead(db.handle)
	if st != engine.StatusOK {
		return nil, engineError("begin read", st)
	}
	tx := &ReadTransaction{handle: h, id: db.txSeq.Add(1), logger: db.logger, db: db}
	db.logger.Debugf("%sread transaction %d started", logging.NSTxn, tx.id)
	return tx, nil
}

// Compact flushes pending commits and rewrites the file without free
// pages. It fails with an error matching ErrCompaction while any
// transaction is open.
func (db *Database) Compact() error {
	if err := db.check(); err != nil {
		return err
	}
	db.logger.Infof("%scompacting %s", logging.NSCompact, db.path)
	if st := engine.CompactDatabase(db.handle); st != engine.StatusOK {
		db.logger.Warnf("%scompaction of %s failed: %s", logging.NSCompact, db.path, st)
		return engineError("compact", st)
	}
	return nil
}

// Close flushes pending commits and closes the database. While any
// transaction is open it fails with an error matching
// ErrTransactionInUse and the database stays usable. Closing twice is a
// no-op.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	st := engine.FreeDatabase(db.handle)
	if st == engine.StatusTransactionInUse {
		return engineError("close", st)
	}
	db.closed = true
	if st != engine.StatusOK {
		db.logger.Errorf("%sclosing %s: %s", logging.NSDB, db.path, st)
		return engineError("close", st)
	}
	db.logger.Infof("%sclosed %s", logging.NSDB, db.path)
	return nil
}

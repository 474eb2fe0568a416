package engine

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/aalhour/cellarkv/internal/cstr"
)

// Backend selects where a database keeps its data.
type Backend int

const (
	// BackendFile persists commits to a bbolt file.
	BackendFile Backend = iota
	// BackendInMemory keeps everything in process memory.
	BackendInMemory
)

// DatabaseOptions configures CreateDatabase.
type DatabaseOptions struct {
	// CacheSize is the initial memory-map size of the file backend, in bytes.
	CacheSize int
	Backend   Backend
}

// database is one open store. mu guards everything below it.
type database struct {
	path  string
	store *store

	// writeSlot admits one write transaction at a time.
	writeSlot chan struct{}

	mu              sync.Mutex
	committed       *state
	savepoints      map[uint64]*state
	nextSavepointID uint64
	seq             uint64
	pending         *changeSet
	quickRepair     bool
	liveTxs         int
	closed          bool
}

// openPaths rejects a second open of the same file within this process.
var openPaths = struct {
	sync.Mutex
	m map[string]struct{}
}{m: make(map[string]struct{})}

func reservePath(path string) bool {
	openPaths.Lock()
	defer openPaths.Unlock()
	if _, ok := openPaths.m[path]; ok {
		return false
	}
	openPaths.m[path] = struct{}{}
	return true
}

func releasePath(path string) {
	openPaths.Lock()
	delete(openPaths.m, path)
	openPaths.Unlock()
}

func newDatabase(path string) *database {
	return &database{
		path:            path,
		writeSlot:       make(chan struct{}, 1),
		committed:       newState(),
		savepoints:      make(map[uint64]*state),
		nextSavepointID: 1,
	}
}

// CreateDatabase opens the store at path, creating it if needed. With the
// in-memory backend the path is validated but otherwise ignored.
func CreateDatabase(path []byte, opts *DatabaseOptions) (Handle, Status) {
	if opts == nil {
		opts = &DatabaseOptions{}
	}
	p, err := cstr.Decode(path)
	if err != nil {
		return InvalidHandle, StatusInvalidArgument
	}
	if opts.Backend == BackendInMemory {
		return handles.add(newDatabase(p)), StatusOK
	}
	if opts.CacheSize < 0 {
		return InvalidHandle, StatusInvalidArgument
	}
	return openFile(p, opts.CacheSize, true)
}

// OpenDatabase opens an existing file store.
func OpenDatabase(path []byte) (Handle, Status) {
	p, err := cstr.Decode(path)
	if err != nil {
		return InvalidHandle, StatusInvalidArgument
	}
	return openFile(p, 0, false)
}

func openFile(path string, cacheSize int, create bool) (Handle, Status) {
	if path == "" {
		return InvalidHandle, StatusInvalidArgument
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return InvalidHandle, StatusFileError
	}
	if !reservePath(abs) {
		return InvalidHandle, StatusDatabaseAlreadyOpen
	}
	s, st := openStore(abs, cacheSize, create)
	if st != StatusOK {
		releasePath(abs)
		return InvalidHandle, st
	}
	snap, err := s.load()
	if err != nil {
		_ = s.close()
		releasePath(abs)
		switch {
		case errors.Is(err, errNewerFormat):
			return InvalidHandle, StatusUpgradeRequired
		case errors.Is(err, errDigest):
			return InvalidHandle, StatusCorruption
		case errors.Is(err, errBadHeader), errors.Is(err, errNotAStore):
			return InvalidHandle, StatusFileError
		default:
			return InvalidHandle, StatusStorageError
		}
	}

	db := newDatabase(abs)
	db.store = s
	db.committed = snap.committed
	db.savepoints = snap.savepoints
	db.seq = snap.hdr.seq
	db.nextSavepointID = max(snap.hdr.nextSavepointID, 1)
	db.quickRepair = snap.hdr.flags&flagQuickRepair != 0
	return handles.add(db), StatusOK
}

// FreeDatabase flushes pending commits and closes the database. It fails
// with StatusTransactionInUse, leaving the database open, while any
// transaction is live.
func FreeDatabase(h Handle) Status {
	db, ok := lookup[*database](h)
	if !ok {
		return StatusInvalidHandle
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return StatusInvalidHandle
	}
	if db.liveTxs > 0 {
		return StatusTransactionInUse
	}
	if _, ok := take[*database](h); !ok {
		return StatusInvalidHandle
	}
	db.closed = true
	if db.store == nil {
		return StatusOK
	}
	status := StatusOK
	if err := db.flushLocked(); err != nil {
		status = StatusStorageError
	}
	if err := db.store.close(); err != nil {
		status = StatusStorageError
	}
	releasePath(db.path)
	return status
}

// CompactDatabase rewrites the file backend without free pages. It fails
// with StatusCompaction while any transaction is live.
func CompactDatabase(h Handle) Status {
	db, ok := lookup[*database](h)
	if !ok {
		return StatusInvalidHandle
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return StatusInvalidHandle
	}
	if db.liveTxs > 0 {
		return StatusCompaction
	}
	if db.store == nil {
		return StatusOK
	}
	if err := db.flushLocked(); err != nil {
		return StatusStorageError
	}
	if err := db.store.compact(); err != nil {
		return StatusCompaction
	}
	return StatusOK
}

// BeginWrite starts the write transaction, blocking until the previous
// one has committed or aborted.
func BeginWrite(h Handle) (Handle, Status) {
	db, ok := lookup[*database](h)
	if !ok {
		return InvalidHandle, StatusInvalidHandle
	}
	db.writeSlot <- struct{}{}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		<-db.writeSlot
		return InvalidHandle, StatusInvalidHandle
	}
	db.liveTxs++
	tx := &writeTx{
		db:         db,
		working:    db.committed.clone(),
		changes:    newChangeSet(),
		durability: DurabilityImmediate,
		tables:     make(map[string]*table),
		savepoints: make(map[*savepoint]struct{}),
	}
	return handles.add(tx), StatusOK
}

// BeginRead starts a read transaction on a snapshot of the last commit.
func BeginRead(h Handle) (Handle, Status) {
	db, ok := lookup[*database](h)
	if !ok {
		return InvalidHandle, StatusInvalidHandle
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return InvalidHandle, StatusInvalidHandle
	}
	db.liveTxs++
	tx := &readTx{
		db:       db,
		snapshot: db.committed.clone(),
		tables:   make(map[*table]struct{}),
	}
	return handles.add(tx), StatusOK
}

// flushLocked persists commits made with DurabilityNone.
func (db *database) flushLocked() error {
	if db.pending == nil || db.pending.empty() {
		db.pending = nil
		return nil
	}
	err := db.store.persist(commitRecord{
		hdr:         db.header(),
		state:       db.committed,
		changes:     db.pending,
		durability:  DurabilityImmediate,
		quickRepair: db.quickRepair,
	})
	if err != nil {
		return err
	}
	db.pending = nil
	return nil
}

func (db *database) header() header {
	return header{seq: db.seq, nextSavepointID: db.nextSavepointID}
}

// commitLocked makes tx's working state the committed state.
func (db *database) commitLocked(tx *writeTx) Status {
	savepoints := make(map[uint64]*state, len(db.savepoints)+len(tx.changes.savepointsAdded))
	for id, st := range db.savepoints {
		if _, deleted := tx.changes.savepointsDeleted[id]; !deleted {
			savepoints[id] = st
		}
	}
	for id, st := range tx.changes.savepointsAdded {
		savepoints[id] = st
	}

	seq := db.seq + 1
	if db.store != nil {
		changes := tx.changes
		if db.pending != nil {
			changes = db.pending.clone()
			changes.merge(tx.changes)
		}
		if tx.durability == DurabilityNone {
			db.pending = changes
		} else {
			hdr := db.header()
			hdr.seq = seq
			err := db.store.persist(commitRecord{
				hdr:         hdr,
				state:       tx.working,
				changes:     changes,
				durability:  tx.durability,
				twoPhase:    tx.twoPhase,
				quickRepair: tx.quickRepair,
			})
			if err != nil {
				return StatusStorageError
			}
			db.pending = nil
			db.quickRepair = tx.quickRepair
		}
	}

	db.committed = tx.working
	db.savepoints = savepoints
	db.seq = seq
	return StatusOK
}

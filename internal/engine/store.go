package engine

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/natefinch/atomic"
	bolt "go.etcd.io/bbolt"

	"github.com/aalhour/cellarkv/internal/checksum"
	"github.com/aalhour/cellarkv/internal/encoding"
)

// Layout of the bbolt file:
//
//	meta/header                 header record
//	tables/<name>/<0x01 key>    table entries
//	savepoints/<id>/<name>/...  persistent savepoint tables
//	digests/<name>              per-table digests, quick-repair commits only
var (
	bucketMeta       = []byte("meta")
	bucketTables     = []byte("tables")
	bucketSavepoints = []byte("savepoints")
	bucketDigests    = []byte("digests")
	keyHeader        = []byte("header")
)

const (
	headerMagic   uint32 = 0x434c4b56 // "CLKV"
	formatVersion uint32 = 1
	headerSize           = 4 + 4 + 8 + 8 + 8 + 4

	flagPending     uint32 = 1 << 0
	flagQuickRepair uint32 = 1 << 1

	// bbolt rejects empty keys, so every stored key carries this prefix.
	keyPrefix byte = 0x01

	lockTimeout      = 100 * time.Millisecond
	compactTxMaxSize = 64 << 20
)

var (
	errNotAStore   = errors.New("engine: file is not a cellarkv store")
	errBadHeader   = errors.New("engine: malformed header")
	errNewerFormat = errors.New("engine: file format is newer than supported")
	errDigest      = errors.New("engine: digest mismatch")
)

type header struct {
	version         uint32
	seq             uint64
	nextSavepointID uint64
	digest          uint64
	flags           uint32
}

func (h header) encode() []byte {
	buf := make([]byte, 0, headerSize)
	buf = encoding.AppendUint32(buf, headerMagic)
	buf = encoding.AppendUint32(buf, h.version)
	buf = encoding.AppendUint64(buf, h.seq)
	buf = encoding.AppendUint64(buf, h.nextSavepointID)
	buf = encoding.AppendUint64(buf, h.digest)
	buf = encoding.AppendUint32(buf, h.flags)
	return buf
}

func decodeHeader(b []byte) (header, error) {
	var h header
	s := encoding.NewSlice(b)
	magic, ok := s.GetUint32()
	if !ok || magic != headerMagic {
		return h, errBadHeader
	}
	if h.version, ok = s.GetUint32(); !ok {
		return h, errBadHeader
	}
	if h.version > formatVersion {
		return h, errNewerFormat
	}
	if h.seq, ok = s.GetUint64(); !ok {
		return h, errBadHeader
	}
	if h.nextSavepointID, ok = s.GetUint64(); !ok {
		return h, errBadHeader
	}
	if h.digest, ok = s.GetUint64(); !ok {
		return h, errBadHeader
	}
	if h.flags, ok = s.GetUint32(); !ok {
		return h, errBadHeader
	}
	return h, nil
}

func storedKey(key []byte) []byte {
	out := make([]byte, 1+len(key))
	out[0] = keyPrefix
	copy(out[1:], key)
	return out
}

func savepointKey(id uint64) []byte {
	return encoding.AppendUint64(nil, id)
}

// store is the bbolt-backed persistence of a file database.
type store struct {
	path string
	opts *bolt.Options
	bolt *bolt.DB
}

// snapshot is everything loaded from a store at open.
type snapshot struct {
	hdr        header
	committed  *state
	savepoints map[uint64]*state
}

func openStore(path string, cacheSize int, create bool) (*store, Status) {
	if !create {
		if _, err := os.Stat(path); err != nil {
			return nil, StatusFileError
		}
	}
	s := &store{
		path: path,
		opts: &bolt.Options{Timeout: lockTimeout, InitialMmapSize: cacheSize},
	}
	if st := s.open(); st != StatusOK {
		return nil, st
	}

	initialized := false
	_ = s.bolt.View(func(tx *bolt.Tx) error {
		initialized = tx.Bucket(bucketMeta) != nil
		return nil
	})
	if initialized {
		return s, StatusOK
	}
	if !create {
		_ = s.bolt.Close()
		return nil, StatusFileError
	}
	err := s.bolt.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketTables, bucketSavepoints} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		h := header{version: formatVersion, nextSavepointID: 1}
		return tx.Bucket(bucketMeta).Put(keyHeader, h.encode())
	})
	if err != nil {
		_ = s.bolt.Close()
		return nil, StatusStorageError
	}
	return s, StatusOK
}

func (s *store) open() Status {
	db, err := bolt.Open(s.path, 0o600, s.opts)
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return StatusDatabaseAlreadyOpen
		}
		return StatusFileError
	}
	s.bolt = db
	return StatusOK
}

func (s *store) close() error {
	return s.bolt.Close()
}

// load reads the whole store and verifies its digests. An interrupted
// two-phase commit (pending flag set) is rolled forward.
func (s *store) load() (*snapshot, error) {
	snap := &snapshot{committed: newState(), savepoints: make(map[uint64]*state)}
	var stored map[string]uint64

	err := s.bolt.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			return errNotAStore
		}
		h, err := decodeHeader(meta.Get(keyHeader))
		if err != nil {
			return err
		}
		snap.hdr = h

		if snap.committed, err = readState(tx.Bucket(bucketTables)); err != nil {
			return err
		}
		if sb := tx.Bucket(bucketSavepoints); sb != nil {
			c := sb.Cursor()
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				nested := sb.Bucket(k)
				if nested == nil || len(k) != 8 {
					return fmt.Errorf("%w: savepoint key %x", errBadHeader, k)
				}
				st, err := readState(nested)
				if err != nil {
					return err
				}
				snap.savepoints[encoding.Uint64(k)] = st
			}
		}
		if db := tx.Bucket(bucketDigests); db != nil {
			stored = make(map[string]uint64)
			return db.ForEach(func(k, v []byte) error {
				if len(v) != 8 {
					return fmt.Errorf("%w: table %q", errDigest, k)
				}
				stored[string(k)] = encoding.Uint64(v)
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	digests := snap.committed.digests()
	if checksum.Combine(digests) != snap.hdr.digest {
		if snap.hdr.flags&flagPending == 0 {
			return nil, errDigest
		}
		snap.hdr.digest = checksum.Combine(digests)
	}
	if stored != nil && snap.hdr.flags&flagPending == 0 {
		for name, d := range digests {
			if want, ok := stored[name]; ok && want != uint64(d) {
				return nil, fmt.Errorf("%w: table %q", errDigest, name)
			}
		}
	}
	if snap.hdr.flags&flagPending != 0 {
		snap.hdr.flags &^= flagPending
		err := s.bolt.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketMeta).Put(keyHeader, snap.hdr.encode())
		})
		if err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func readState(parent *bolt.Bucket) (*state, error) {
	st := newState()
	if parent == nil {
		return st, nil
	}
	c := parent.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		b := parent.Bucket(k)
		if b == nil {
			return nil, fmt.Errorf("%w: stray key %q", errBadHeader, k)
		}
		td := newTableData()
		err := b.ForEach(func(sk, v []byte) error {
			if len(sk) == 0 || sk[0] != keyPrefix {
				return fmt.Errorf("%w: table %q key %x", errBadHeader, k, sk)
			}
			td.put(sk[1:], v)
			return nil
		})
		if err != nil {
			return nil, err
		}
		st.tables[string(k)] = td
	}
	return st, nil
}

// commitRecord is one durable write of committed state.
type commitRecord struct {
	hdr         header
	state       *state
	changes     *changeSet
	durability  Durability
	twoPhase    bool
	quickRepair bool
}

func (s *store) persist(rec commitRecord) error {
	if rec.durability == DurabilityEventual {
		s.bolt.NoSync = true
		defer func() { s.bolt.NoSync = false }()
	}

	hdr := rec.hdr
	hdr.version = formatVersion
	hdr.digest = checksum.Combine(rec.state.digests())
	hdr.flags = 0
	if rec.quickRepair {
		hdr.flags |= flagQuickRepair
	}

	first := hdr
	if rec.twoPhase {
		first.flags |= flagPending
	}
	err := s.bolt.Update(func(tx *bolt.Tx) error {
		if err := writeChanges(tx, rec.state, rec.changes); err != nil {
			return err
		}
		if err := writeDigests(tx, rec.state, rec.quickRepair); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyHeader, first.encode())
	})
	if err != nil || !rec.twoPhase {
		return err
	}
	return s.bolt.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keyHeader, hdr.encode())
	})
}

func writeChanges(tx *bolt.Tx, st *state, changes *changeSet) error {
	tables := tx.Bucket(bucketTables)
	for name, tc := range changes.tables {
		td, exists := st.tables[name]
		if tc.rewrite || !exists {
			if err := deleteBucket(tables, []byte(name)); err != nil {
				return err
			}
			if !exists {
				continue
			}
			b, err := tables.CreateBucket([]byte(name))
			if err != nil {
				return err
			}
			if err := writeTable(b, td); err != nil {
				return err
			}
			continue
		}
		b, err := tables.CreateBucketIfNotExists([]byte(name))
		if err != nil {
			return err
		}
		for key := range tc.keys {
			k := []byte(key)
			if v, ok := td.get(k); ok {
				err = b.Put(storedKey(k), v)
			} else {
				err = b.Delete(storedKey(k))
			}
			if err != nil {
				return err
			}
		}
	}

	savepoints := tx.Bucket(bucketSavepoints)
	for id := range changes.savepointsDeleted {
		if err := deleteBucket(savepoints, savepointKey(id)); err != nil {
			return err
		}
	}
	for id, sp := range changes.savepointsAdded {
		if err := deleteBucket(savepoints, savepointKey(id)); err != nil {
			return err
		}
		b, err := savepoints.CreateBucket(savepointKey(id))
		if err != nil {
			return err
		}
		for name, td := range sp.tables {
			tb, err := b.CreateBucket([]byte(name))
			if err != nil {
				return err
			}
			if err := writeTable(tb, td); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeTable(b *bolt.Bucket, td *tableData) error {
	var err error
	td.tree.Ascend(func(e entry) bool {
		err = b.Put(storedKey(e.key), e.value)
		return err == nil
	})
	return err
}

func writeDigests(tx *bolt.Tx, st *state, quickRepair bool) error {
	if err := tx.DeleteBucket(bucketDigests); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
		return err
	}
	if !quickRepair {
		return nil
	}
	b, err := tx.CreateBucket(bucketDigests)
	if err != nil {
		return err
	}
	for name, d := range st.digests() {
		if err := b.Put([]byte(name), encoding.AppendUint64(nil, uint64(d))); err != nil {
			return err
		}
	}
	return nil
}

func deleteBucket(parent *bolt.Bucket, name []byte) error {
	if err := parent.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
		return err
	}
	return nil
}

// compact rewrites the store into a fresh file and swaps it in place.
func (s *store) compact() error {
	tmp := s.path + ".compact"
	_ = os.Remove(tmp)

	dst, err := bolt.Open(tmp, 0o600, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		return fmt.Errorf("open compaction target: %w", err)
	}
	if err := bolt.Compact(dst, s.bolt, compactTxMaxSize); err != nil {
		_ = dst.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("compact: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close compaction target: %w", err)
	}
	if err := s.bolt.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close store: %w", err)
	}
	swapErr := atomic.ReplaceFile(tmp, s.path)
	if st := s.open(); st != StatusOK {
		return fmt.Errorf("reopen after compaction: %s", st)
	}
	if swapErr != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace store file: %w", swapErr)
	}
	return nil
}

package engine

import (
	"bytes"
	"maps"
	"slices"

	"github.com/google/btree"

	"github.com/aalhour/cellarkv/internal/checksum"
)

const btreeDegree = 32

type entry struct {
	key   []byte
	value []byte
}

func entryLess(a, b entry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// tableData is one table: its ordered entries and their running digest.
type tableData struct {
	tree   *btree.BTreeG[entry]
	digest checksum.Digest
}

func newTableData() *tableData {
	return &tableData{tree: btree.NewG(btreeDegree, entryLess)}
}

// clone is O(1); the trees share nodes until either side writes.
func (t *tableData) clone() *tableData {
	return &tableData{tree: t.tree.Clone(), digest: t.digest}
}

func (t *tableData) get(key []byte) ([]byte, bool) {
	e, ok := t.tree.Get(entry{key: key})
	return e.value, ok
}

// put stores copies of key and value.
func (t *tableData) put(key, value []byte) {
	e := entry{key: bytes.Clone(key), value: bytes.Clone(value)}
	if e.key == nil {
		e.key = []byte{}
	}
	if old, replaced := t.tree.ReplaceOrInsert(e); replaced {
		t.digest = t.digest.Replace(key, old.value, value)
		return
	}
	t.digest = t.digest.Add(key, value)
}

func (t *tableData) remove(key []byte) bool {
	old, ok := t.tree.Delete(entry{key: key})
	if ok {
		t.digest = t.digest.Remove(old.key, old.value)
	}
	return ok
}

// state is the full set of tables visible to a transaction.
type state struct {
	tables map[string]*tableData
}

func newState() *state {
	return &state{tables: make(map[string]*tableData)}
}

func (s *state) clone() *state {
	out := &state{tables: make(map[string]*tableData, len(s.tables))}
	for name, t := range s.tables {
		out.tables[name] = t.clone()
	}
	return out
}

func (s *state) names() []string {
	return slices.Sorted(maps.Keys(s.tables))
}

func (s *state) digests() map[string]checksum.Digest {
	out := make(map[string]checksum.Digest, len(s.tables))
	for name, t := range s.tables {
		out[name] = t.digest
	}
	return out
}

// tableChange records what a transaction did to one table.
// A rewrite replaces the whole table (creation, deletion, rename, restore);
// otherwise only the listed keys changed.
type tableChange struct {
	rewrite bool
	keys    map[string]struct{}
}

// changeSet is the work a commit has to persist.
type changeSet struct {
	tables            map[string]*tableChange
	savepointsAdded   map[uint64]*state
	savepointsDeleted map[uint64]struct{}
}

func newChangeSet() *changeSet {
	return &changeSet{
		tables:            make(map[string]*tableChange),
		savepointsAdded:   make(map[uint64]*state),
		savepointsDeleted: make(map[uint64]struct{}),
	}
}

func (c *changeSet) table(name string) *tableChange {
	tc, ok := c.tables[name]
	if !ok {
		tc = &tableChange{keys: make(map[string]struct{})}
		c.tables[name] = tc
	}
	return tc
}

func (c *changeSet) touch(name string, key []byte) {
	tc := c.table(name)
	if !tc.rewrite {
		tc.keys[string(key)] = struct{}{}
	}
}

func (c *changeSet) rewrite(name string) {
	tc := c.table(name)
	tc.rewrite = true
	clear(tc.keys)
}

func (c *changeSet) addSavepoint(id uint64, st *state) {
	c.savepointsAdded[id] = st
	delete(c.savepointsDeleted, id)
}

func (c *changeSet) deleteSavepoint(id uint64) {
	delete(c.savepointsAdded, id)
	c.savepointsDeleted[id] = struct{}{}
}

func (c *changeSet) clone() *changeSet {
	out := &changeSet{
		tables:            make(map[string]*tableChange, len(c.tables)),
		savepointsAdded:   maps.Clone(c.savepointsAdded),
		savepointsDeleted: maps.Clone(c.savepointsDeleted),
	}
	for name, tc := range c.tables {
		out.tables[name] = &tableChange{rewrite: tc.rewrite, keys: maps.Clone(tc.keys)}
	}
	return out
}

// merge folds a later change set into c.
func (c *changeSet) merge(later *changeSet) {
	for name, tc := range later.tables {
		if tc.rewrite {
			c.rewrite(name)
			continue
		}
		for key := range tc.keys {
			c.touch(name, []byte(key))
		}
	}
	for id := range later.savepointsDeleted {
		c.deleteSavepoint(id)
	}
	for id, st := range later.savepointsAdded {
		c.addSavepoint(id, st)
	}
}

func (c *changeSet) empty() bool {
	return len(c.tables) == 0 && len(c.savepointsAdded) == 0 && len(c.savepointsDeleted) == 0
}

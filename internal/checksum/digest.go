// Package checksum provides the integrity digests stored alongside tables.
//
// A table digest is the wrapping sum of the XXH3 hash of every entry, so it
// is independent of insertion order and can be maintained incrementally:
// inserting an entry adds its hash, removing it subtracts the same hash.
// Replacing a value is a removal followed by an insertion.
package checksum

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// Digest is an order-independent digest of a set of key/value entries.
// The zero value is the digest of the empty set.
type Digest uint64

// Entry returns the hash of a single key/value entry.
// The key length is mixed in so that ("ab","c") and ("a","bc") differ.
func Entry(key, value []byte) uint64 {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(key)))

	h := xxh3.New()
	_, _ = h.Write(lenBuf[:])
	_, _ = h.Write(key)
	_, _ = h.Write(value)
	return h.Sum64()
}

// Add returns the digest with the entry included.
func (d Digest) Add(key, value []byte) Digest {
	return d + Digest(Entry(key, value))
}

// Remove returns the digest with the entry excluded.
func (d Digest) Remove(key, value []byte) Digest {
	return d - Digest(Entry(key, value))
}

// Replace returns the digest with oldValue swapped for newValue under key.
func (d Digest) Replace(key, oldValue, newValue []byte) Digest {
	return d.Remove(key, oldValue).Add(key, newValue)
}

// Named binds a table digest to its table name, so that renaming a table
// changes the combined digest of a database.
func Named(name string, d Digest) uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(d))
	return xxh3.HashString(name) ^ xxh3.Hash(buf[:])
}

// Combine folds per-table digests into one database digest.
// The result does not depend on map iteration order.
func Combine(tables map[string]Digest) uint64 {
	var sum uint64
	for name, d := range tables {
		sum += Named(name, d)
	}
	return sum
}

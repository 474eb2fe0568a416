/*
Package cellarkv is a client for an embedded, transactional key/value
store with typed tables, snapshot reads and savepoints.

A database holds named tables of ordered key/value pairs. Every access
happens inside a transaction: any number of read transactions, each on a
consistent snapshot, alongside a single write transaction whose changes
become visible when it commits.

# Usage

	db, err := cellarkv.Create("data.cellar", nil)
	...
	defer db.Close()

	tx, err := db.BeginWrite()
	...
	users, err := cellarkv.OpenTypedTable[string, int64](tx, "users")
	...
	err = users.Insert("alice", 18)
	...
	err = tx.Commit()

For runnable examples, see the repository's examples directory.

# Resources

Databases, transactions, tables, iterators, blobs and savepoints wrap
engine resources. Each has a Close method that releases it once; later
calls return an error matching ErrDisposed. Closing a parent releases
everything opened under it, newest first, so committing or aborting a
transaction never leaks its tables.

# Encodings

Typed tables convert keys and values with the database Encoding. The
default, Primitive, stores integers, floats, times and UUIDs in a
fixed-width form that sorts like the values themselves, so typed range
scans follow value order. JSON and Proto add structured values;
Compressed shrinks large values.

# Concurrency

Database methods are safe for concurrent use. Transactions and everything
opened under them belong to one goroutine at a time.
*/
package cellarkv

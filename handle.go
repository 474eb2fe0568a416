package cellarkv

// handle.go implements ownership of engine resources.
//
// Every wrapper owns one engine handle and releases it at most once. A
// parent keeps its live children and releases them, newest first, before
// releasing its own handle:
//
//	ReadTransaction  -> ReadOnlyTable
//	WriteTransaction -> Table, Savepoint
//	ReadOnlyTable    -> Iterator, Blob
//	Table            -> Blob

import (
	"errors"
	"slices"
)

// resource is a wrapper that can be released by its parent.
type resource interface {
	release() error
}

// children tracks the live resources opened under a parent.
type children struct {
	items []resource
}

func (c *children) add(r resource) {
	c.items = append(c.items, r)
}

// remove forgets r after the caller released it directly.
func (c *children) remove(r resource) {
	if c == nil {
		return
	}
	if i := slices.Index(c.items, r); i >= 0 {
		c.items = slices.Delete(c.items, i, i+1)
	}
}

func (c *children) len() int {
	return len(c.items)
}

// releaseAll releases every child, newest first, and returns how many
// there were along with the joined release errors.
func (c *children) releaseAll() (int, error) {
	items := c.items
	c.items = nil
	var errs []error
	for i := len(items) - 1; i >= 0; i-- {
		if err := items[i].release(); err != nil {
			errs = append(errs, err)
		}
	}
	return len(items), errors.Join(errs...)
}

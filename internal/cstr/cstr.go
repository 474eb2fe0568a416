// Package cstr converts between Go strings and the NUL-terminated UTF-8
// byte strings used for paths and table names at the engine boundary.
package cstr

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"github.com/aalhour/cellarkv/internal/mempool"
)

var (
	// ErrNotTerminated is returned when the input does not end with a NUL byte.
	ErrNotTerminated = errors.New("cstr: missing NUL terminator")

	// ErrInteriorNUL is returned when a NUL byte appears before the terminator.
	ErrInteriorNUL = errors.New("cstr: interior NUL byte")

	// ErrInvalidUTF8 is returned when the content is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("cstr: invalid UTF-8")
)

// String is a NUL-terminated byte string backed by a pooled buffer.
// Release it once the engine call that needed it has returned.
type String struct {
	buf []byte
}

// FromString copies s and appends the terminator.
func FromString(s string) String {
	buf := mempool.GlobalPool.Get(len(s) + 1)
	buf = append(buf, s...)
	buf = append(buf, 0)
	return String{buf: buf}
}

// FromBytes copies an already UTF-8 encoded name and appends the terminator.
// The content is not validated here; the engine rejects malformed names.
func FromBytes(b []byte) String {
	buf := mempool.GlobalPool.Get(len(b) + 1)
	buf = append(buf, b...)
	buf = append(buf, 0)
	return String{buf: buf}
}

// Bytes returns the terminated bytes, including the trailing NUL.
func (s String) Bytes() []byte {
	return s.buf
}

// Len returns the length including the terminator.
func (s String) Len() int {
	return len(s.buf)
}

// Release returns the buffer to the pool. The String must not be used afterwards.
func (s *String) Release() {
	if s.buf != nil {
		mempool.GlobalPool.Put(s.buf)
		s.buf = nil
	}
}

// Decode validates a NUL-terminated UTF-8 byte string and returns its content.
func Decode(b []byte) (string, error) {
	if len(b) == 0 || b[len(b)-1] != 0 {
		return "", ErrNotTerminated
	}
	body := b[:len(b)-1]
	if bytes.IndexByte(body, 0) >= 0 {
		return "", ErrInteriorNUL
	}
	if !utf8.Valid(body) {
		return "", ErrInvalidUTF8
	}
	return string(body), nil
}

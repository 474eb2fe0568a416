// Package encoding provides the order-preserving fixed-width codings used
// for keys and for the engine's on-disk header.
//
// All multi-byte integers are encoded big-endian so that byte-wise
// comparison matches numeric comparison for unsigned values. Signed
// integers additionally flip the sign bit, and floats use the IEEE-754
// total-order transform: negative values have every bit inverted, other
// values have only the sign bit set.
package encoding

import (
	"encoding/binary"
	"math"
)

// -----------------------------------------------------------------------------
// Unsigned (big-endian)
// -----------------------------------------------------------------------------

// PutUint16 encodes v into dst[:2].
// REQUIRES: dst has at least 2 bytes.
func PutUint16(dst []byte, v uint16) { binary.BigEndian.PutUint16(dst, v) }

// Uint16 decodes a value written by PutUint16.
func Uint16(src []byte) uint16 { return binary.BigEndian.Uint16(src) }

// PutUint32 encodes v into dst[:4].
// REQUIRES: dst has at least 4 bytes.
func PutUint32(dst []byte, v uint32) { binary.BigEndian.PutUint32(dst, v) }

// Uint32 decodes a value written by PutUint32.
func Uint32(src []byte) uint32 { return binary.BigEndian.Uint32(src) }

// PutUint64 encodes v into dst[:8].
// REQUIRES: dst has at least 8 bytes.
func PutUint64(dst []byte, v uint64) { binary.BigEndian.PutUint64(dst, v) }

// Uint64 decodes a value written by PutUint64.
func Uint64(src []byte) uint64 { return binary.BigEndian.Uint64(src) }

// AppendUint32 appends the big-endian encoding of v to dst.
func AppendUint32(dst []byte, v uint32) []byte { return binary.BigEndian.AppendUint32(dst, v) }

// AppendUint64 appends the big-endian encoding of v to dst.
func AppendUint64(dst []byte, v uint64) []byte { return binary.BigEndian.AppendUint64(dst, v) }

// -----------------------------------------------------------------------------
// Signed (sign bit flipped)
// -----------------------------------------------------------------------------

// PutInt8 encodes v into dst[0].
func PutInt8(dst []byte, v int8) { dst[0] = byte(v) ^ 0x80 }

// Int8 decodes a value written by PutInt8.
func Int8(src []byte) int8 { return int8(src[0] ^ 0x80) }

// PutInt16 encodes v into dst[:2].
func PutInt16(dst []byte, v int16) { PutUint16(dst, uint16(v)^(1<<15)) }

// Int16 decodes a value written by PutInt16.
func Int16(src []byte) int16 { return int16(Uint16(src) ^ (1 << 15)) }

// PutInt32 encodes v into dst[:4].
func PutInt32(dst []byte, v int32) { PutUint32(dst, uint32(v)^(1<<31)) }

// Int32 decodes a value written by PutInt32.
func Int32(src []byte) int32 { return int32(Uint32(src) ^ (1 << 31)) }

// PutInt64 encodes v into dst[:8].
func PutInt64(dst []byte, v int64) { PutUint64(dst, uint64(v)^(1<<63)) }

// Int64 decodes a value written by PutInt64.
func Int64(src []byte) int64 { return int64(Uint64(src) ^ (1 << 63)) }

// -----------------------------------------------------------------------------
// Floating point (IEEE-754 total order)
// -----------------------------------------------------------------------------

// PutFloat32 encodes v into dst[:4].
func PutFloat32(dst []byte, v float32) {
	bits := math.Float32bits(v)
	if bits&(1<<31) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 31
	}
	PutUint32(dst, bits)
}

// Float32 decodes a value written by PutFloat32.
func Float32(src []byte) float32 {
	bits := Uint32(src)
	if bits&(1<<31) != 0 {
		bits &^= 1 << 31
	} else {
		bits = ^bits
	}
	return math.Float32frombits(bits)
}

// PutFloat64 encodes v into dst[:8].
func PutFloat64(dst []byte, v float64) {
	bits := math.Float64bits(v)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	PutUint64(dst, bits)
}

// Float64 decodes a value written by PutFloat64.
func Float64(src []byte) float64 {
	bits := Uint64(src)
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}

// -----------------------------------------------------------------------------
// Slice - a helper for sequential decoding
// -----------------------------------------------------------------------------

// Slice is a read cursor over an encoded record.
type Slice struct {
	data []byte
}

// NewSlice creates a new Slice from a byte slice.
func NewSlice(data []byte) *Slice {
	return &Slice{data: data}
}

// Remaining returns the number of bytes remaining.
func (s *Slice) Remaining() int {
	return len(s.data)
}

// GetUint32 reads a big-endian uint32 and advances the slice.
func (s *Slice) GetUint32() (uint32, bool) {
	if len(s.data) < 4 {
		return 0, false
	}
	v := Uint32(s.data)
	s.data = s.data[4:]
	return v, true
}

// GetUint64 reads a big-endian uint64 and advances the slice.
func (s *Slice) GetUint64() (uint64, bool) {
	if len(s.data) < 8 {
		return 0, false
	}
	v := Uint64(s.data)
	s.data = s.data[8:]
	return v, true
}

// GetBytes reads n bytes and advances the slice.
func (s *Slice) GetBytes(n int) ([]byte, bool) {
	if n < 0 || len(s.data) < n {
		return nil, false
	}
	v := s.data[:n]
	s.data = s.data[n:]
	return v, true
}

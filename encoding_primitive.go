package cellarkv

// encoding_primitive.go implements the order-preserving Primitive encoding.

import (
	"bytes"
	stdencoding "encoding"
	"time"

	"github.com/google/uuid"

	"github.com/aalhour/cellarkv/internal/encoding"
)

// PrimitiveEncoding stores scalars in fixed-width, order-preserving form:
// byte-wise comparison of two encoded keys agrees with comparison of the
// values. Strings are stored as raw UTF-8 and byte slices as is.
//
//	bool, int8, uint8                     1 byte
//	int16, uint16                         2 bytes
//	int32, uint32, float32                4 bytes
//	int64, uint64, int, uint, float64     8 bytes
//	time.Duration                         8 bytes
//	uuid.UUID                             16 bytes
//	time.Time                             16 bytes (seconds, nanoseconds, zone offset)
//	string, []byte                        variable
//
// Types implementing Encodable/Decodable are encoded through those methods,
// then types implementing encoding.BinaryMarshaler/BinaryUnmarshaler.
type PrimitiveEncoding struct{}

// Primitive is the default encoding.
var Primitive = PrimitiveEncoding{}

var _ Encoding = Primitive

const timeWidth = 16

func fixed[T any](dst []byte, width int, v T, put func([]byte, T)) (int, bool, error) {
	if len(dst) < width {
		return 0, false, nil
	}
	put(dst, v)
	return width, true, nil
}

func putBool(dst []byte, v bool) {
	dst[0] = 0
	if v {
		dst[0] = 1
	}
}

func putUint8(dst []byte, v uint8) { dst[0] = v }

func putTime(dst []byte, t time.Time) {
	_, offset := t.Zone()
	encoding.PutInt64(dst, t.Unix())
	encoding.PutUint32(dst[8:], uint32(t.Nanosecond()))
	encoding.PutInt32(dst[12:], int32(offset))
}

func decodeTime(src []byte) time.Time {
	sec := encoding.Int64(src)
	nsec := int64(encoding.Uint32(src[8:]))
	offset := int(encoding.Int32(src[12:]))
	t := time.Unix(sec, nsec)
	if offset == 0 {
		return t.UTC()
	}
	return t.In(time.FixedZone("", offset))
}

func putUUID(dst []byte, id uuid.UUID) { copy(dst, id[:]) }

func putBytes(dst, src []byte) (int, bool, error) {
	if len(dst) < len(src) {
		return 0, false, nil
	}
	return copy(dst, src), true, nil
}

// TryEncode implements Encoding.
func (PrimitiveEncoding) TryEncode(v any, dst []byte) (int, bool, error) {
	switch x := v.(type) {
	case bool:
		return fixed(dst, 1, x, putBool)
	case int8:
		return fixed(dst, 1, x, encoding.PutInt8)
	case uint8:
		return fixed(dst, 1, x, putUint8)
	case int16:
		return fixed(dst, 2, x, encoding.PutInt16)
	case uint16:
		return fixed(dst, 2, x, encoding.PutUint16)
	case int32:
		return fixed(dst, 4, x, encoding.PutInt32)
	case uint32:
		return fixed(dst, 4, x, encoding.PutUint32)
	case float32:
		return fixed(dst, 4, x, encoding.PutFloat32)
	case int64:
		return fixed(dst, 8, x, encoding.PutInt64)
	case uint64:
		return fixed(dst, 8, x, encoding.PutUint64)
	case int:
		return fixed(dst, 8, int64(x), encoding.PutInt64)
	case uint:
		return fixed(dst, 8, uint64(x), encoding.PutUint64)
	case float64:
		return fixed(dst, 8, x, encoding.PutFloat64)
	case time.Duration:
		return fixed(dst, 8, int64(x), encoding.PutInt64)
	case uuid.UUID:
		return fixed(dst, 16, x, putUUID)
	case time.Time:
		return fixed(dst, timeWidth, x, putTime)
	case string:
		if len(dst) < len(x) {
			return 0, false, nil
		}
		return copy(dst, x), true, nil
	case []byte:
		return putBytes(dst, x)
	case Encodable:
		n, ok := x.TryEncode(dst)
		if !ok {
			return 0, false, nil
		}
		return n, true, nil
	case stdencoding.BinaryMarshaler:
		data, err := x.MarshalBinary()
		if err != nil {
			return 0, false, err
		}
		return putBytes(dst, data)
	default:
		return 0, false, unsupportedType(v)
	}
}

func exact(src []byte, out any, width int) error {
	if len(src) != width {
		return sizeMismatch(out, width, len(src))
	}
	return nil
}

// Decode implements Encoding.
func (PrimitiveEncoding) Decode(src []byte, out any) error {
	switch p := out.(type) {
	case *bool:
		if err := exact(src, out, 1); err != nil {
			return err
		}
		*p = src[0] != 0
	case *int8:
		if err := exact(src, out, 1); err != nil {
			return err
		}
		*p = encoding.Int8(src)
	case *uint8:
		if err := exact(src, out, 1); err != nil {
			return err
		}
		*p = src[0]
	case *int16:
		if err := exact(src, out, 2); err != nil {
			return err
		}
		*p = encoding.Int16(src)
	case *uint16:
		if err := exact(src, out, 2); err != nil {
			return err
		}
		*p = encoding.Uint16(src)
	case *int32:
		if err := exact(src, out, 4); err != nil {
			return err
		}
		*p = encoding.Int32(src)
	case *uint32:
		if err := exact(src, out, 4); err != nil {
			return err
		}
		*p = encoding.Uint32(src)
	case *float32:
		if err := exact(src, out, 4); err != nil {
			return err
		}
		*p = encoding.Float32(src)
	case *int64:
		if err := exact(src, out, 8); err != nil {
			return err
		}
		*p = encoding.Int64(src)
	case *uint64:
		if err := exact(src, out, 8); err != nil {
			return err
		}
		*p = encoding.Uint64(src)
	case *int:
		if err := exact(src, out, 8); err != nil {
			return err
		}
		*p = int(encoding.Int64(src))
	case *uint:
		if err := exact(src, out, 8); err != nil {
			return err
		}
		*p = uint(encoding.Uint64(src))
	case *float64:
		if err := exact(src, out, 8); err != nil {
			return err
		}
		*p = encoding.Float64(src)
	case *time.Duration:
		if err := exact(src, out, 8); err != nil {
			return err
		}
		*p = time.Duration(encoding.Int64(src))
	case *uuid.UUID:
		if err := exact(src, out, 16); err != nil {
			return err
		}
		copy(p[:], src)
	case *time.Time:
		if err := exact(src, out, timeWidth); err != nil {
			return err
		}
		*p = decodeTime(src)
	case *string:
		*p = string(src)
	case *[]byte:
		*p = bytes.Clone(src)
		if *p == nil {
			*p = []byte{}
		}
	case Decodable:
		return p.DecodeFrom(src)
	case stdencoding.BinaryUnmarshaler:
		return p.UnmarshalBinary(src)
	default:
		return unsupportedType(out)
	}
	return nil
}

// isPrimitive reports whether Primitive handles v without falling back to
// a capability interface.
func isPrimitive(v any) bool {
	switch v.(type) {
	case bool, int8, uint8, int16, uint16, int32, uint32, float32,
		int64, uint64, int, uint, float64, time.Duration,
		uuid.UUID, time.Time, string, []byte:
		return true
	}
	return false
}

// isPrimitivePtr is isPrimitive for decode targets.
func isPrimitivePtr(out any) bool {
	switch out.(type) {
	case *bool, *int8, *uint8, *int16, *uint16, *int32, *uint32, *float32,
		*int64, *uint64, *int, *uint, *float64, *time.Duration,
		*uuid.UUID, *time.Time, *string, *[]byte:
		return true
	}
	return false
}

package cellarkv

// encoding.go defines how typed keys and values become bytes.

import (
	"fmt"
	"strings"

	"github.com/aalhour/cellarkv/internal/logging"
	"github.com/aalhour/cellarkv/internal/mempool"
)

// Encoding converts keys and values to and from the bytes the engine
// stores. Implementations must be safe for concurrent use.
type Encoding interface {
	// TryEncode writes v into dst and returns the number of bytes written.
	// When dst is too small it returns ok == false and writes nothing
	// useful; the caller retries with a larger buffer. err is reserved for
	// values that can never be encoded.
	TryEncode(v any, dst []byte) (n int, ok bool, err error)

	// Decode fills the value pointed to by out from exactly src.
	Decode(src []byte, out any) error
}

// Encodable lets a type encode itself with the Primitive encoding and
// every encoding built on it.
type Encodable interface {
	// TryEncode writes the receiver into dst, or returns ok == false when
	// dst is too small.
	TryEncode(dst []byte) (n int, ok bool)
}

// Decodable is the decoding counterpart of Encodable, implemented on the
// pointer type.
type Decodable interface {
	DecodeFrom(src []byte) error
}

// EncodingByName returns a built-in encoding: "primitive", "json" or "proto".
func EncodingByName(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "primitive":
		return Primitive, nil
	case "json":
		return JSON, nil
	case "proto", "protobuf":
		return Proto, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
}

func encodingName(enc Encoding) (string, bool) {
	switch enc.(type) {
	case PrimitiveEncoding:
		return "primitive", true
	case JSONEncoding:
		return "json", true
	case ProtoEncoding:
		return "proto", true
	default:
		return "", false
	}
}

// encodeGrow encodes v into a pooled buffer of initial bytes, doubling the
// buffer until the value fits or limit is reached. It returns the buffer,
// which the caller puts back into mempool.GlobalPool, the encoded length,
// and the number of times the buffer had to grow.
func encodeGrow(enc Encoding, v any, initial, limit int) (buf []byte, n int, retries int, err error) {
	size := max(min(initial, limit), 1)
	for {
		buf = mempool.GlobalPool.Alloc(size)
		n, ok, err := enc.TryEncode(v, buf)
		if err != nil {
			mempool.GlobalPool.Put(buf)
			return nil, 0, retries, err
		}
		if ok {
			return buf, n, retries, nil
		}
		mempool.GlobalPool.Put(buf)
		if size >= limit {
			return nil, 0, retries, fmt.Errorf("%w: %T larger than %d bytes", ErrValueTooLarge, v, limit)
		}
		size = min(size*2, limit)
		retries++
	}
}

// codec is the encoding configuration a typed table captured when it was
// opened.
type codec struct {
	keys       Encoding
	values     Encoding
	keyInitial int
	valInitial int
	limit      int
	logger     Logger
}

// encodeKey returns the pooled scratch buffer and the encoded key within it.
func (c *codec) encodeKey(k any) (scratch, encoded []byte, err error) {
	return c.encode(c.keys, k, c.keyInitial, "key")
}

func (c *codec) encodeValue(v any) (scratch, encoded []byte, err error) {
	return c.encode(c.values, v, c.valInitial, "value")
}

func (c *codec) encode(enc Encoding, v any, initial int, what string) ([]byte, []byte, error) {
	buf, n, retries, err := encodeGrow(enc, v, initial, c.limit)
	if err != nil {
		return nil, nil, err
	}
	if retries > 0 {
		c.logger.Debugf("%s%s of type %T needed %d buffer growths (%d bytes)", logging.NSEncoding, what, v, retries, n)
	}
	return buf, buf[:n], nil
}

func release(scratch []byte) {
	mempool.GlobalPool.Put(scratch)
}

package cellarkv

// encoding_compressed.go implements value compression on top of another encoding.

import (
	"fmt"

	"github.com/aalhour/cellarkv/internal/compression"
	"github.com/aalhour/cellarkv/internal/mempool"
)

// compressedEncoding compresses whatever its inner encoding produces.
type compressedEncoding struct {
	inner Encoding
	codec compression.Type
	limit int
}

// Compressed wraps inner so that encoded bytes are compressed with codec
// and prefixed with a one-byte codec tag. Compressed bytes do not sort like
// the values they hold, so the result is only meant for values.
func Compressed(inner Encoding, codec CompressionType) Encoding {
	if inner == nil {
		inner = Primitive
	}
	return &compressedEncoding{inner: inner, codec: codec, limit: DefaultOptions().MaxEncodedSize}
}

// TryEncode implements Encoding.
func (c *compressedEncoding) TryEncode(v any, dst []byte) (int, bool, error) {
	raw, n, _, err := encodeGrow(c.inner, v, len(dst), c.limit)
	if err != nil {
		return 0, false, err
	}
	defer mempool.GlobalPool.Put(raw)

	framed, err := compression.Frame(c.codec, raw[:n])
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s: %w", ErrEncoding, c.codec, err)
	}
	if len(framed) > len(dst) {
		return 0, false, nil
	}
	return copy(dst, framed), true, nil
}

// Decode implements Encoding.
func (c *compressedEncoding) Decode(src []byte, out any) error {
	raw, err := compression.Unframe(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return c.inner.Decode(raw, out)
}

package cellarkv

// encoding_json.go implements the JSON encoding.

import (
	"encoding/json"
	"errors"
	"fmt"
)

// JSONEncoding stores primitive kinds exactly like Primitive and every
// other type as compact JSON.
type JSONEncoding struct{}

// JSON is the JSON encoding.
var JSON = JSONEncoding{}

var _ Encoding = JSON

var errShortBuffer = errors.New("short buffer")

// boundedWriter writes into a fixed slice and fails instead of growing.
type boundedWriter struct {
	buf []byte
	n   int
}

func (w *boundedWriter) Write(p []byte) (int, error) {
	if len(w.buf)-w.n < len(p) {
		return 0, errShortBuffer
	}
	w.n += copy(w.buf[w.n:], p)
	return len(p), nil
}

// TryEncode implements Encoding.
func (JSONEncoding) TryEncode(v any, dst []byte) (int, bool, error) {
	if isPrimitive(v) {
		return Primitive.TryEncode(v, dst)
	}
	// json.Encoder appends a newline, so leave room for it.
	w := &boundedWriter{buf: dst}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		if errors.Is(err, errShortBuffer) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("%w: json: %w", ErrEncoding, err)
	}
	n := w.n
	if n > 0 && dst[n-1] == '\n' {
		n--
	}
	return n, true, nil
}

// Decode implements Encoding.
func (JSONEncoding) Decode(src []byte, out any) error {
	if isPrimitivePtr(out) {
		return Primitive.Decode(src, out)
	}
	if err := json.Unmarshal(src, out); err != nil {
		return fmt.Errorf("%w: json: %w", ErrEncoding, err)
	}
	return nil
}

package cellarkv

// encoding_proto.go implements the protocol buffers encoding.

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// ProtoEncoding stores primitive kinds exactly like Primitive and
// proto.Message values in deterministic wire format, so equal messages
// always produce equal bytes.
//
// Typed tables declare message values as pointer types, for example
// OpenTypedTable[string, *pb.Person]. Decode allocates the message when
// the target pointer is nil.
type ProtoEncoding struct{}

// Proto is the protocol buffers encoding.
var Proto = ProtoEncoding{}

var _ Encoding = Proto

var protoMarshal = proto.MarshalOptions{Deterministic: true}

// TryEncode implements Encoding.
func (ProtoEncoding) TryEncode(v any, dst []byte) (int, bool, error) {
	if isPrimitive(v) {
		return Primitive.TryEncode(v, dst)
	}
	m, ok := v.(proto.Message)
	if !ok {
		return 0, false, unsupportedType(v)
	}
	if protoMarshal.Size(m) > len(dst) {
		return 0, false, nil
	}
	out, err := protoMarshal.MarshalAppend(dst[:0], m)
	if err != nil {
		return 0, false, fmt.Errorf("%w: proto: %w", ErrEncoding, err)
	}
	return len(out), true, nil
}

// Decode implements Encoding. out is either a proto.Message or a pointer to
// a message pointer.
func (ProtoEncoding) Decode(src []byte, out any) error {
	if isPrimitivePtr(out) {
		return Primitive.Decode(src, out)
	}
	m, err := protoTarget(out)
	if err != nil {
		return err
	}
	if err := proto.Unmarshal(src, m); err != nil {
		return fmt.Errorf("%w: proto: %w", ErrEncoding, err)
	}
	return nil
}

func protoTarget(out any) (proto.Message, error) {
	rv := reflect.ValueOf(out)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		elem := rv.Elem()
		// **T where *T is a message.
		if elem.Kind() == reflect.Pointer {
			if elem.Type().Implements(messageType) {
				if elem.IsNil() {
					elem.Set(reflect.New(elem.Type().Elem()))
				}
				return elem.Interface().(proto.Message), nil
			}
		}
	}
	if m, ok := out.(proto.Message); ok {
		return m, nil
	}
	return nil, unsupportedType(out)
}

var messageType = reflect.TypeFor[proto.Message]()

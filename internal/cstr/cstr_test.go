package cstr

import (
	"errors"
	"testing"
)

func TestFromStringRoundTrip(t *testing.T) {
	for _, name := range []string{"", "persons", "tåble-名前"} {
		s := FromString(name)
		if s.Len() != len(name)+1 {
			t.Errorf("Len(%q) = %d, want %d", name, s.Len(), len(name)+1)
		}
		got, err := Decode(s.Bytes())
		if err != nil {
			t.Fatalf("Decode(%q) failed: %v", name, err)
		}
		if got != name {
			t.Errorf("Decode = %q, want %q", got, name)
		}
		s.Release()
		s.Release()
	}
}

func TestFromBytesMatchesFromString(t *testing.T) {
	a := FromString("orders")
	b := FromBytes([]byte("orders"))
	defer a.Release()
	defer b.Release()
	if string(a.Bytes()) != string(b.Bytes()) {
		t.Errorf("FromBytes = %q, FromString = %q", b.Bytes(), a.Bytes())
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"empty", nil, ErrNotTerminated},
		{"unterminated", []byte("abc"), ErrNotTerminated},
		{"interior nul", []byte("a\x00b\x00"), ErrInteriorNUL},
		{"bad utf8", []byte{0xff, 0xfe, 0}, ErrInvalidUTF8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode(%q) error = %v, want %v", tt.in, err, tt.want)
			}
		})
	}
}

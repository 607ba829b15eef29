package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/danmuck/schemawire/internal/protocol"
)

func TestCatalogWidths(t *testing.T) {
	c := Default()
	want := map[string]int{
		"Char": 1, "Int8": 1, "Uint8": 1,
		"Int16": 2, "Uint16": 2,
		"Int32": 4, "Uint32": 4, "Float32": 4,
		"Int64": 8, "Uint64": 8, "Float64": 8,
		"String": 4,
	}
	if len(c.Names()) != len(want) {
		t.Fatalf("catalog has %d entries, want %d", len(c.Names()), len(want))
	}
	for name, width := range want {
		typ, ok := c.Lookup(name)
		if !ok {
			t.Fatalf("missing %s", name)
		}
		if typ.Width() != width {
			t.Fatalf("%s width=%d want=%d", name, typ.Width(), width)
		}
	}
	if c.SizeType().Kind() != KindUint32 {
		t.Fatalf("size type=%s", c.SizeType())
	}
	if _, ok := c.Lookup("Bogus"); ok {
		t.Fatalf("unexpected Bogus entry")
	}
}

func TestDefaultCatalogIsShared(t *testing.T) {
	if Default() != Default() {
		t.Fatalf("default catalog rebuilt")
	}
}

func TestReadWriteLittleEndian(t *testing.T) {
	c := Default()
	cases := []struct {
		name string
		v    any
		wire []byte
	}{
		{"Int16", int16(-2), []byte{0xfe, 0xff}},
		{"Uint32", uint32(42), []byte{42, 0, 0, 0}},
		{"Int64", int64(-1), []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
		{"Float32", float32(1), []byte{0, 0, 0x80, 0x3f}},
		{"Char", byte('A'), []byte{'A'}},
		{"String", []byte("ok"), []byte{2, 0, 0, 0, 'o', 'k'}},
	}
	for _, tc := range cases {
		typ, _ := c.Lookup(tc.name)
		buf := make([]byte, len(tc.wire))
		n, err := typ.Write(buf, 0, tc.v)
		if err != nil {
			t.Fatalf("%s write: %v", tc.name, err)
		}
		if n != len(tc.wire) || !bytes.Equal(buf, tc.wire) {
			t.Fatalf("%s wire=%v n=%d want=%v", tc.name, buf, n, tc.wire)
		}
		got, consumed, err := typ.Read(buf, 0)
		if err != nil {
			t.Fatalf("%s read: %v", tc.name, err)
		}
		if consumed != len(tc.wire) {
			t.Fatalf("%s consumed=%d", tc.name, consumed)
		}
		if raw, ok := got.([]byte); ok {
			if !bytes.Equal(raw, tc.v.([]byte)) {
				t.Fatalf("%s got=%q", tc.name, raw)
			}
			continue
		}
		if got != tc.v {
			t.Fatalf("%s got=%v (%T) want=%v", tc.name, got, got, tc.v)
		}
	}
}

func TestReadOutOfRange(t *testing.T) {
	c := Default()
	u32, _ := c.Lookup("Uint32")
	_, _, err := u32.Read([]byte{1, 2, 3}, 0)
	if !errors.Is(err, protocol.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	var oor *OutOfRangeError
	if !errors.As(err, &oor) || oor.Need != 4 || oor.Len != 3 {
		t.Fatalf("unexpected error detail: %+v", oor)
	}
}

func TestReadStringCorruptLength(t *testing.T) {
	str, _ := Default().Lookup("String")
	// claims 200 bytes, carries 2
	buf := []byte{200, 0, 0, 0, 'h', 'i'}
	_, _, err := str.Read(buf, 0)
	if !errors.Is(err, protocol.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestWriteOutOfRange(t *testing.T) {
	u16, _ := Default().Lookup("Uint16")
	_, err := u16.Write(make([]byte, 3), 2, uint16(7))
	if !errors.Is(err, protocol.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestWriteRejectsUncoercedValue(t *testing.T) {
	u16, _ := Default().Lookup("Uint16")
	_, err := u16.Write(make([]byte, 2), 0, 7)
	if !errors.Is(err, protocol.ErrValueType) {
		t.Fatalf("expected ErrValueType, got %v", err)
	}
}

func TestCoerce(t *testing.T) {
	c := Default()
	cases := []struct {
		name string
		in   any
		want any
	}{
		{"Int16", 3, int16(3)},
		{"Int16", float64(-2), int16(-2)},
		{"Uint8", int64(255), uint8(255)},
		{"Char", "x", byte('x')},
		{"Uint64", float64(1 << 40), uint64(1 << 40)},
		{"Int64", uint32(9), int64(9)},
		{"Float32", 1.5, float32(1.5)},
		{"Float64", int8(-4), float64(-4)},
		{"Int32", json.Number("17"), int32(17)},
		{"Float64", json.Number("0.25"), 0.25},
		{"Uint64", json.Number("9223372036854775809"), uint64(1<<63 + 1)},
		{"Uint64", json.Number("18446744073709551615"), uint64(math.MaxUint64)},
	}
	for _, tc := range cases {
		typ, _ := c.Lookup(tc.name)
		got, err := typ.Coerce(tc.in)
		if err != nil {
			t.Fatalf("%s coerce %v: %v", tc.name, tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%s coerce %v = %v (%T), want %v (%T)", tc.name, tc.in, got, got, tc.want, tc.want)
		}
	}
}

func TestCoerceRejects(t *testing.T) {
	c := Default()
	cases := []struct {
		name string
		in   any
		want error
	}{
		{"Int8", 128, protocol.ErrValueRange},
		{"Uint16", -1, protocol.ErrValueRange},
		{"Uint32", uint64(math.MaxUint32) + 1, protocol.ErrValueRange},
		{"Int32", 1.5, protocol.ErrValueRange},
		{"Int64", math.Inf(1), protocol.ErrValueRange},
		{"Float32", math.MaxFloat64, protocol.ErrValueRange},
		{"Uint8", "7", protocol.ErrValueType},
		{"Char", "xy", protocol.ErrValueType},
		{"Int16", nil, protocol.ErrValueType},
		{"String", "text", protocol.ErrValueType},
		{"Uint64", json.Number("18446744073709551616"), protocol.ErrValueRange},
		{"Uint32", json.Number("9223372036854775809"), protocol.ErrValueRange},
	}
	for _, tc := range cases {
		typ, _ := c.Lookup(tc.name)
		if _, err := typ.Coerce(tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s coerce %v: expected %v, got %v", tc.name, tc.in, tc.want, err)
		}
	}
}

func TestSizeHelpers(t *testing.T) {
	c := Default()
	buf := make([]byte, 4)
	if _, err := c.PutSize(buf, 0, 3); err != nil {
		t.Fatalf("put size: %v", err)
	}
	n, err := c.ReadSize(buf, 0)
	if err != nil || n != 3 {
		t.Fatalf("read size n=%d err=%v", n, err)
	}
	if _, err := c.PutSize(buf, 0, -1); !errors.Is(err, protocol.ErrValueRange) {
		t.Fatalf("expected ErrValueRange, got %v", err)
	}
}

func TestKindString(t *testing.T) {
	if KindFloat64.String() != "Float64" || Kind(99).String() != "invalid Kind" {
		t.Fatalf("unexpected kind names")
	}
	if !KindUint64.IsInteger() || KindFloat32.IsInteger() || KindString.IsInteger() {
		t.Fatalf("unexpected IsInteger result")
	}
}

package types

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/danmuck/schemawire/internal/protocol"
)

// OutOfRangeError reports an access of Need bytes at Offset in a buffer of Len bytes.
type OutOfRangeError struct {
	Offset int
	Need   int
	Len    int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("protocol: need %d bytes at offset %d, buffer has %d", e.Need, e.Offset, e.Len)
}

func (e *OutOfRangeError) Unwrap() error { return protocol.ErrOutOfRange }

// CheckRange returns an *OutOfRangeError unless buf[off:off+n] is addressable.
func CheckRange(buf []byte, off, n int) error {
	if off < 0 || n < 0 || off > len(buf) || len(buf)-off < n {
		return &OutOfRangeError{Offset: off, Need: n, Len: len(buf)}
	}
	return nil
}

// Read decodes one value at off. It returns the value and the number of bytes
// consumed. Strings come back as a copied []byte.
func (t Type) Read(buf []byte, off int) (any, int, error) {
	if t.kind == KindString {
		return t.readString(buf, off)
	}
	if err := CheckRange(buf, off, t.width); err != nil {
		return nil, 0, err
	}
	b := buf[off : off+t.width]
	switch t.kind {
	case KindChar, KindUint8:
		return b[0], 1, nil
	case KindInt8:
		return int8(b[0]), 1, nil
	case KindInt16:
		return int16(binary.LittleEndian.Uint16(b)), 2, nil
	case KindUint16:
		return binary.LittleEndian.Uint16(b), 2, nil
	case KindInt32:
		return int32(binary.LittleEndian.Uint32(b)), 4, nil
	case KindUint32:
		return binary.LittleEndian.Uint32(b), 4, nil
	case KindInt64:
		return int64(binary.LittleEndian.Uint64(b)), 8, nil
	case KindUint64:
		return binary.LittleEndian.Uint64(b), 8, nil
	case KindFloat32:
		return math.Float32frombits(binary.LittleEndian.Uint32(b)), 4, nil
	case KindFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), 8, nil
	}
	return nil, 0, fmt.Errorf("types: read of invalid kind %d", t.kind)
}

func (t Type) readString(buf []byte, off int) (any, int, error) {
	if err := CheckRange(buf, off, t.width); err != nil {
		return nil, 0, err
	}
	n := binary.LittleEndian.Uint32(buf[off:])
	start := off + t.width
	if uint64(n) > uint64(len(buf)-start) {
		return nil, 0, &OutOfRangeError{Offset: start, Need: int(n), Len: len(buf)}
	}
	raw := make([]byte, n)
	copy(raw, buf[start:start+int(n)])
	return raw, t.width + int(n), nil
}

// Write encodes v at off and returns the number of bytes written. v must
// already have the exact Go type produced by Coerce.
func (t Type) Write(buf []byte, off int, v any) (int, error) {
	n := t.width
	if t.kind == KindString {
		raw, ok := v.([]byte)
		if !ok {
			return 0, t.mismatch(v)
		}
		if uint64(len(raw)) > math.MaxUint32 {
			return 0, fmt.Errorf("%w: string of %d bytes", protocol.ErrValueRange, len(raw))
		}
		n += len(raw)
	}
	if err := CheckRange(buf, off, n); err != nil {
		return 0, err
	}
	b := buf[off:]
	switch t.kind {
	case KindChar, KindUint8:
		x, ok := v.(uint8)
		if !ok {
			return 0, t.mismatch(v)
		}
		b[0] = x
	case KindInt8:
		x, ok := v.(int8)
		if !ok {
			return 0, t.mismatch(v)
		}
		b[0] = byte(x)
	case KindInt16:
		x, ok := v.(int16)
		if !ok {
			return 0, t.mismatch(v)
		}
		binary.LittleEndian.PutUint16(b, uint16(x))
	case KindUint16:
		x, ok := v.(uint16)
		if !ok {
			return 0, t.mismatch(v)
		}
		binary.LittleEndian.PutUint16(b, x)
	case KindInt32:
		x, ok := v.(int32)
		if !ok {
			return 0, t.mismatch(v)
		}
		binary.LittleEndian.PutUint32(b, uint32(x))
	case KindUint32:
		x, ok := v.(uint32)
		if !ok {
			return 0, t.mismatch(v)
		}
		binary.LittleEndian.PutUint32(b, x)
	case KindInt64:
		x, ok := v.(int64)
		if !ok {
			return 0, t.mismatch(v)
		}
		binary.LittleEndian.PutUint64(b, uint64(x))
	case KindUint64:
		x, ok := v.(uint64)
		if !ok {
			return 0, t.mismatch(v)
		}
		binary.LittleEndian.PutUint64(b, x)
	case KindFloat32:
		x, ok := v.(float32)
		if !ok {
			return 0, t.mismatch(v)
		}
		binary.LittleEndian.PutUint32(b, math.Float32bits(x))
	case KindFloat64:
		x, ok := v.(float64)
		if !ok {
			return 0, t.mismatch(v)
		}
		binary.LittleEndian.PutUint64(b, math.Float64bits(x))
	case KindString:
		raw := v.([]byte)
		binary.LittleEndian.PutUint32(b, uint32(len(raw)))
		copy(b[t.width:], raw)
	default:
		return 0, fmt.Errorf("types: write of invalid kind %d", t.kind)
	}
	return n, nil
}

// PutSize writes a length or count with the size type at off.
func (c *Catalog) PutSize(buf []byte, off, n int) (int, error) {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: size %d", protocol.ErrValueRange, n)
	}
	return c.sizeType.Write(buf, off, uint32(n))
}

// ReadSize reads a length or count written by PutSize.
func (c *Catalog) ReadSize(buf []byte, off int) (int, error) {
	v, _, err := c.sizeType.Read(buf, off)
	if err != nil {
		return 0, err
	}
	return int(v.(uint32)), nil
}

func (t Type) mismatch(v any) error {
	return fmt.Errorf("%w: %s cannot hold %T", protocol.ErrValueType, t.name, v)
}

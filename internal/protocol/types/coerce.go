package types

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/danmuck/schemawire/internal/protocol"
)

// Coerce converts v into the Go type Write expects for t: uint8 for Char and
// Uint8, int8 for Int8 and so on. Any Go integer or float is accepted as long
// as it fits; floats must be integral when t is an integer kind. A one-byte
// string is accepted for Char. String accepts only raw []byte; text encoding
// happens before the catalog is involved.
func (t Type) Coerce(v any) (any, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("types: coerce with invalid type")
	}
	if t.kind == KindString {
		if raw, ok := v.([]byte); ok {
			return raw, nil
		}
		return nil, t.mismatch(v)
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return t.fromInt(i)
		}
		// above MaxInt64 but still exact for Uint64
		if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
			return t.fromUint(u)
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", protocol.ErrValueType, t.name, err)
		}
		return t.fromFloat(f)
	}
	if v == nil {
		return nil, t.mismatch(v)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return t.fromInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return t.fromUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return t.fromFloat(rv.Float())
	case reflect.String:
		if t.kind == KindChar && rv.Len() == 1 {
			return rv.String()[0], nil
		}
	}
	return nil, t.mismatch(v)
}

func (t Type) fromInt(i int64) (any, error) {
	switch t.kind {
	case KindInt8:
		if i < math.MinInt8 || i > math.MaxInt8 {
			return nil, t.overflow(i)
		}
		return int8(i), nil
	case KindInt16:
		if i < math.MinInt16 || i > math.MaxInt16 {
			return nil, t.overflow(i)
		}
		return int16(i), nil
	case KindInt32:
		if i < math.MinInt32 || i > math.MaxInt32 {
			return nil, t.overflow(i)
		}
		return int32(i), nil
	case KindInt64:
		return i, nil
	case KindFloat32:
		return float32(i), nil
	case KindFloat64:
		return float64(i), nil
	}
	if i < 0 {
		return nil, t.overflow(i)
	}
	return t.fromUint(uint64(i))
}

func (t Type) fromUint(u uint64) (any, error) {
	switch t.kind {
	case KindChar, KindUint8:
		if u > math.MaxUint8 {
			return nil, t.overflow(u)
		}
		return uint8(u), nil
	case KindUint16:
		if u > math.MaxUint16 {
			return nil, t.overflow(u)
		}
		return uint16(u), nil
	case KindUint32:
		if u > math.MaxUint32 {
			return nil, t.overflow(u)
		}
		return uint32(u), nil
	case KindUint64:
		return u, nil
	case KindFloat32:
		return float32(u), nil
	case KindFloat64:
		return float64(u), nil
	}
	if u > math.MaxInt64 {
		return nil, t.overflow(u)
	}
	return t.fromInt(int64(u))
}

func (t Type) fromFloat(f float64) (any, error) {
	switch t.kind {
	case KindFloat32:
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return nil, t.overflow(f)
		}
		return float32(f), nil
	case KindFloat64:
		return f, nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("%w: %s cannot hold non-integral %v", protocol.ErrValueRange, t.name, f)
	}
	if f < 0 {
		if f < math.MinInt64 {
			return nil, t.overflow(f)
		}
		return t.fromInt(int64(f))
	}
	if f >= math.MaxUint64 {
		return nil, t.overflow(f)
	}
	return t.fromUint(uint64(f))
}

func (t Type) overflow(v any) error {
	return fmt.Errorf("%w: %v does not fit %s", protocol.ErrValueRange, v, t.name)
}

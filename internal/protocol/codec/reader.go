package codec

import (
	"fmt"

	"github.com/danmuck/schemawire/internal/protocol/schema"
	"github.com/danmuck/schemawire/internal/protocol/types"
)

// Deserialize decodes one s-shaped value at off with the default codec.
func Deserialize(s *schema.Struct, buf []byte, off int) (Record, int, error) {
	return defaultCodec.Deserialize(s, buf, off)
}

// Deserialize decodes one value of s starting at off and returns it with the
// number of bytes consumed, which is s.StaticSize() plus the drift caused by
// variable length content.
//
// Scalars decode to the exact Go type of their wire type (uint32 for Uint32,
// byte for Char, string for String), arrays to []any and nested schemas to
// Record. Char always decodes to a byte, even when it was encoded from a
// one-character string, so {"c": "z"} comes back as {"c": byte('z')}.
// Array elements of nested schemas advance by the bytes each element
// actually consumed, so nested variable length content is supported.
func (c *Codec) Deserialize(s *schema.Struct, buf []byte, off int) (Record, int, error) {
	if err := types.CheckRange(buf, off, 0); err != nil {
		return nil, 0, err
	}
	rec, n, err := c.readStruct(s, buf, off)
	if err != nil {
		return nil, 0, err
	}
	c.log().Trace().Str("schema", s.Name()).Int("offset", off).Int("bytes", n).Msg("codec.Deserialize")
	return rec, n, nil
}

func (c *Codec) readStruct(s *schema.Struct, buf []byte, base int) (Record, int, error) {
	sizeWidth := s.SizeType().Width()
	rec := make(Record, s.NumField())
	drift := 0
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		pos := base + f.Offset + drift
		v, used, err := c.readField(s.Catalog(), f.Spec, buf, pos)
		if err != nil {
			return nil, 0, fmt.Errorf("%s.%s: %w", s.Name(), f.Name, err)
		}
		drift += used - f.Spec.Footprint(sizeWidth)
		rec[f.Name] = v
	}
	return rec, s.StaticSize() + drift, nil
}

// readField reads one field at pos and returns every byte it occupied,
// including length and count prefixes.
func (c *Codec) readField(cat *types.Catalog, spec schema.TypeSpec, buf []byte, pos int) (any, int, error) {
	if !spec.IsArray {
		return c.readElem(spec, buf, pos)
	}
	cur := pos
	count := spec.Length
	if spec.IsDynamic() {
		n, err := cat.ReadSize(buf, cur)
		if err != nil {
			return nil, 0, err
		}
		cur += cat.SizeType().Width()
		// reject counts the remaining bytes could never hold before allocating
		minimal := minElemSize(spec)
		if remaining := len(buf) - cur; n > remaining/minimal {
			return nil, 0, &types.OutOfRangeError{Offset: cur, Need: n * minimal, Len: len(buf)}
		}
		count = n
	}
	elems := make([]any, count)
	for i := range elems {
		v, used, err := c.readElem(spec, buf, cur)
		if err != nil {
			return nil, 0, fmt.Errorf("[%d]: %w", i, err)
		}
		elems[i] = v
		cur += used
	}
	return elems, cur - pos, nil
}

func (c *Codec) readElem(spec schema.TypeSpec, buf []byte, pos int) (any, int, error) {
	switch spec.Kind {
	case schema.SpecNested:
		return c.readStruct(spec.Nested, buf, pos)
	case schema.SpecPrimitive:
		v, used, err := spec.Basic.Read(buf, pos)
		if err != nil {
			return nil, 0, err
		}
		if !spec.Basic.IsString() {
			return v, used, nil
		}
		text, err := c.text.Decode(v.([]byte))
		if err != nil {
			return nil, 0, err
		}
		return text, used, nil
	}
	return nil, 0, fmt.Errorf("codec: invalid spec kind %s", spec.Kind)
}

func minElemSize(spec schema.TypeSpec) int {
	if spec.ElemWidth > 0 {
		return spec.ElemWidth
	}
	return 1
}

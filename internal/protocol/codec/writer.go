package codec

import (
	"fmt"

	"github.com/danmuck/schemawire/internal/protocol"
	"github.com/danmuck/schemawire/internal/protocol/schema"
)

// Write emits n into buf starting at off and returns the end offset. Fields
// are written in declaration order behind a single cursor.
func Write(n *Node, buf []byte, off int) (int, error) {
	cat := n.schema.Catalog()
	cur := off
	for _, nf := range n.fields {
		spec := nf.field.Spec
		if !spec.IsArray {
			w, err := writeElem(spec, nf.value, buf, cur)
			if err != nil {
				return 0, fmt.Errorf("%s.%s: %w", n.schema.Name(), nf.field.Name, err)
			}
			cur += w
			continue
		}
		if spec.IsDynamic() {
			w, err := cat.PutSize(buf, cur, len(nf.elems))
			if err != nil {
				return 0, fmt.Errorf("%s.%s: %w", n.schema.Name(), nf.field.Name, err)
			}
			cur += w
		}
		for i, e := range nf.elems {
			w, err := writeElem(spec, e, buf, cur)
			if err != nil {
				return 0, fmt.Errorf("%s.%s[%d]: %w", n.schema.Name(), nf.field.Name, i, err)
			}
			cur += w
		}
	}
	return cur, nil
}

func writeElem(spec schema.TypeSpec, v any, buf []byte, off int) (int, error) {
	switch spec.Kind {
	case schema.SpecNested:
		end, err := Write(v.(*Node), buf, off)
		if err != nil {
			return 0, err
		}
		return end - off, nil
	case schema.SpecPrimitive:
		return spec.Basic.Write(buf, off, v)
	}
	return 0, fmt.Errorf("codec: invalid spec kind %s", spec.Kind)
}

// Serialize encodes rec with the default codec.
func Serialize(s *schema.Struct, rec Record) ([]byte, error) {
	return defaultCodec.Serialize(s, rec)
}

// Serialize builds the value tree, sizes it, allocates exactly that many
// bytes and writes. The returned slice length always equals CalcSize.
func (c *Codec) Serialize(s *schema.Struct, rec Record) ([]byte, error) {
	n, err := c.BuildTree(s, rec)
	if err != nil {
		return nil, err
	}
	size := CalcSize(n)
	buf := make([]byte, size)
	end, err := Write(n, buf, 0)
	if err != nil {
		return nil, err
	}
	if end != size {
		return nil, fmt.Errorf("%w: %s wrote %d of %d bytes", protocol.ErrSizeMismatch, s.Name(), end, size)
	}
	c.log().Trace().Str("schema", s.Name()).Int("bytes", size).Msg("codec.Serialize")
	return buf, nil
}

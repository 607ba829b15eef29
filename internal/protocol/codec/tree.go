package codec

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/danmuck/schemawire/internal/protocol"
	"github.com/danmuck/schemawire/internal/protocol/schema"
)

// Node pairs a compiled struct with coerced field values. String values are
// held as encoded bytes so sizing and writing see the same buffer.
type Node struct {
	schema *schema.Struct
	fields []nodeField
}

type nodeField struct {
	field schema.Field
	value any   // scalar: primitive value, []byte for String, *Node for nested
	elems []any // array elements, same representation as value
}

// Schema returns the compiled struct the node was built from.
func (n *Node) Schema() *schema.Struct { return n.schema }

// Size is CalcSize(n).
func (n *Node) Size() int { return CalcSize(n) }

// BuildTree builds a value tree with the default codec.
func BuildTree(s *schema.Struct, rec Record) (*Node, error) {
	return defaultCodec.BuildTree(s, rec)
}

// BuildTree pairs every field of s with rec[field.Name]. Every field must be
// present; fixed arrays must have exactly their declared length.
func (c *Codec) BuildTree(s *schema.Struct, rec Record) (*Node, error) {
	if s == nil {
		return nil, errors.New("codec: nil schema")
	}
	n := &Node{schema: s, fields: make([]nodeField, s.NumField())}
	for i := range n.fields {
		f := s.Field(i)
		nf := nodeField{field: f}
		raw, ok := rec[f.Name]
		if !ok {
			return nil, fmt.Errorf("%s.%s: %w", s.Name(), f.Name, protocol.ErrMissingValue)
		}
		var err error
		if f.Spec.IsArray {
			nf.elems, err = c.buildArray(f.Spec, raw)
		} else {
			nf.value, err = c.buildElem(f.Spec, raw)
		}
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", s.Name(), f.Name, err)
		}
		n.fields[i] = nf
	}
	return n, nil
}

func (c *Codec) buildArray(spec schema.TypeSpec, raw any) ([]any, error) {
	if raw == nil {
		if spec.IsDynamic() {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: got nil, want %d elements", protocol.ErrArrayLength, spec.Length)
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: %s array cannot hold %T", protocol.ErrValueType, spec.TypeName(), raw)
	}
	if !spec.IsDynamic() && rv.Len() != spec.Length {
		return nil, fmt.Errorf("%w: got %d elements, want %d", protocol.ErrArrayLength, rv.Len(), spec.Length)
	}
	elems := make([]any, rv.Len())
	for i := range elems {
		v, err := c.buildElem(spec, rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		elems[i] = v
	}
	return elems, nil
}

func (c *Codec) buildElem(spec schema.TypeSpec, raw any) (any, error) {
	switch spec.Kind {
	case schema.SpecNested:
		rec, ok := raw.(Record)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot hold %T", protocol.ErrValueType, spec.Nested.Name(), raw)
		}
		return c.BuildTree(spec.Nested, rec)
	case schema.SpecPrimitive:
		if !spec.Basic.IsString() {
			return spec.Basic.Coerce(raw)
		}
		switch x := raw.(type) {
		case string:
			return c.text.Encode(x)
		case []byte:
			return x, nil
		default:
			return nil, fmt.Errorf("%w: String cannot hold %T", protocol.ErrValueType, raw)
		}
	}
	return nil, fmt.Errorf("codec: invalid spec kind %s", spec.Kind)
}

// CalcSize returns the exact serialized size of n: static widths for
// primitives, length prefix plus bytes for strings, a count prefix for
// dynamic arrays and the recursive size of nested nodes.
func CalcSize(n *Node) int {
	sizeWidth := n.schema.SizeType().Width()
	total := 0
	for _, nf := range n.fields {
		spec := nf.field.Spec
		if !spec.IsArray {
			total += elemSize(spec, nf.value)
			continue
		}
		if spec.IsDynamic() {
			total += sizeWidth
		}
		for _, e := range nf.elems {
			total += elemSize(spec, e)
		}
	}
	return total
}

func elemSize(spec schema.TypeSpec, v any) int {
	switch {
	case spec.IsComplex():
		return CalcSize(v.(*Node))
	case spec.IsString():
		return spec.Basic.Width() + len(v.([]byte))
	default:
		return spec.ElemWidth
	}
}

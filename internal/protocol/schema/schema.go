// Package schema compiles declarative field lists into immutable byte layouts.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/schemawire/internal/protocol"
	"github.com/danmuck/schemawire/internal/protocol/types"
	"github.com/rs/zerolog/log"
)

// FieldDef is one {name, type} pair of a schema definition.
type FieldDef struct {
	Name string `json:"name" toml:"name"`
	Type string `json:"type" toml:"type"`
}

// Definition is the declarative schema input. ID 0 means the schema is not
// addressable by message-type id.
type Definition struct {
	ID     uint32     `json:"id,omitempty" toml:"id"`
	Fields []FieldDef `json:"fields" toml:"fields"`
}

// SpecKind separates primitive fields from nested-schema references.
type SpecKind uint8

const (
	SpecPrimitive SpecKind = iota + 1
	SpecNested
)

func (k SpecKind) String() string {
	switch k {
	case SpecPrimitive:
		return "primitive"
	case SpecNested:
		return "nested"
	default:
		return "invalid SpecKind"
	}
}

// TypeSpec is a resolved field type. Exactly one of Basic or Nested is set,
// selected by Kind.
type TypeSpec struct {
	Kind      SpecKind
	Basic     types.Type
	Nested    *Struct
	ElemWidth int
	Length    int // 0 = dynamic when IsArray
	IsArray   bool
}

// IsComplex reports whether the field refers to a nested schema.
func (s TypeSpec) IsComplex() bool { return s.Kind == SpecNested }

// IsDynamic reports whether the field is a count-prefixed array.
func (s TypeSpec) IsDynamic() bool { return s.IsArray && s.Length == 0 }

// IsString reports whether elements are the length-prefixed String type.
func (s TypeSpec) IsString() bool { return s.Kind == SpecPrimitive && s.Basic.IsString() }

// Footprint is the static number of bytes the field contributes to layout:
// the count prefix for dynamic arrays, ElemWidth*Length for fixed arrays,
// ElemWidth for scalars.
func (s TypeSpec) Footprint(sizeWidth int) int {
	switch {
	case s.IsDynamic():
		return sizeWidth
	case s.IsArray:
		return s.ElemWidth * s.Length
	default:
		return s.ElemWidth
	}
}

// TypeName returns the element type name.
func (s TypeSpec) TypeName() string {
	if s.Kind == SpecNested {
		return s.Nested.Name()
	}
	return s.Basic.Name()
}

// Field is one compiled field. Offset assumes every previous field occupies
// only its static footprint; decoders add the running drift.
type Field struct {
	Name       string
	TypeString string
	Offset     int
	Spec       TypeSpec
}

// Struct is a compiled schema. It is immutable and safe for concurrent use.
type Struct struct {
	name       string
	id         uint32
	staticSize int
	fields     []Field
	index      map[string]int
	catalog    *types.Catalog
}

func (s *Struct) Name() string { return s.name }

func (s *Struct) ID() uint32 { return s.id }

// StaticSize is the sum of every field's static footprint.
func (s *Struct) StaticSize() int { return s.staticSize }

func (s *Struct) NumField() int { return len(s.fields) }

// Field returns the i-th field in declaration order.
func (s *Struct) Field(i int) Field { return s.fields[i] }

// Fields returns a copy of the ordered field list.
func (s *Struct) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Struct) FieldByName(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Catalog returns the primitive catalog the struct was compiled against.
func (s *Struct) Catalog() *types.Catalog { return s.catalog }

// SizeType returns the count/length type used by the struct's layout.
func (s *Struct) SizeType() types.Type { return s.catalog.SizeType() }

func (s *Struct) String() string {
	parts := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		parts = append(parts, fmt.Sprintf("%s:%s@%d", f.Name, f.TypeString, f.Offset))
	}
	return fmt.Sprintf("%s{id=%d size=%d %s}", s.name, s.id, s.staticSize, strings.Join(parts, " "))
}

// UnknownTypeError reports a field type that resolves to neither a primitive
// nor a known nested schema.
type UnknownTypeError struct {
	Schema string
	Field  string
	Type   string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("schema %q field %q: unknown type %q", e.Schema, e.Field, e.Type)
}

func (e *UnknownTypeError) Unwrap() error { return protocol.ErrUnknownType }

// Compiler resolves definitions against one primitive catalog.
type Compiler struct {
	catalog *types.Catalog
}

// NewCompiler returns a compiler bound to catalog; nil selects types.Default.
func NewCompiler(catalog *types.Catalog) *Compiler {
	if catalog == nil {
		catalog = types.Default()
	}
	return &Compiler{catalog: catalog}
}

func (c *Compiler) Catalog() *types.Catalog { return c.catalog }

// Compile compiles def with the default catalog.
func Compile(name string, def Definition, nested map[string]*Struct) (*Struct, error) {
	return NewCompiler(nil).Compile(name, def, nested)
}

// MustCompile is Compile for static schemas; it panics on error.
func MustCompile(name string, def Definition, nested map[string]*Struct) *Struct {
	s, err := Compile(name, def, nested)
	if err != nil {
		panic(err)
	}
	return s
}

// Compile resolves every field of def and computes static offsets. Names
// resolve against the catalog first, then against nested. Any failure aborts
// the whole compilation.
func (c *Compiler) Compile(name string, def Definition, nested map[string]*Struct) (*Struct, error) {
	s := &Struct{
		name:    name,
		id:      def.ID,
		fields:  make([]Field, 0, len(def.Fields)),
		index:   make(map[string]int, len(def.Fields)),
		catalog: c.catalog,
	}
	sizeWidth := c.catalog.SizeType().Width()
	offset := 0
	for _, fd := range def.Fields {
		fieldName := strings.TrimSpace(fd.Name)
		if fieldName == "" {
			return nil, fmt.Errorf("%w: schema %q has a field without a name", protocol.ErrInvalidSchema, name)
		}
		if _, dup := s.index[fieldName]; dup {
			return nil, fmt.Errorf("%w: schema %q declares field %q twice", protocol.ErrInvalidSchema, name, fieldName)
		}
		spec, err := c.resolve(fd.Type, nested)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownType) {
				return nil, &UnknownTypeError{Schema: name, Field: fieldName, Type: fd.Type}
			}
			return nil, fmt.Errorf("schema %q field %q: %w", name, fieldName, err)
		}
		s.index[fieldName] = len(s.fields)
		s.fields = append(s.fields, Field{
			Name:       fieldName,
			TypeString: fd.Type,
			Offset:     offset,
			Spec:       spec,
		})
		offset += spec.Footprint(sizeWidth)
	}
	s.staticSize = offset
	log.Debug().Str("schema", name).Uint32("id", s.id).Int("fields", len(s.fields)).
		Int("static_size", s.staticSize).Msg("schema compiled")
	return s, nil
}

func (c *Compiler) resolve(raw string, nested map[string]*Struct) (TypeSpec, error) {
	name, length, isArray := ParseType(raw)
	spec := TypeSpec{Length: length, IsArray: isArray}
	if basic, ok := c.catalog.Lookup(name); ok {
		spec.Kind = SpecPrimitive
		spec.Basic = basic
		spec.ElemWidth = basic.Width()
		return spec, nil
	}
	if ref, ok := nested[name]; ok && ref != nil {
		if ref.catalog != c.catalog {
			return TypeSpec{}, fmt.Errorf("%w: nested schema %q was compiled against another catalog", protocol.ErrInvalidSchema, name)
		}
		spec.Kind = SpecNested
		spec.Nested = ref
		spec.ElemWidth = ref.staticSize
		return spec, nil
	}
	return TypeSpec{}, protocol.ErrUnknownType
}

// References lists the distinct type names def uses that are not catalog
// primitives, in first-use order.
func References(def Definition, catalog *types.Catalog) []string {
	if catalog == nil {
		catalog = types.Default()
	}
	seen := make(map[string]struct{})
	var refs []string
	for _, fd := range def.Fields {
		name, _, _ := ParseType(fd.Type)
		if _, ok := catalog.Lookup(name); ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		refs = append(refs, name)
	}
	return refs
}

// Package types holds the primitive wire type catalog.
//
// Every primitive is little-endian and tightly packed. String is a 4-byte
// unsigned length followed by that many raw bytes, no terminator.
package types

import (
	"sort"
	"sync"
)

// Kind identifies a primitive wire type.
type Kind uint8

const (
	KindChar Kind = iota + 1
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindString
)

var kindNames = map[Kind]string{
	KindChar:    "Char",
	KindInt8:    "Int8",
	KindUint8:   "Uint8",
	KindInt16:   "Int16",
	KindUint16:  "Uint16",
	KindInt32:   "Int32",
	KindUint32:  "Uint32",
	KindInt64:   "Int64",
	KindUint64:  "Uint64",
	KindFloat32: "Float32",
	KindFloat64: "Float64",
	KindString:  "String",
}

var kindWidths = map[Kind]int{
	KindChar:    1,
	KindInt8:    1,
	KindUint8:   1,
	KindInt16:   2,
	KindUint16:  2,
	KindInt32:   4,
	KindUint32:  4,
	KindInt64:   8,
	KindUint64:  8,
	KindFloat32: 4,
	KindFloat64: 8,
	KindString:  4, // length prefix only
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid Kind"
}

// IsInteger reports whether k is one of the fixed-width integer kinds.
func (k Kind) IsInteger() bool {
	switch k {
	case KindInt8, KindUint8, KindInt16, KindUint16, KindInt32, KindUint32, KindInt64, KindUint64:
		return true
	}
	return false
}

// Type is one catalog entry: a name, a byte width and its read/write operations.
type Type struct {
	name  string
	kind  Kind
	width int
}

func newType(k Kind) Type {
	return Type{name: kindNames[k], kind: k, width: kindWidths[k]}
}

// Name returns the catalog name, e.g. "Uint32".
func (t Type) Name() string { return t.name }

// Kind returns the primitive kind.
func (t Type) Kind() Kind { return t.kind }

// Width returns the static byte width. For String it is the length prefix width.
func (t Type) Width() int { return t.width }

// IsString reports whether t is the length-prefixed String type.
func (t Type) IsString() bool { return t.kind == KindString }

// Valid reports whether t came from a catalog.
func (t Type) Valid() bool { return t.kind != 0 }

func (t Type) String() string { return t.name }

// Catalog is an immutable registry of primitive types keyed by name.
type Catalog struct {
	byName   map[string]Type
	sizeType Type
}

// SizeKind is the integer kind used for every dynamic array count, string
// length and frame payload size.
const SizeKind = KindUint32

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog. It is built once and never mutated.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = NewCatalog()
	})
	return defaultCatalog
}

// NewCatalog builds a fresh catalog holding every primitive kind.
func NewCatalog() *Catalog {
	c := &Catalog{byName: make(map[string]Type, len(kindNames))}
	for k := range kindNames {
		t := newType(k)
		c.byName[t.name] = t
	}
	c.sizeType = c.byName[SizeKind.String()]
	return c
}

// Lookup resolves a primitive by catalog name.
func (c *Catalog) Lookup(name string) (Type, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// ByKind resolves a primitive by kind.
func (c *Catalog) ByKind(k Kind) (Type, bool) {
	return c.Lookup(k.String())
}

// SizeType returns the designated length/count type.
func (c *Catalog) SizeType() Type { return c.sizeType }

// Names returns the catalog names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

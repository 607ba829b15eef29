// Package frame decodes and encodes streams of back-to-back frames, each a
// schema-described header followed by a payload whose schema is selected by
// the header's message-type id.
package frame

import (
	"fmt"
	"math"
	"sync"

	"github.com/danmuck/schemawire/internal/protocol"
	"github.com/danmuck/schemawire/internal/protocol/codec"
	"github.com/danmuck/schemawire/internal/protocol/schema"
	"github.com/danmuck/schemawire/internal/protocol/types"
)

// Default header field names.
const (
	FieldSeq       = "seq"
	FieldClass     = "cls"
	FieldMessageID = "msg_id"
	FieldSize      = "size"
)

// DefaultHeaderLen is the wire size of the default header.
const DefaultHeaderLen = 10

// DefaultHeader is seq:u32 cls:u8 msg_id:u8 size:u32, 10 bytes.
func DefaultHeader() schema.Definition {
	return schema.Definition{Fields: []schema.FieldDef{
		{Name: FieldSeq, Type: "Uint32"},
		{Name: FieldClass, Type: "Uint8"},
		{Name: FieldMessageID, Type: "Uint8"},
		{Name: FieldSize, Type: "Uint32"},
	}}
}

// Layout describes how to read a frame header: its compiled schema, the field
// carrying the message-type id and, optionally, the field carrying the
// payload size.
type Layout struct {
	Struct    *schema.Struct
	IDField   string
	SizeField string
}

var (
	defaultLayoutOnce sync.Once
	defaultLayout     Layout
)

// DefaultLayout returns the layout of DefaultHeader.
func DefaultLayout() Layout {
	defaultLayoutOnce.Do(func() {
		s := schema.MustCompile("header", DefaultHeader(), nil)
		defaultLayout = Layout{Struct: s, IDField: FieldMessageID, SizeField: FieldSize}
	})
	return defaultLayout
}

// NewLayout validates that idField, and sizeField when set, are integer
// scalars of s.
func NewLayout(s *schema.Struct, idField, sizeField string) (Layout, error) {
	if s == nil {
		return Layout{}, fmt.Errorf("%w: nil header schema", protocol.ErrInvalidSchema)
	}
	if err := checkIntegerField(s, idField); err != nil {
		return Layout{}, err
	}
	if sizeField != "" {
		if err := checkIntegerField(s, sizeField); err != nil {
			return Layout{}, err
		}
	}
	return Layout{Struct: s, IDField: idField, SizeField: sizeField}, nil
}

func checkIntegerField(s *schema.Struct, name string) error {
	f, ok := s.FieldByName(name)
	if !ok {
		return fmt.Errorf("%w: header %q has no field %q", protocol.ErrInvalidSchema, s.Name(), name)
	}
	if f.Spec.IsArray || f.Spec.IsComplex() || !f.Spec.Basic.Kind().IsInteger() {
		return fmt.Errorf("%w: header field %q must be an integer scalar, is %s", protocol.ErrInvalidSchema, name, f.TypeString)
	}
	return nil
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

// Message is one decoded frame.
type Message struct {
	ID      uint32
	Name    string
	Offset  int // frame start within the stream
	Size    int // header plus payload bytes
	Header  codec.Record
	Payload codec.Record
}

// UnknownMessageIDError reports a header whose id has no registered schema.
type UnknownMessageIDError struct {
	ID     uint32
	Offset int
}

func (e *UnknownMessageIDError) Error() string {
	return fmt.Sprintf("frame: unknown message id %d at offset %d", e.ID, e.Offset)
}

func (e *UnknownMessageIDError) Unwrap() error { return protocol.ErrUnknownMessageID }

// headerUint reads an integer header value as produced by the codec.
func headerUint(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint8:
		return uint64(x), true
	case uint16:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint64:
		return x, true
	case int8:
		return uint64(x), x >= 0
	case int16:
		return uint64(x), x >= 0
	case int32:
		return uint64(x), x >= 0
	case int64:
		return uint64(x), x >= 0
	}
	return 0, false
}

// checkPayload fails fast when a declared payload cannot fit the buffer.
func checkPayload(buf []byte, off int, declared uint64) error {
	if declared > uint64(len(buf)) {
		return &types.OutOfRangeError{Offset: off, Need: int(min(declared, math.MaxInt32)), Len: len(buf)}
	}
	return types.CheckRange(buf, off, int(declared))
}

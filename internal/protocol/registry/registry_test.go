package registry

import (
	"errors"
	"testing"

	"github.com/danmuck/schemawire/internal/protocol"
	"github.com/danmuck/schemawire/internal/protocol/schema"
	"github.com/danmuck/schemawire/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func def(id uint32, fields ...string) schema.Definition {
	d := schema.Definition{ID: id}
	for i := 0; i+1 < len(fields); i += 2 {
		d.Fields = append(d.Fields, schema.FieldDef{Name: fields[i], Type: fields[i+1]})
	}
	return d
}

func TestForwardReferencesCompileInDependencyOrder(t *testing.T) {
	logger := testlog.Start(t)
	r, err := New([]Entry{
		{Name: "Track", Definition: def(1, "id", "Uint16", "points", "Point[]", "box", "Box")},
		{Name: "Box", Definition: def(0, "min", "Point", "max", "Point")},
		{Name: "Point", Definition: def(0, "x", "Float32", "y", "Float32")},
	}, WithLogger(logger))
	require.NoError(t, err)

	track, ok := r.ByID(1)
	require.True(t, ok)
	assert.Equal(t, "Track", track.Name())
	assert.Equal(t, 2+4+16, track.StaticSize())

	box, ok := r.ByName("Box")
	require.True(t, ok)
	boxField, _ := track.FieldByName("box")
	assert.Same(t, box, boxField.Spec.Nested)

	point, _ := r.ByName("Point")
	minField, _ := box.FieldByName("min")
	assert.Same(t, point, minField.Spec.Nested, "nested schemas are compiled once and shared")

	_, ok = r.ByID(0)
	assert.False(t, ok, "id 0 is never addressable")
	assert.Equal(t, []uint32{1}, r.IDs())
	assert.Equal(t, []string{"Track", "Box", "Point"}, r.Names())
	assert.Equal(t, 3, r.Len())
	assert.Empty(t, r.Warnings())
}

func TestDuplicateIDFirstRegistrantWins(t *testing.T) {
	logger := testlog.Start(t)
	r, err := New([]Entry{
		{Name: "first", Definition: def(5, "a", "Uint8")},
		{Name: "second", Definition: def(5, "b", "Uint16")},
		{Name: "other", Definition: def(6, "c", "Uint32")},
	}, WithLogger(logger))
	require.NoError(t, err)

	s, ok := r.ByID(5)
	require.True(t, ok)
	assert.Equal(t, "first", s.Name())

	second, ok := r.ByName("second")
	require.True(t, ok)
	assert.Equal(t, uint32(5), second.ID())

	warnings := r.Warnings()
	require.Len(t, warnings, 1)
	assert.True(t, errors.Is(warnings[0], protocol.ErrDuplicateMessageID))
	var dup *DuplicateIDError
	require.True(t, errors.As(warnings[0], &dup))
	assert.Equal(t, DuplicateIDError{ID: 5, Kept: "first", Rejected: "second"}, *dup)
}

func TestFromMapIsDeterministic(t *testing.T) {
	testlog.Start(t)
	m := map[string]schema.Definition{
		"zulu":  def(9, "z", "Uint8"),
		"alpha": def(9, "a", "Uint8"),
		"mike":  def(9, "m", "Uint8"),
	}
	for i := 0; i < 10; i++ {
		r, err := FromMap(m)
		require.NoError(t, err)
		s, _ := r.ByID(9)
		assert.Equal(t, "alpha", s.Name())
		assert.Len(t, r.Warnings(), 2)
	}
}

func TestCycleRejected(t *testing.T) {
	testlog.Start(t)
	_, err := New([]Entry{
		{Name: "A", Definition: def(1, "b", "B")},
		{Name: "B", Definition: def(2, "c", "C[]")},
		{Name: "C", Definition: def(0, "a", "A[2]")},
	})
	require.ErrorIs(t, err, protocol.ErrSchemaCycle)
	var cycle *CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"A", "B", "C", "A"}, cycle.Path)
}

func TestSelfReferenceRejected(t *testing.T) {
	testlog.Start(t)
	_, err := New([]Entry{{Name: "Node", Definition: def(1, "next", "Node[]")}})
	assert.ErrorIs(t, err, protocol.ErrSchemaCycle)
}

func TestUnknownTypeAbortsRegistry(t *testing.T) {
	testlog.Start(t)
	r, err := New([]Entry{
		{Name: "ok", Definition: def(1, "a", "Uint8")},
		{Name: "bad", Definition: def(2, "b", "Bogus")},
	})
	assert.Nil(t, r)
	require.ErrorIs(t, err, protocol.ErrUnknownType)
	var ute *schema.UnknownTypeError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, "bad", ute.Schema)
}

func TestInvalidEntryNames(t *testing.T) {
	testlog.Start(t)
	cases := [][]Entry{
		{{Name: "", Definition: def(1)}},
		{{Name: "Uint32", Definition: def(1)}},
		{{Name: "x", Definition: def(1)}, {Name: "x", Definition: def(2)}},
	}
	for _, entries := range cases {
		_, err := New(entries)
		assert.ErrorIs(t, err, protocol.ErrInvalidSchema)
	}
}

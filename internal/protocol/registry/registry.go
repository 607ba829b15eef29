// Package registry maps message-type ids and names to compiled schemas.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/schemawire/internal/protocol"
	"github.com/danmuck/schemawire/internal/protocol/schema"
	"github.com/danmuck/schemawire/internal/protocol/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Entry is one named schema definition.
type Entry struct {
	Name       string
	Definition schema.Definition
}

// DuplicateIDError reports a schema whose id was already taken. It is a
// warning: the first registrant keeps the id and the rejected schema stays
// reachable by name.
type DuplicateIDError struct {
	ID       uint32
	Kept     string
	Rejected string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("registry: id %d already registered by %q, %q not addressable by id", e.ID, e.Kept, e.Rejected)
}

func (e *DuplicateIDError) Unwrap() error { return protocol.ErrDuplicateMessageID }

// CycleError reports a chain of nested references that leads back to itself.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "registry: schema cycle " + strings.Join(e.Path, " -> ")
}

func (e *CycleError) Unwrap() error { return protocol.ErrSchemaCycle }

// Registry is immutable after New returns and safe for concurrent reads.
type Registry struct {
	byID     map[uint32]*schema.Struct
	byName   map[string]*schema.Struct
	order    []string
	warnings []error
}

type options struct {
	catalog *types.Catalog
	logger  *zerolog.Logger
}

type Option func(*options)

// WithCatalog compiles against catalog instead of types.Default.
func WithCatalog(catalog *types.Catalog) Option {
	return func(o *options) { o.catalog = catalog }
}

// WithLogger routes duplicate-id warnings to logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = &logger }
}

// FromMap registers m in sorted name order, so "first registrant" is the
// lexically smallest name.
func FromMap(m map[string]schema.Definition, opts ...Option) (*Registry, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, Entry{Name: name, Definition: m[name]})
	}
	return New(entries, opts...)
}

// New compiles every entry. Entries may reference each other in any order;
// they are compiled dependencies first. Unknown type names and reference
// cycles fail the whole registry. Duplicate ids do not: see Warnings.
func New(entries []Entry, opts ...Option) (*Registry, error) {
	o := options{catalog: types.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := &log.Logger
	if o.logger != nil {
		logger = o.logger
	}

	defs := make(map[string]schema.Definition, len(entries))
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: registry entry without a name", protocol.ErrInvalidSchema)
		}
		if _, ok := o.catalog.Lookup(name); ok {
			return nil, fmt.Errorf("%w: schema name %q shadows a primitive", protocol.ErrInvalidSchema, name)
		}
		if _, dup := defs[name]; dup {
			return nil, fmt.Errorf("%w: schema name %q registered twice", protocol.ErrInvalidSchema, name)
		}
		defs[name] = e.Definition
	}

	b := builder{
		compiler: schema.NewCompiler(o.catalog),
		defs:     defs,
		compiled: make(map[string]*schema.Struct, len(defs)),
		state:    make(map[string]visitState, len(defs)),
	}
	r := &Registry{
		byID:   make(map[uint32]*schema.Struct),
		byName: make(map[string]*schema.Struct, len(defs)),
	}
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		s, err := b.compile(name, nil)
		if err != nil {
			return nil, err
		}
		r.byName[name] = s
		r.order = append(r.order, name)
		if s.ID() == 0 {
			continue
		}
		if kept, taken := r.byID[s.ID()]; taken {
			warn := &DuplicateIDError{ID: s.ID(), Kept: kept.Name(), Rejected: name}
			r.warnings = append(r.warnings, warn)
			logger.Warn().Uint32("id", s.ID()).Str("kept", kept.Name()).Str("rejected", name).
				Msg("registry: duplicate message id")
			continue
		}
		r.byID[s.ID()] = s
	}
	logger.Debug().Int("schemas", len(r.byName)).Int("ids", len(r.byID)).Msg("registry built")
	return r, nil
}

type visitState uint8

const (
	stateVisiting visitState = iota + 1
	stateDone
)

type builder struct {
	compiler *schema.Compiler
	defs     map[string]schema.Definition
	compiled map[string]*schema.Struct
	state    map[string]visitState
}

// compile compiles name after every registry schema it references. path is
// the chain of names currently being compiled, for cycle reports.
func (b *builder) compile(name string, path []string) (*schema.Struct, error) {
	path = append(path, name)
	switch b.state[name] {
	case stateVisiting:
		return nil, &CycleError{Path: cyclePath(path)}
	case stateDone:
		return b.compiled[name], nil
	}
	b.state[name] = stateVisiting

	def := b.defs[name]
	nested := make(map[string]*schema.Struct)
	for _, ref := range schema.References(def, b.compiler.Catalog()) {
		if _, known := b.defs[ref]; !known {
			// left unresolved; Compile reports it as an unknown type
			continue
		}
		s, err := b.compile(ref, path)
		if err != nil {
			return nil, err
		}
		nested[ref] = s
	}
	s, err := b.compiler.Compile(name, def, nested)
	if err != nil {
		return nil, err
	}
	b.compiled[name] = s
	b.state[name] = stateDone
	return s, nil
}

// cyclePath trims path to start at the first occurrence of its last element.
func cyclePath(path []string) []string {
	last := path[len(path)-1]
	for i, name := range path {
		if name == last {
			out := make([]string, len(path)-i)
			copy(out, path[i:])
			return out
		}
	}
	return path
}

// ByID returns the schema registered under a message-type id.
func (r *Registry) ByID(id uint32) (*schema.Struct, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// ByName returns a schema by registry name, including nested-only schemas.
func (r *Registry) ByName(name string) (*schema.Struct, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// IDs returns the registered message-type ids in ascending order.
func (r *Registry) IDs() []uint32 {
	ids := make([]uint32, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Names returns schema names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Len() int { return len(r.byName) }

// Warnings returns the non-fatal conditions met while building, currently
// only *DuplicateIDError values.
func (r *Registry) Warnings() []error {
	out := make([]error, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// Package view declares which fields and nested relations of an entity a
// caller wants, compiles that declaration into the minimal set of storage
// fields to fetch, and shapes fetched rows into the declared form.
//
// A View is a tagged-union tree: every field is a Scalar, a Nested entity
// view, a Connection (ordered list) view, or a Derived field computed from
// other storage fields. All operations are structural recursions over that
// tree; nothing probes values at runtime to discover their shape.
package view

import (
	"maps"
	"slices"
)

// Record is a raw storage row or a resolved entity.
// Nested entities are Records, nested lists are []Record.
type Record = map[string]any

// TypenameField is set on every resolved entity.
const TypenameField = "__typename"

// Kind tags the shape of a requested field.
type Kind int

const (
	KindScalar Kind = iota + 1
	KindNested
	KindConnection
	KindDerived
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindNested:
		return "nested"
	case KindConnection:
		return "connection"
	case KindDerived:
		return "derived"
	default:
		return "unknown"
	}
}

// Args are the arguments of a connection field (filters, page size).
type Args map[string]any

// Resolver computes a derived field. Select names the storage fields of the
// same entity the function reads; they are fetched even when the caller did
// not request them and are not part of the output unless requested.
type Resolver struct {
	Select  []string
	Resolve func(row Record) any
}

// Field is one requested field of a View.
type Field struct {
	Kind    Kind
	View    *View
	Args    Args
	Derived *Resolver
}

// Fields maps field names to their requested shape.
type Fields map[string]Field

// View is a declaration of the fields requested for one entity type.
type View struct {
	Type   string
	Fields Fields
}

// New creates a View for the given entity type.
func New(typeName string, fields Fields) *View {
	if fields == nil {
		fields = Fields{}
	}
	return &View{Type: typeName, Fields: fields}
}

// Scalar requests a plain storage field.
func Scalar() Field { return Field{Kind: KindScalar} }

// Nested requests a single related entity shaped by v.
func Nested(v *View) Field { return Field{Kind: KindNested, View: v} }

// Connection requests an ordered list of related entities shaped by v.
func Connection(v *View, args Args) Field {
	return Field{Kind: KindConnection, View: v, Args: args}
}

// Derived requests a field computed by fn from the storage fields in selects.
func Derived(selects []string, fn func(row Record) any) Field {
	return Field{Kind: KindDerived, Derived: &Resolver{Select: selects, Resolve: fn}}
}

// With returns a copy of v extended with the given fields.
// Fields already present in v are replaced.
func (v *View) With(fields Fields) *View {
	out := &View{Type: v.Type, Fields: make(Fields, len(v.Fields)+len(fields))}
	maps.Copy(out.Fields, v.Fields)
	maps.Copy(out.Fields, fields)
	return out
}

// Names returns the requested field names in sorted order.
func (v *View) Names() []string {
	return slices.Sorted(maps.Keys(v.Fields))
}

// Has reports whether name is requested.
func (v *View) Has(name string) bool {
	_, ok := v.Fields[name]
	return ok
}

package view

import (
	"fmt"
	"maps"
	"slices"

	"github.com/heartmarshall/social-backend/internal/domain"
)

// Relation describes a field that points at other entities.
type Relation struct {
	Target string
	Many   bool
}

// Type is the known field table of one entity type.
type Type struct {
	Name      string
	scalars   map[string]struct{}
	relations map[string]Relation
}

// NewType creates an empty field table.
func NewType(name string) *Type {
	return &Type{
		Name:      name,
		scalars:   make(map[string]struct{}),
		relations: make(map[string]Relation),
	}
}

// Scalars declares plain storage fields.
func (t *Type) Scalars(names ...string) *Type {
	for _, n := range names {
		t.scalars[n] = struct{}{}
	}
	return t
}

// One declares a to-one relation.
func (t *Type) One(name, target string) *Type {
	t.relations[name] = Relation{Target: target}
	return t
}

// Many declares a to-many relation.
func (t *Type) Many(name, target string) *Type {
	t.relations[name] = Relation{Target: target, Many: true}
	return t
}

// IsScalar reports whether name is a plain storage field.
func (t *Type) IsScalar(name string) bool {
	_, ok := t.scalars[name]
	return ok
}

// Relation returns the relation declared under name.
func (t *Type) Relation(name string) (Relation, bool) {
	r, ok := t.relations[name]
	return r, ok
}

// ScalarNames returns the storage fields in sorted order.
func (t *Type) ScalarNames() []string {
	return slices.Sorted(maps.Keys(t.scalars))
}

// RelationNames returns the relation fields in sorted order.
func (t *Type) RelationNames() []string {
	return slices.Sorted(maps.Keys(t.relations))
}

// Schema is the set of known entity types.
type Schema struct {
	types map[string]*Type
}

// NewSchema builds a Schema and checks that every relation targets a known type.
func NewSchema(types ...*Type) (*Schema, error) {
	s := &Schema{types: make(map[string]*Type, len(types))}
	for _, t := range types {
		if _, dup := s.types[t.Name]; dup {
			return nil, domain.NewConfigurationError(t.Name, "", "type declared twice")
		}
		s.types[t.Name] = t
	}
	for _, t := range types {
		for name, rel := range t.relations {
			if _, ok := s.types[rel.Target]; !ok {
				return nil, domain.NewConfigurationError(t.Name, name,
					fmt.Sprintf("relation targets unknown type %q", rel.Target))
			}
			if t.IsScalar(name) {
				return nil, domain.NewConfigurationError(t.Name, name, "declared as scalar and relation")
			}
		}
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error. Used for package-level tables.
func MustSchema(types ...*Type) *Schema {
	s, err := NewSchema(types...)
	if err != nil {
		panic(err)
	}
	return s
}

// Type returns the field table for name.
func (s *Schema) Type(name string) (*Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

// Names returns the declared type names in sorted order.
func (s *Schema) Names() []string {
	return slices.Sorted(maps.Keys(s.types))
}

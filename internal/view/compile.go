package view

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/heartmarshall/social-backend/internal/domain"
)

// SelectionSet is the set of storage fields to fetch for one entity level.
type SelectionSet struct {
	Fields    map[string]struct{}
	Relations map[string]*RelationSelection
}

// RelationSelection is the nested selection under a relation field.
type RelationSelection struct {
	Many      bool
	Args      Args
	Selection *SelectionSet
}

func newSelectionSet() *SelectionSet {
	return &SelectionSet{
		Fields:    make(map[string]struct{}),
		Relations: make(map[string]*RelationSelection),
	}
}

// Add puts a storage field into the set. Adding twice is a no-op.
func (s *SelectionSet) Add(field string) {
	s.Fields[field] = struct{}{}
}

// Has reports whether field is selected at this level.
func (s *SelectionSet) Has(field string) bool {
	_, ok := s.Fields[field]
	return ok
}

// FieldNames returns the selected storage fields in sorted order.
func (s *SelectionSet) FieldNames() []string {
	return slices.Sorted(maps.Keys(s.Fields))
}

// RelationNames returns the selected relations in sorted order.
func (s *SelectionSet) RelationNames() []string {
	return slices.Sorted(maps.Keys(s.Relations))
}

// Equal reports whether both sets select the same fields and relations.
func (s *SelectionSet) Equal(o *SelectionSet) bool {
	if s == nil || o == nil {
		return s == o
	}
	if !maps.Equal(s.Fields, o.Fields) || len(s.Relations) != len(o.Relations) {
		return false
	}
	for name, rs := range s.Relations {
		ro, ok := o.Relations[name]
		if !ok || rs.Many != ro.Many || !argsEqual(rs.Args, ro.Args) {
			return false
		}
		if !rs.Selection.Equal(ro.Selection) {
			return false
		}
	}
	return true
}

// Paths flattens the set into sorted dotted paths.
func (s *SelectionSet) Paths() []string {
	var out []string
	s.collect("", &out)
	slices.Sort(out)
	return out
}

func (s *SelectionSet) collect(prefix string, out *[]string) {
	for f := range s.Fields {
		*out = append(*out, prefix+f)
	}
	for name, rel := range s.Relations {
		rel.Selection.collect(prefix+name+".", out)
	}
}

// Compile translates v into the storage fields to fetch.
//
// Scalars are selected as-is, nested and connection views recurse under
// their field name, and derived fields add their declared storage fields to
// the current level. The result is a set: compiling the same view twice
// yields equal sets, and a storage field needed by several derived fields is
// fetched once.
func (s *Schema) Compile(v *View) (*SelectionSet, error) {
	if v == nil {
		return nil, domain.NewConfigurationError("", "", "nil view")
	}
	t, ok := s.Type(v.Type)
	if !ok {
		return nil, domain.NewConfigurationError(v.Type, "", "unknown type")
	}

	sel := newSelectionSet()
	for _, name := range v.Names() {
		f := v.Fields[name]
		switch f.Kind {
		case KindScalar:
			if !t.IsScalar(name) {
				return nil, fieldError(t, name, "scalar")
			}
			sel.Add(name)

		case KindNested, KindConnection:
			rel, ok := t.Relation(name)
			if !ok {
				return nil, fieldError(t, name, f.Kind.String())
			}
			if rel.Many != (f.Kind == KindConnection) {
				return nil, domain.NewConfigurationError(t.Name, name,
					fmt.Sprintf("requested as %s but declared with many=%t", f.Kind, rel.Many))
			}
			if f.View == nil || f.View.Type != rel.Target {
				return nil, domain.NewConfigurationError(t.Name, name,
					fmt.Sprintf("nested view must be of type %q", rel.Target))
			}
			nested, err := s.Compile(f.View)
			if err != nil {
				return nil, err
			}
			sel.Relations[name] = &RelationSelection{
				Many:      rel.Many,
				Args:      f.Args,
				Selection: nested,
			}

		case KindDerived:
			if t.IsScalar(name) {
				return nil, domain.NewConfigurationError(t.Name, name, "derived field shadows a storage field")
			}
			if f.Derived == nil || f.Derived.Resolve == nil {
				return nil, domain.NewConfigurationError(t.Name, name, "derived field without resolver")
			}
			for _, extra := range f.Derived.Select {
				if !t.IsScalar(extra) {
					return nil, domain.NewConfigurationError(t.Name, name,
						fmt.Sprintf("derived field needs unknown storage field %q", extra))
				}
				sel.Add(extra)
			}

		default:
			return nil, domain.NewConfigurationError(t.Name, name, "field has no kind")
		}
	}

	return sel, nil
}

// MustCompile is Compile that panics on error. Used for views declared at
// package level so that malformed views fail at startup.
func (s *Schema) MustCompile(v *View) *SelectionSet {
	sel, err := s.Compile(v)
	if err != nil {
		panic(err)
	}
	return sel
}

func fieldError(t *Type, name, requested string) error {
	if t.IsScalar(name) {
		return domain.NewConfigurationError(t.Name, name, "scalar field requested as "+requested)
	}
	if _, ok := t.Relation(name); ok {
		return domain.NewConfigurationError(t.Name, name, "relation requested as "+requested)
	}
	return domain.NewConfigurationError(t.Name, name, "unknown field")
}

func argsEqual(a, b Args) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

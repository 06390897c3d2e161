package view

import (
	"slices"

	"github.com/heartmarshall/social-backend/internal/domain"
)

// Merge returns the structural union of a and b. Neither input is modified.
// A field requested by both must have the same shape in both: the same kind,
// the same nested type, equal connection args, and for derived fields the
// same storage dependencies.
func Merge(a, b *View) (*View, error) {
	switch {
	case a == nil:
		return b, nil
	case b == nil:
		return a, nil
	case a.Type != b.Type:
		return nil, domain.NewConfigurationError(a.Type, "", "cannot merge with view of type "+b.Type)
	}

	out := a.With(nil)
	for _, name := range b.Names() {
		fb := b.Fields[name]
		fa, ok := out.Fields[name]
		if !ok {
			out.Fields[name] = fb
			continue
		}
		if fa.Kind != fb.Kind {
			return nil, domain.NewConfigurationError(a.Type, name,
				"requested as "+fa.Kind.String()+" and as "+fb.Kind.String())
		}
		switch fa.Kind {
		case KindNested, KindConnection:
			if fa.Kind == KindConnection && !argsEqual(fa.Args, fb.Args) {
				return nil, domain.NewConfigurationError(a.Type, name, "connection requested with different args")
			}
			nested, err := Merge(fa.View, fb.View)
			if err != nil {
				return nil, err
			}
			fa.View = nested
			out.Fields[name] = fa
		case KindDerived:
			if !sameSelect(fa.Derived, fb.Derived) {
				return nil, domain.NewConfigurationError(a.Type, name, "derived field declared twice with different dependencies")
			}
		}
	}
	return out, nil
}

func sameSelect(a, b *Resolver) bool {
	if a == nil || b == nil {
		return a == b
	}
	x := slices.Sorted(slices.Values(a.Select))
	y := slices.Sorted(slices.Values(b.Select))
	return slices.Equal(x, y)
}

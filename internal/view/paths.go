package view

import (
	"slices"
	"strings"

	"github.com/heartmarshall/social-backend/internal/domain"
)

// IDField is kept at every entity level of a selected view so that results
// can always be normalized by key.
const IDField = "id"

// Select narrows base to the dotted paths a caller asked for, e.g.
// "content", "author.name", "comments.author.id". Selecting a relation by its
// bare name keeps only its id. Paths outside base are rejected: base is the
// full shape a route is willing to expose.
func Select(base *View, paths []string) (*View, error) {
	out := narrowed(base)
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if err := selectPath(out, base, strings.Split(p, "."), p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func narrowed(base *View) *View {
	v := New(base.Type, nil)
	if f, ok := base.Fields[IDField]; ok {
		v.Fields[IDField] = f
	}
	return v
}

func selectPath(out, base *View, segs []string, full string) error {
	name := segs[0]
	f, ok := base.Fields[name]
	if !ok {
		return domain.NewValidationError("select", "unknown field "+full)
	}

	switch f.Kind {
	case KindScalar, KindDerived:
		if len(segs) > 1 {
			return domain.NewValidationError("select", "cannot select below leaf field "+full)
		}
		out.Fields[name] = f
		return nil

	case KindNested, KindConnection:
		existing, ok := out.Fields[name]
		if !ok {
			existing = Field{Kind: f.Kind, Args: f.Args, View: narrowed(f.View)}
			out.Fields[name] = existing
		}
		if len(segs) == 1 {
			return nil
		}
		return selectPath(existing.View, f.View, segs[1:], full)
	}

	return domain.NewValidationError("select", "unsupported field "+full)
}

// Paths flattens v into the sorted dotted paths understood by Select.
// A relation without requested fields is emitted by its bare name.
func Paths(v *View) []string {
	var out []string
	collectPaths(v, "", &out)
	slices.Sort(out)
	return out
}

func collectPaths(v *View, prefix string, out *[]string) {
	for name, f := range v.Fields {
		switch f.Kind {
		case KindNested, KindConnection:
			if f.View == nil || len(f.View.Fields) == 0 {
				*out = append(*out, prefix+name)
				continue
			}
			collectPaths(f.View, prefix+name+".", out)
		default:
			*out = append(*out, prefix+name)
		}
	}
}

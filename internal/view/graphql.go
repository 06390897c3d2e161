package view

import (
	"slices"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/heartmarshall/social-backend/internal/domain"
)

// ParseSelection converts a GraphQL-style selection such as
//
//	{ id content author { name } }
//
// into the dotted paths accepted by Select. Only plain fields are allowed:
// fragments, aliases and arguments have no meaning for a view.
func ParseSelection(src string) ([]string, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: src})
	if err != nil {
		return nil, domain.NewValidationError("select", err.Error())
	}
	if len(doc.Operations) != 1 || len(doc.Fragments) > 0 {
		return nil, domain.NewValidationError("select", "expected exactly one selection set")
	}

	var out []string
	if err := collectSelection(doc.Operations[0].SelectionSet, "", &out); err != nil {
		return nil, err
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func collectSelection(set ast.SelectionSet, prefix string, out *[]string) error {
	for _, sel := range set {
		f, ok := sel.(*ast.Field)
		if !ok {
			return domain.NewValidationError("select", "fragments are not supported")
		}
		if f.Alias != "" && f.Alias != f.Name {
			return domain.NewValidationError("select", "aliases are not supported: "+f.Alias)
		}
		if len(f.Arguments) > 0 {
			return domain.NewValidationError("select", "arguments are not supported on "+f.Name)
		}
		if len(f.SelectionSet) == 0 {
			*out = append(*out, prefix+f.Name)
			continue
		}
		if err := collectSelection(f.SelectionSet, prefix+f.Name+".", out); err != nil {
			return err
		}
	}
	return nil
}

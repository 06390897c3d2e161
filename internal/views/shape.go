package views

import (
	"github.com/heartmarshall/social-backend/internal/view"
)

// Shape is a route view narrowed to a caller's selection together with the
// storage fields needed to resolve it.
type Shape struct {
	View      *view.View
	Selection *view.SelectionSet
}

// Prepare narrows base to paths and compiles the result. Paths outside base
// are a validation error; a malformed base view is a configuration error.
func Prepare(base *view.View, paths []string) (Shape, error) {
	v, err := view.Select(base, paths)
	if err != nil {
		return Shape{}, err
	}
	sel, err := Schema.Compile(v)
	if err != nil {
		return Shape{}, err
	}
	return Shape{View: v, Selection: sel}, nil
}

// Full is the shape exposing all of base.
func Full(base *view.View) Shape {
	return Shape{View: base, Selection: Schema.MustCompile(base)}
}

// Need adds storage fields a route reads for its own checks. They are
// fetched but never exposed.
func (s Shape) Need(fields ...string) Shape {
	for _, f := range fields {
		s.Selection.Add(f)
	}
	return s
}

// One resolves a single row.
func (s Shape) One(row view.Record) view.Record {
	return view.ResolveOne(row, s.View)
}

// Many resolves rows in order.
func (s Shape) Many(rows []view.Record) []view.Record {
	return view.ResolveMany(rows, s.View)
}

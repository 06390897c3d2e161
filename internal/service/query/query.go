// Package query holds the read patterns shared by the route services:
// batch lookup by id and connection pages.
package query

import (
	"context"
	"fmt"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
	"github.com/heartmarshall/social-backend/internal/views"
)

// Reader is the part of storage.Store used for reads.
type Reader interface {
	FindMany(ctx context.Context, q storage.Query) ([]view.Record, error)
	Scan(ctx context.Context, q storage.Query) ([]connection.Node, error)
	Locate(ctx context.Context, q storage.Query, id string) (connection.Position, error)
}

// ValidateIDs checks a byId request.
func ValidateIDs(ids []string) error {
	if len(ids) == 0 {
		return domain.NewValidationError("ids", "at least one id is required")
	}
	for _, id := range ids {
		if id == "" {
			return domain.NewValidationError("ids", "ids must not be empty")
		}
	}
	return nil
}

// ByIDs fetches the rows of typeName with the given ids and where, in the
// order of ids. A missing id, including one filtered out by where, fails
// the whole batch with domain.ErrNotFound.
func ByIDs(ctx context.Context, r Reader, typeName string, ids []string, where storage.Cond, sel *view.SelectionSet) ([]view.Record, error) {
	if err := ValidateIDs(ids); err != nil {
		return nil, err
	}

	rows, err := r.FindMany(ctx, storage.Query{
		Type:      typeName,
		Selection: sel,
		Where:     storage.And{storage.IDs(ids...), where},
	})
	if err != nil {
		return nil, err
	}
	if len(rows) != len(ids) {
		return nil, fmt.Errorf("one or more %s not found: %w", typeName, domain.ErrNotFound)
	}

	byID := make(map[string]view.Record, len(rows))
	for _, row := range rows {
		id, _ := row[view.IDField].(string)
		byID[id] = row
	}
	out := make([]view.Record, len(ids))
	for i, id := range ids {
		row, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("one or more %s not found: %w", typeName, domain.ErrNotFound)
		}
		out[i] = row
	}
	return out, nil
}

// One fetches a single row of typeName by id and where.
func One(ctx context.Context, r Reader, typeName, id string, where storage.Cond, sel *view.SelectionSet) (view.Record, error) {
	rows, err := ByIDs(ctx, r, typeName, []string{id}, where, sel)
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

// Check inspects a raw row before it is resolved.
type Check func(row view.Record) error

// Page fetches one connection page of q and resolves its items by shape.
// Every raw item passes checks first; the first failure fails the page.
func Page(ctx context.Context, r Reader, pager connection.Pager, q storage.Query, shape views.Shape, args connection.Args, checks ...Check) (*connection.Page, error) {
	q.Selection = shape.Selection
	page, err := pager.Page(ctx, storage.Source(r, q), args)
	if err != nil {
		return nil, err
	}
	for _, row := range page.Items {
		for _, check := range checks {
			if err := check(row); err != nil {
				return nil, err
			}
		}
	}
	page.Items = shape.Many(page.Items)
	return page, nil
}

// Empty is a page with no items.
func Empty() *connection.Page {
	return &connection.Page{Items: []view.Record{}, Cursors: []string{}}
}

// Decrement lowers a count fetched under a to-one relation of row by one.
// It is applied to rows returned from a delete, which were read before the
// entity was removed. Missing relations or counts are left alone.
func Decrement(row view.Record, relation, field string) {
	nested, ok := row[relation].(view.Record)
	if !ok {
		return
	}
	if v, ok := nested[field]; ok {
		nested[field] = view.Int(v) - 1
	}
}

// Package storage defines the query contract between services and the
// storage backend. Queries name entity types and logical field names; the
// backend maps them to its own tables and columns.
package storage

import (
	"context"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/view"
)

// Cond is a filter condition over logical field names.
type Cond interface {
	cond()
}

// Eq matches Field = Value. A nil Value matches NULL.
type Eq struct {
	Field string
	Value any
}

// In matches Field against any of Values. An empty Values matches nothing.
type In struct {
	Field  string
	Values []any
}

// Gt matches Field > Value.
type Gt struct {
	Field string
	Value any
}

// Contains matches a case-insensitive substring of Field.
type Contains struct {
	Field string
	Text  string
}

// And matches when every condition matches. An empty And matches everything.
type And []Cond

// Or matches when any condition matches. An empty Or matches nothing.
type Or []Cond

// Not negates a condition.
type Not struct {
	Cond Cond
}

// Some matches when at least one entity behind the to-many relation
// matches Where (every entity when Where is nil).
type Some struct {
	Relation string
	Where    Cond
}

// Has matches when the entity behind the to-one relation matches Where.
type Has struct {
	Relation string
	Where    Cond
}

func (Eq) cond()       {}
func (In) cond()       {}
func (Gt) cond()       {}
func (Contains) cond() {}
func (And) cond()      {}
func (Or) cond()       {}
func (Not) cond()      {}
func (Some) cond()     {}
func (Has) cond()      {}

// IDs builds an In condition on the id field.
func IDs(ids ...string) In {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return In{Field: view.IDField, Values: values}
}

// Order is one sort key. The id field is always appended as tie-break in
// the same direction as the last key.
type Order struct {
	Field string
	Desc  bool
}

// Query describes a read of one entity type.
type Query struct {
	Type      string
	Selection *view.SelectionSet
	Where     Cond
	OrderBy   []Order

	// Scan only: position to continue after, direction and page size.
	After   *connection.Position
	Reverse bool
	Take    int
}

// Values are column writes keyed by logical field name.
type Values map[string]any

// Store is the storage backend.
type Store interface {
	// FindUnique returns the single entity matching q.
	// Returns domain.ErrNotFound when nothing matches.
	FindUnique(ctx context.Context, q Query) (view.Record, error)

	// FindMany returns every entity matching q in q.OrderBy order.
	FindMany(ctx context.Context, q Query) ([]view.Record, error)

	// Count returns the number of entities of typeName matching where.
	Count(ctx context.Context, typeName string, where Cond) (int64, error)

	// Scan returns up to q.Take entities strictly after q.After in
	// q.OrderBy order (reversed when q.Reverse is set), with their positions.
	Scan(ctx context.Context, q Query) ([]connection.Node, error)

	// Locate returns the position of entity id within q's ordering.
	// Returns domain.ErrNotFound when the entity is gone or filtered out.
	Locate(ctx context.Context, q Query, id string) (connection.Position, error)

	// Create inserts an entity and returns its id.
	Create(ctx context.Context, typeName string, values Values) (string, error)

	// Update writes values to the entity matching id and where.
	// Returns domain.ErrNotFound when nothing matched.
	Update(ctx context.Context, typeName, id string, where Cond, values Values) error

	// Delete removes the entity matching id and where.
	// Returns domain.ErrNotFound when nothing matched.
	Delete(ctx context.Context, typeName, id string, where Cond) error
}

// Scanner is the part of Store that backs connections.
type Scanner interface {
	Scan(ctx context.Context, q Query) ([]connection.Node, error)
	Locate(ctx context.Context, q Query, id string) (connection.Position, error)
}

// Source binds a query to a store as a connection.Source.
func Source(s Scanner, q Query) connection.Source {
	return source{store: s, query: q}
}

type source struct {
	store Scanner
	query Query
}

func (s source) Scan(ctx context.Context, after *connection.Position, reverse bool, limit int) ([]connection.Node, error) {
	q := s.query
	q.After = after
	q.Reverse = reverse
	q.Take = limit
	return s.store.Scan(ctx, q)
}

func (s source) Locate(ctx context.Context, id string) (connection.Position, error) {
	return s.store.Locate(ctx, s.query, id)
}

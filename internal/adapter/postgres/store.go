package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
)

// Store implements storage.Store on PostgreSQL. A compiled selection becomes
// one SELECT whose relations are json subqueries, so every read is a single
// round trip returning exactly the selected fields.
type Store struct {
	db     Querier
	tables map[string]*table
	log    *slog.Logger
}

// NewStore creates a Store. Queries run inside the transaction carried by
// ctx when there is one, on db otherwise.
func NewStore(db Querier, log *slog.Logger) *Store {
	return &Store{
		db:     db,
		tables: defaultTables(),
		log:    log.With("component", "postgres.store"),
	}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) q(ctx context.Context) Querier {
	return QuerierFromCtx(ctx, s.db)
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// FindUnique returns the single entity matching q.
func (s *Store) FindUnique(ctx context.Context, q storage.Query) (view.Record, error) {
	q.Take = 1
	rows, err := s.find(ctx, q, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", q.Type, domain.ErrNotFound)
	}
	return rows[0], nil
}

// FindMany returns every entity matching q.
func (s *Store) FindMany(ctx context.Context, q storage.Query) ([]view.Record, error) {
	return s.find(ctx, q, nil)
}

// Count returns the number of entities matching where.
func (s *Store) Count(ctx context.Context, typeName string, where storage.Cond) (int64, error) {
	b := newBuilder(s.tables)
	t, err := b.table(typeName)
	if err != nil {
		return 0, err
	}
	alias := b.alias()
	pred, err := b.where(t, alias, where)
	if err != nil {
		return 0, err
	}

	query, args, err := psql.Select("count(*)").From(t.name + " " + alias).Where(pred).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count %s: %w", typeName, err)
	}

	var n int64
	if err := s.q(ctx).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, mapError(err, typeName, "")
	}
	return n, nil
}

// Scan returns up to q.Take entities after q.After together with their
// positions. Keyset pagination supports one sort key plus the id tie-break.
func (s *Store) Scan(ctx context.Context, q storage.Query) ([]connection.Node, error) {
	if len(q.OrderBy) > 1 {
		return nil, domain.NewConfigurationError(q.Type, "", "scan supports a single sort key")
	}
	var positions []connection.Position
	rows, err := s.find(ctx, q, &positions)
	if err != nil {
		return nil, err
	}

	nodes := make([]connection.Node, len(rows))
	for i, row := range rows {
		nodes[i] = connection.Node{Row: row, Position: positions[i]}
	}
	return nodes, nil
}

// Locate returns the position of id within q's ordering.
func (s *Store) Locate(ctx context.Context, q storage.Query, id string) (connection.Position, error) {
	b := newBuilder(s.tables)
	t, err := b.table(q.Type)
	if err != nil {
		return connection.Position{}, err
	}
	alias := b.alias()

	pos, err := b.positionExpr(t, alias, q.OrderBy)
	if err != nil {
		return connection.Position{}, err
	}
	pred, err := b.where(t, alias, storage.And{storage.Eq{Field: view.IDField, Value: id}, q.Where})
	if err != nil {
		return connection.Position{}, err
	}

	query, args, err := psql.Select(pos).From(t.name + " " + alias).Where(pred).ToSql()
	if err != nil {
		return connection.Position{}, fmt.Errorf("build locate %s: %w", q.Type, err)
	}

	var value string
	if err := s.q(ctx).QueryRow(ctx, query, args...).Scan(&value); err != nil {
		return connection.Position{}, mapError(err, q.Type, id)
	}
	return connection.Position{Value: value, ID: id}, nil
}

// find runs the SELECT for q. When positions is non-nil the keyset
// position of every row is collected into it and q.After/q.Reverse apply.
func (s *Store) find(ctx context.Context, q storage.Query, positions *[]connection.Position) ([]view.Record, error) {
	b := newBuilder(s.tables)
	t, err := b.table(q.Type)
	if err != nil {
		return nil, err
	}
	alias := b.alias()

	cols, err := b.columns(t, alias, q.Selection)
	if err != nil {
		return nil, err
	}
	pred, err := b.where(t, alias, q.Where)
	if err != nil {
		return nil, err
	}

	reverse := positions != nil && q.Reverse
	order, err := b.orderBy(t, alias, q.OrderBy, reverse)
	if err != nil {
		return nil, err
	}

	sel := psql.Select(cols...).From(t.name + " " + alias).Where(pred).OrderBy(order...)
	if positions != nil {
		pos, err := b.positionExpr(t, alias, q.OrderBy)
		if err != nil {
			return nil, err
		}
		sel = sel.Column(fmt.Sprintf("%s AS %q", pos, positionColumn))
		if q.After != nil {
			after, err := b.after(t, alias, q.OrderBy, *q.After, reverse)
			if err != nil {
				return nil, err
			}
			sel = sel.Where(after)
		}
	}
	if q.Take > 0 {
		sel = sel.Limit(uint64(q.Take))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", q.Type, err)
	}
	s.log.DebugContext(ctx, "select", slog.String("type", q.Type), slog.String("sql", query))

	var rows []map[string]any
	if err := pgxscan.Select(ctx, s.q(ctx), &rows, query, args...); err != nil {
		return nil, mapError(err, q.Type, "")
	}

	out := make([]view.Record, len(rows))
	for i, row := range rows {
		if positions != nil {
			value, _ := row[positionColumn].(string)
			delete(row, positionColumn)
			id, _ := row[view.IDField].(string)
			*positions = append(*positions, connection.Position{Value: value, ID: id})
		}
		out[i] = row
	}
	return out, nil
}

// positionExpr is the text form of the sort key. With no sort key the id
// itself is the position.
func (b *builder) positionExpr(t *table, alias string, orders []storage.Order) (string, error) {
	if len(orders) == 0 {
		return alias + ".id", nil
	}
	expr, err := t.expr(alias, orders[0].Field)
	if err != nil {
		return "", err
	}
	return "CAST(" + expr + " AS text)", nil
}

// after is the keyset predicate selecting rows strictly past pos in scan
// direction.
func (b *builder) after(t *table, alias string, orders []storage.Order, pos connection.Position, reverse bool) (sq.Sqlizer, error) {
	desc := len(orders) > 0 && orders[0].Desc
	op := ">"
	if desc != reverse {
		op = "<"
	}
	if len(orders) == 0 {
		return sq.Expr(fmt.Sprintf("%s.id %s ?", alias, op), pos.ID), nil
	}
	expr, err := t.expr(alias, orders[0].Field)
	if err != nil {
		return nil, err
	}
	return sq.Expr(fmt.Sprintf("(%s, %s.id) %s (?, ?)", expr, alias, op), pos.Value, pos.ID), nil
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// Create inserts an entity. An id is generated unless values carries one.
func (s *Store) Create(ctx context.Context, typeName string, values storage.Values) (string, error) {
	t, ok := s.tables[typeName]
	if !ok {
		return "", domain.NewConfigurationError(typeName, "", "no table for type")
	}

	id, _ := values[view.IDField].(string)
	if id == "" {
		id = uuid.NewString()
	}

	cols := []string{"id"}
	vals := []any{id}
	for _, field := range slices.Sorted(maps.Keys(values)) {
		if field == view.IDField {
			continue
		}
		col, ok := t.column(field)
		if !ok {
			return "", domain.NewConfigurationError(typeName, field, "no column for field")
		}
		cols = append(cols, col)
		vals = append(vals, values[field])
	}

	query, args, err := psql.Insert(t.name).Columns(cols...).Values(vals...).Suffix("RETURNING id").ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert %s: %w", typeName, err)
	}

	var created string
	if err := s.q(ctx).QueryRow(ctx, query, args...).Scan(&created); err != nil {
		return "", mapError(err, typeName, id)
	}
	return created, nil
}

// Update writes values to the entity matching id and where.
func (s *Store) Update(ctx context.Context, typeName, id string, where storage.Cond, values storage.Values) error {
	b := newBuilder(s.tables)
	t, err := b.table(typeName)
	if err != nil {
		return err
	}
	alias := b.alias()

	upd := psql.Update(t.name + " " + alias)
	if len(values) == 0 {
		upd = upd.Set("id", sq.Expr("id"))
	}
	for _, field := range slices.Sorted(maps.Keys(values)) {
		col, ok := t.column(field)
		if !ok || field == view.IDField {
			return domain.NewConfigurationError(typeName, field, "field is not writable")
		}
		upd = upd.Set(col, values[field])
	}
	if _, ok := t.column("updatedAt"); ok {
		if _, set := values["updatedAt"]; !set {
			upd = upd.Set("updated_at", sq.Expr("now()"))
		}
	}

	pred, err := b.where(t, alias, storage.And{storage.Eq{Field: view.IDField, Value: id}, where})
	if err != nil {
		return err
	}

	query, args, err := upd.Where(pred).ToSql()
	if err != nil {
		return fmt.Errorf("build update %s: %w", typeName, err)
	}

	tag, err := s.q(ctx).Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, typeName, id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", typeName, id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes the entity matching id and where.
func (s *Store) Delete(ctx context.Context, typeName, id string, where storage.Cond) error {
	b := newBuilder(s.tables)
	t, err := b.table(typeName)
	if err != nil {
		return err
	}
	alias := b.alias()

	pred, err := b.where(t, alias, storage.And{storage.Eq{Field: view.IDField, Value: id}, where})
	if err != nil {
		return err
	}

	query, args, err := psql.Delete(t.name + " " + alias).Where(pred).ToSql()
	if err != nil {
		return fmt.Errorf("build delete %s: %w", typeName, err)
	}

	tag, err := s.q(ctx).Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, typeName, id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", typeName, id, domain.ErrNotFound)
	}
	return nil
}

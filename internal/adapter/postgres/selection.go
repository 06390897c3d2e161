package postgres

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
)

// positionColumn carries the text form of the sort key in Scan and Locate.
const positionColumn = "__position"

// psql builds statements with $n placeholders. Nested sub-builders keep the
// default ? format and are rewritten once by the outermost statement.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// builder compiles selections and conditions into SQL for one statement.
// Each table reference gets a fresh alias so correlated subqueries never
// shadow an outer row.
type builder struct {
	tables map[string]*table
	n      int
}

func newBuilder(tables map[string]*table) *builder {
	return &builder{tables: tables}
}

func (b *builder) alias() string {
	b.n++
	return fmt.Sprintf("t%d", b.n)
}

func (b *builder) table(typeName string) (*table, error) {
	t, ok := b.tables[typeName]
	if !ok {
		return nil, domain.NewConfigurationError(typeName, "", "no table for type")
	}
	return t, nil
}

// columns returns the select list for sel at the root level: one column per
// storage field, one json column per relation.
func (b *builder) columns(t *table, alias string, sel *view.SelectionSet) ([]string, error) {
	var cols []string
	if sel == nil || !sel.Has(view.IDField) {
		cols = append(cols, fmt.Sprintf(`%s.id AS "id"`, alias))
	}
	if sel == nil {
		return cols, nil
	}

	for _, f := range sel.FieldNames() {
		expr, err := t.expr(alias, f)
		if err != nil {
			return nil, err
		}
		cols = append(cols, fmt.Sprintf(`%s AS %q`, expr, f))
	}
	for _, name := range sel.RelationNames() {
		sub, err := b.relationExpr(t, alias, name, sel.Relations[name])
		if err != nil {
			return nil, err
		}
		cols = append(cols, fmt.Sprintf(`%s AS %q`, sub, name))
	}
	return cols, nil
}

// object returns a json_build_object expression for sel over alias.
func (b *builder) object(t *table, alias string, sel *view.SelectionSet) (string, error) {
	var pairs []string
	if !sel.Has(view.IDField) {
		pairs = append(pairs, fmt.Sprintf("'id', %s.id", alias))
	}
	for _, f := range sel.FieldNames() {
		expr, err := t.expr(alias, f)
		if err != nil {
			return "", err
		}
		pairs = append(pairs, fmt.Sprintf("'%s', %s", f, expr))
	}
	for _, name := range sel.RelationNames() {
		sub, err := b.relationExpr(t, alias, name, sel.Relations[name])
		if err != nil {
			return "", err
		}
		pairs = append(pairs, fmt.Sprintf("'%s', %s", name, sub))
	}
	return "json_build_object(" + strings.Join(pairs, ", ") + ")", nil
}

// relationExpr returns a correlated subquery yielding the relation as a json
// object (to-one, NULL when absent) or a json array (to-many, never NULL).
func (b *builder) relationExpr(t *table, alias, name string, rs *view.RelationSelection) (string, error) {
	rel, err := t.relation(name)
	if err != nil {
		return "", err
	}
	target, err := b.table(rel.target)
	if err != nil {
		return "", err
	}

	inner := b.alias()
	from, link := b.link(t, alias, target, inner, rel)

	obj, err := b.object(target, inner, rs.Selection)
	if err != nil {
		return "", err
	}

	if !rel.many {
		return fmt.Sprintf("(SELECT %s FROM %s WHERE %s LIMIT 1)", obj, from, link), nil
	}

	order, err := b.orderBy(target, inner, rel.orderBy, false)
	if err != nil {
		return "", err
	}
	limit := ""
	if n := view.Int(rs.Args["limit"]); n > 0 {
		limit = fmt.Sprintf(" LIMIT %d", n)
	}
	agg := b.alias()
	return fmt.Sprintf(
		"(SELECT coalesce(json_agg(%s.o), '[]'::json) FROM (SELECT %s AS o FROM %s WHERE %s ORDER BY %s%s) %s)",
		agg, obj, from, link, strings.Join(order, ", "), limit, agg,
	), nil
}

// link returns the FROM clause for target and the condition tying it to the
// outer row.
func (b *builder) link(t *table, alias string, target *table, inner string, rel relation) (from, on string) {
	from = fmt.Sprintf("%s %s", target.name, inner)
	switch {
	case rel.through != nil:
		j := b.alias()
		from += fmt.Sprintf(" JOIN %s %s ON %s.%s = %s.id", rel.through.name, j, j, rel.through.target, inner)
		on = fmt.Sprintf("%s.%s = %s.id", j, rel.through.source, alias)
	case rel.local != "":
		on = fmt.Sprintf("%s.id = %s.%s", inner, alias, rel.local)
	default:
		on = fmt.Sprintf("%s.%s = %s.id", inner, rel.foreign, alias)
	}
	return from, on
}

// orderBy returns ORDER BY terms with the id tie-break in the direction of
// the last key. reverse flips every key.
func (b *builder) orderBy(t *table, alias string, orders []storage.Order, reverse bool) ([]string, error) {
	out := make([]string, 0, len(orders)+1)
	desc := false
	for _, o := range orders {
		expr, err := t.expr(alias, o.Field)
		if err != nil {
			return nil, err
		}
		desc = o.Desc
		out = append(out, expr+" "+direction(o.Desc != reverse))
	}
	out = append(out, alias+".id "+direction(desc != reverse))
	return out, nil
}

func direction(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

// where translates a condition into a squirrel predicate over alias.
func (b *builder) where(t *table, alias string, c storage.Cond) (sq.Sqlizer, error) {
	switch c := c.(type) {
	case nil:
		return sq.Expr("TRUE"), nil

	case storage.Eq:
		expr, err := t.expr(alias, c.Field)
		if err != nil {
			return nil, err
		}
		return sq.Eq{expr: c.Value}, nil

	case storage.In:
		if len(c.Values) == 0 {
			return sq.Expr("FALSE"), nil
		}
		expr, err := t.expr(alias, c.Field)
		if err != nil {
			return nil, err
		}
		return sq.Eq{expr: c.Values}, nil

	case storage.Gt:
		expr, err := t.expr(alias, c.Field)
		if err != nil {
			return nil, err
		}
		return sq.Gt{expr: c.Value}, nil

	case storage.Contains:
		expr, err := t.expr(alias, c.Field)
		if err != nil {
			return nil, err
		}
		return sq.ILike{expr: "%" + escapeLike(c.Text) + "%"}, nil

	case storage.And:
		if len(c) == 0 {
			return sq.Expr("TRUE"), nil
		}
		out := make(sq.And, 0, len(c))
		for _, sub := range c {
			p, err := b.where(t, alias, sub)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil

	case storage.Or:
		if len(c) == 0 {
			return sq.Expr("FALSE"), nil
		}
		out := make(sq.Or, 0, len(c))
		for _, sub := range c {
			p, err := b.where(t, alias, sub)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil

	case storage.Not:
		p, err := b.where(t, alias, c.Cond)
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT (?)", p), nil

	case storage.Some:
		return b.exists(t, alias, c.Relation, c.Where, true)

	case storage.Has:
		return b.exists(t, alias, c.Relation, c.Where, false)
	}

	return nil, fmt.Errorf("unsupported condition %T", c)
}

func (b *builder) exists(t *table, alias, name string, cond storage.Cond, many bool) (sq.Sqlizer, error) {
	rel, err := t.relation(name)
	if err != nil {
		return nil, err
	}
	if rel.many != many {
		return nil, domain.NewConfigurationError(t.typeName, name, "relation cardinality does not match condition")
	}
	target, err := b.table(rel.target)
	if err != nil {
		return nil, err
	}

	inner := b.alias()
	from, link := b.link(t, alias, target, inner, rel)
	pred, err := b.where(target, inner, cond)
	if err != nil {
		return nil, err
	}

	sub := sq.Select("1").From(from).Where(link).Where(pred)
	return sq.Expr("EXISTS (?)", sub), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

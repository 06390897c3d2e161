package postgres

import (
	"errors"
	"strings"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
	"github.com/heartmarshall/social-backend/internal/views"
)

func compile(t *testing.T, v *view.View) *view.SelectionSet {
	t.Helper()
	sel, err := views.Schema.Compile(v)
	require.NoError(t, err)
	return sel
}

func toSQL(t *testing.T, s sq.Sqlizer) (string, []any) {
	t.Helper()
	query, args, err := s.ToSql()
	require.NoError(t, err)
	return query, args
}

// ---------------------------------------------------------------------------
// Tables
// ---------------------------------------------------------------------------

func TestTables_CoverViewSchema(t *testing.T) {
	t.Parallel()

	tables := defaultTables()
	for _, typeName := range views.Schema.Names() {
		typ, _ := views.Schema.Type(typeName)
		tbl, ok := tables[typeName]
		require.True(t, ok, "no table for %s", typeName)

		for _, f := range typ.ScalarNames() {
			_, err := tbl.expr("t1", f)
			assert.NoError(t, err, "%s.%s", typeName, f)
		}
		for _, name := range typ.RelationNames() {
			rel, err := tbl.relation(name)
			require.NoError(t, err, "%s.%s", typeName, name)
			want, _ := typ.Relation(name)
			assert.Equal(t, want.Target, rel.target, "%s.%s", typeName, name)
			assert.Equal(t, want.Many, rel.many, "%s.%s", typeName, name)
		}
	}
}

// ---------------------------------------------------------------------------
// Selection
// ---------------------------------------------------------------------------

func TestBuilder_ColumnsFollowSelection(t *testing.T) {
	t.Parallel()

	v := view.New("Post", view.Fields{
		"id":           view.Scalar(),
		"title":        view.Scalar(),
		"commentCount": views.CommentCount,
		"author":       view.Nested(view.New("User", view.Fields{"name": view.Scalar()})),
	})

	b := newBuilder(defaultTables())
	tbl, _ := b.table("Post")
	cols, err := b.columns(tbl, b.alias(), compile(t, v))
	require.NoError(t, err)

	assert.Equal(t, []string{
		`(SELECT count(*) FROM comments cnt WHERE cnt.post_id = t1.id) AS "commentTotal"`,
		`t1.id AS "id"`,
		`t1.title AS "title"`,
		`(SELECT json_build_object('id', t2.id, 'name', t2.name) FROM users t2 WHERE t2.id = t1.author_id LIMIT 1) AS "author"`,
	}, cols)
}

func TestBuilder_IDAlwaysSelected(t *testing.T) {
	t.Parallel()

	b := newBuilder(defaultTables())
	tbl, _ := b.table("User")
	cols, err := b.columns(tbl, b.alias(), compile(t, view.New("User", view.Fields{"name": view.Scalar()})))
	require.NoError(t, err)

	assert.Equal(t, []string{`t1.id AS "id"`, `t1.name AS "name"`}, cols)
}

func TestBuilder_ToManyRelationIsOrderedArray(t *testing.T) {
	t.Parallel()

	v := view.New("Post", view.Fields{
		"id": view.Scalar(),
		"comments": view.Connection(
			view.New("Comment", view.Fields{"id": view.Scalar(), "content": view.Scalar()}),
			view.Args{"limit": 5},
		),
	})

	b := newBuilder(defaultTables())
	tbl, _ := b.table("Post")
	cols, err := b.columns(tbl, b.alias(), compile(t, v))
	require.NoError(t, err)
	require.Len(t, cols, 2)

	assert.Equal(t,
		`(SELECT coalesce(json_agg(t3.o), '[]'::json) FROM (SELECT json_build_object('content', t2.content, 'id', t2.id) AS o `+
			`FROM comments t2 WHERE t2.post_id = t1.id ORDER BY t2.created_at ASC, t2.id ASC LIMIT 5) t3) AS "comments"`,
		cols[1])
}

func TestBuilder_ThroughRelation(t *testing.T) {
	t.Parallel()

	v := view.New("ChatRoom", view.Fields{
		"id":     view.Scalar(),
		"admins": view.Connection(view.New("User", view.Fields{"id": view.Scalar()}), nil),
	})

	b := newBuilder(defaultTables())
	tbl, _ := b.table("ChatRoom")
	cols, err := b.columns(tbl, b.alias(), compile(t, v))
	require.NoError(t, err)

	assert.Contains(t, cols[1], "FROM users t2 JOIN chat_room_admins t3 ON t3.user_id = t2.id WHERE t3.room_id = t1.id")
}

func TestBuilder_UnknownField(t *testing.T) {
	t.Parallel()

	b := newBuilder(defaultTables())
	tbl, _ := b.table("User")
	sel := &view.SelectionSet{Fields: map[string]struct{}{"password": {}}}

	_, err := b.columns(tbl, b.alias(), sel)
	var ce *domain.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

// ---------------------------------------------------------------------------
// Conditions
// ---------------------------------------------------------------------------

func TestBuilder_Where(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		typeName string
		cond     storage.Cond
		wantSQL  string
		wantArgs []any
	}{
		{
			name: "nil matches everything", typeName: "Post",
			cond: nil, wantSQL: "TRUE",
		},
		{
			name: "eq", typeName: "Post",
			cond:    storage.Eq{Field: "authorId", Value: "u1"},
			wantSQL: "t1.author_id = ?", wantArgs: []any{"u1"},
		},
		{
			name: "eq nil", typeName: "Comment",
			cond:    storage.Eq{Field: "postId", Value: nil},
			wantSQL: "t1.post_id IS NULL",
		},
		{
			name: "in", typeName: "User",
			cond:    storage.IDs("a", "b"),
			wantSQL: "t1.id IN (?,?)", wantArgs: []any{"a", "b"},
		},
		{
			name: "empty in matches nothing", typeName: "User",
			cond: storage.IDs(), wantSQL: "FALSE",
		},
		{
			name: "gt", typeName: "ChatRoomMessage",
			cond:    storage.Gt{Field: "seq", Value: int64(5)},
			wantSQL: "t1.seq > ?", wantArgs: []any{int64(5)},
		},
		{
			name: "contains escapes wildcards", typeName: "Comment",
			cond:    storage.Contains{Field: "content", Text: "50%_off"},
			wantSQL: "t1.content ILIKE ?", wantArgs: []any{`%50\%\_off%`},
		},
		{
			name: "not", typeName: "ChatRoom",
			cond:    storage.Not{Cond: storage.Eq{Field: "private", Value: true}},
			wantSQL: "NOT (t1.private = ?)", wantArgs: []any{true},
		},
		{
			name: "some through join table", typeName: "ChatRoom",
			cond: storage.Or{
				storage.Eq{Field: "private", Value: false},
				storage.Some{Relation: "members", Where: storage.Eq{Field: "id", Value: "u1"}},
			},
			wantSQL: "(t1.private = ? OR EXISTS (SELECT 1 FROM users t2 JOIN chat_room_members t3 " +
				"ON t3.user_id = t2.id WHERE t3.room_id = t1.id AND t2.id = ?))",
			wantArgs: []any{false, "u1"},
		},
		{
			name: "has to-one", typeName: "ChatRoomMessage",
			cond:    storage.Has{Relation: "chatRoom", Where: storage.Eq{Field: "private", Value: false}},
			wantSQL: "EXISTS (SELECT 1 FROM chat_rooms t2 WHERE t2.id = t1.room_id AND t2.private = ?)",
			wantArgs: []any{false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := newBuilder(defaultTables())
			tbl, err := b.table(tt.typeName)
			require.NoError(t, err)

			pred, err := b.where(tbl, b.alias(), tt.cond)
			require.NoError(t, err)

			query, args := toSQL(t, pred)
			assert.Equal(t, tt.wantSQL, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuilder_WhereCardinalityMismatch(t *testing.T) {
	t.Parallel()

	b := newBuilder(defaultTables())
	tbl, _ := b.table("Comment")
	_, err := b.where(tbl, b.alias(), storage.Some{Relation: "author"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

// ---------------------------------------------------------------------------
// Keyset
// ---------------------------------------------------------------------------

func TestBuilder_After(t *testing.T) {
	t.Parallel()

	pos := connection.Position{Value: "2026-01-01 00:00:00+00", ID: "p1"}
	desc := []storage.Order{{Field: "createdAt", Desc: true}}

	tests := []struct {
		name    string
		orders  []storage.Order
		reverse bool
		want    string
	}{
		{"desc forward", desc, false, "(t1.created_at, t1.id) < (?, ?)"},
		{"desc backward", desc, true, "(t1.created_at, t1.id) > (?, ?)"},
		{"id only forward", nil, false, "t1.id > ?"},
		{"id only backward", nil, true, "t1.id < ?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := newBuilder(defaultTables())
			tbl, _ := b.table("Post")
			pred, err := b.after(tbl, b.alias(), tt.orders, pos, tt.reverse)
			require.NoError(t, err)

			query, _ := toSQL(t, pred)
			assert.Equal(t, tt.want, query)
		})
	}
}

func TestBuilder_OrderByTieBreakFollowsLastKey(t *testing.T) {
	t.Parallel()

	b := newBuilder(defaultTables())
	tbl, _ := b.table("Post")

	got, err := b.orderBy(tbl, "t1", []storage.Order{{Field: "createdAt", Desc: true}}, false)
	require.NoError(t, err)
	assert.Equal(t, "t1.created_at DESC, t1.id DESC", strings.Join(got, ", "))

	got, err = b.orderBy(tbl, "t1", []storage.Order{{Field: "createdAt", Desc: true}}, true)
	require.NoError(t, err)
	assert.Equal(t, "t1.created_at ASC, t1.id ASC", strings.Join(got, ", "))
}

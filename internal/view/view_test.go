package view

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/social-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func testSchema() *Schema {
	return MustSchema(
		NewType("User").Scalars("id", "name", "username"),
		NewType("Post").
			Scalars("id", "title", "content", "likes", "createdAt", "commentTotal").
			One("author", "User").
			Many("comments", "Comment"),
		NewType("Comment").
			Scalars("id", "content", "createdAt").
			One("author", "User").
			One("post", "Post"),
	)
}

var (
	userView = New("User", Fields{
		"id":       Scalar(),
		"name":     Scalar(),
		"username": Scalar(),
	})

	commentCount = Derived([]string{"commentTotal"}, func(row Record) any {
		return Int(row["commentTotal"])
	})

	commentView = New("Comment", Fields{
		"id":      Scalar(),
		"content": Scalar(),
		"author":  Nested(userView),
	})

	postView = New("Post", Fields{
		"id":           Scalar(),
		"title":        Scalar(),
		"content":      Scalar(),
		"author":       Nested(userView),
		"commentCount": commentCount,
		"comments":     Connection(commentView, nil),
	})
)

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

func TestNewSchema_UnknownRelationTarget(t *testing.T) {
	t.Parallel()

	_, err := NewSchema(NewType("Post").Scalars("id").One("author", "Ghost"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestNewSchema_DuplicateType(t *testing.T) {
	t.Parallel()

	_, err := NewSchema(NewType("User"), NewType("User"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

// ---------------------------------------------------------------------------
// Compile
// ---------------------------------------------------------------------------

func TestCompile_ScalarsNestedAndDerived(t *testing.T) {
	t.Parallel()

	sel, err := testSchema().Compile(postView)
	require.NoError(t, err)

	assert.Equal(t, []string{"commentTotal", "content", "id", "title"}, sel.FieldNames())
	assert.Equal(t, []string{"author", "comments"}, sel.RelationNames())

	author := sel.Relations["author"]
	assert.False(t, author.Many)
	assert.Equal(t, []string{"id", "name", "username"}, author.Selection.FieldNames())

	comments := sel.Relations["comments"]
	assert.True(t, comments.Many)
	assert.Equal(t, []string{"content", "id"}, comments.Selection.FieldNames())
	assert.Equal(t, []string{"author"}, comments.Selection.RelationNames())
}

func TestCompile_Idempotent(t *testing.T) {
	t.Parallel()

	s := testSchema()
	a, err := s.Compile(postView)
	require.NoError(t, err)
	b, err := s.Compile(postView)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Paths(), b.Paths())
}

func TestCompile_DerivedExtraFetchedOnce(t *testing.T) {
	t.Parallel()

	v := New("Post", Fields{
		"id":           Scalar(),
		"commentTotal": Scalar(),
		"commentCount": commentCount,
		"hasComments": Derived([]string{"commentTotal"}, func(row Record) any {
			return Int(row["commentTotal"]) > 0
		}),
	})

	sel, err := testSchema().Compile(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"commentTotal", "id"}, sel.FieldNames())
}

func TestCompile_DerivedExtrasStayAtTheirLevel(t *testing.T) {
	t.Parallel()

	v := New("Comment", Fields{
		"id": Scalar(),
		"post": Nested(New("Post", Fields{
			"id":           Scalar(),
			"commentCount": commentCount,
		})),
	})

	sel, err := testSchema().Compile(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, sel.FieldNames())
	assert.Equal(t, []string{"commentTotal", "id"}, sel.Relations["post"].Selection.FieldNames())
}

func TestCompile_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		view *View
	}{
		{"unknown type", New("Ghost", Fields{"id": Scalar()})},
		{"unknown field", New("User", Fields{"email": Scalar()})},
		{"relation as scalar", New("Post", Fields{"author": Scalar()})},
		{"scalar as nested", New("Post", Fields{"title": Nested(userView)})},
		{"to-one as connection", New("Post", Fields{"author": Connection(userView, nil)})},
		{"to-many as nested", New("Post", Fields{"comments": Nested(commentView)})},
		{"nested view wrong type", New("Post", Fields{"author": Nested(commentView)})},
		{"derived needs unknown field", New("Post", Fields{
			"score": Derived([]string{"karma"}, func(Record) any { return 0 }),
		})},
		{"derived shadows storage field", New("Post", Fields{
			"likes": Derived(nil, func(Record) any { return 0 }),
		})},
		{"error deep in nested view", New("Post", Fields{
			"author": Nested(New("User", Fields{"password": Scalar()})),
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := testSchema().Compile(tt.view)
			require.Error(t, err)

			var ce *domain.ConfigurationError
			assert.True(t, errors.As(err, &ce), "want *ConfigurationError, got %T", err)
		})
	}
}

func TestMustCompile_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		testSchema().MustCompile(New("User", Fields{"nope": Scalar()}))
	})
}

// ---------------------------------------------------------------------------
// Merge
// ---------------------------------------------------------------------------

func TestMerge_Union(t *testing.T) {
	t.Parallel()

	a := New("Post", Fields{"id": Scalar(), "author": Nested(New("User", Fields{"id": Scalar()}))})
	b := New("Post", Fields{"title": Scalar(), "author": Nested(New("User", Fields{"name": Scalar()}))})

	m, err := Merge(a, b)
	require.NoError(t, err)

	assert.Equal(t, []string{"author.id", "author.name", "id", "title"}, Paths(m))
	// inputs untouched
	assert.Equal(t, []string{"author.id", "id"}, Paths(a))
}

func TestMerge_Conflicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b *View
	}{
		{
			"scalar vs nested",
			New("Post", Fields{"author": Scalar()}),
			New("Post", Fields{"author": Nested(userView)}),
		},
		{
			"different types",
			New("Post", nil),
			New("User", nil),
		},
		{
			"connection args differ",
			New("Post", Fields{"comments": Connection(commentView, Args{"first": 10})}),
			New("Post", Fields{"comments": Connection(commentView, Args{"first": 20})}),
		},
		{
			"derived dependencies differ",
			New("Post", Fields{"commentCount": commentCount}),
			New("Post", Fields{"commentCount": Derived([]string{"likes"}, func(Record) any { return 0 })}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Merge(tt.a, tt.b)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

// ---------------------------------------------------------------------------
// Select / Paths
// ---------------------------------------------------------------------------

func TestSelect_NarrowsAndKeepsIDs(t *testing.T) {
	t.Parallel()

	v, err := Select(postView, []string{"title", "author.name", "comments.author.username", "commentCount"})
	require.NoError(t, err)

	want := []string{
		"author.id", "author.name",
		"commentCount",
		"comments.author.id", "comments.author.username", "comments.id",
		"id", "title",
	}
	if diff := cmp.Diff(want, Paths(v)); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestSelect_BareRelationKeepsOnlyID(t *testing.T) {
	t.Parallel()

	v, err := Select(postView, []string{"author"})
	require.NoError(t, err)
	assert.Equal(t, []string{"author.id", "id"}, Paths(v))
}

func TestSelect_Empty(t *testing.T) {
	t.Parallel()

	v, err := Select(postView, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, Paths(v))
}

func TestSelect_Rejects(t *testing.T) {
	t.Parallel()

	for _, p := range []string{"likes", "author.email", "title.length", "comments.post.id"} {
		_, err := Select(postView, []string{p})
		assert.ErrorIs(t, err, domain.ErrValidation, "path %q", p)
	}
}

func TestSelect_RoundTripsThroughPaths(t *testing.T) {
	t.Parallel()

	v, err := Select(postView, Paths(postView))
	require.NoError(t, err)
	assert.Equal(t, Paths(postView), Paths(v))

	s := testSchema()
	assert.True(t, s.MustCompile(postView).Equal(s.MustCompile(v)))
}

// ---------------------------------------------------------------------------
// ParseSelection
// ---------------------------------------------------------------------------

func TestParseSelection(t *testing.T) {
	t.Parallel()

	paths, err := ParseSelection(`{ id title author { name } comments { content author { id } } }`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"author.name", "comments.author.id", "comments.content", "id", "title",
	}, paths)
}

func TestParseSelection_Rejects(t *testing.T) {
	t.Parallel()

	for _, src := range []string{
		`{ id `,
		`{ a: id }`,
		`{ comments(first: 2) { id } }`,
		`{ ...F } fragment F on Post { id }`,
	} {
		_, err := ParseSelection(src)
		assert.ErrorIs(t, err, domain.ErrValidation, "src %q", src)
	}
}

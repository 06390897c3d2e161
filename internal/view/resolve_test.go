package view

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOne_ShapesRow(t *testing.T) {
	t.Parallel()

	row := Record{
		"id":           "p1",
		"title":        "Hello",
		"content":      "World",
		"commentTotal": int64(2),
		"author":       Record{"id": "u1", "name": "Ada", "username": "ada"},
		"comments": []any{
			map[string]any{"id": "c1", "content": "first", "author": map[string]any{"id": "u2", "name": "Bob", "username": "bob"}},
			map[string]any{"id": "c2", "content": "second", "author": nil},
		},
	}

	got := ResolveOne(row, postView)

	want := Record{
		TypenameField:  "Post",
		"id":           "p1",
		"title":        "Hello",
		"content":      "World",
		"commentCount": int64(2),
		"author":       Record{TypenameField: "User", "id": "u1", "name": "Ada", "username": "ada"},
		"comments": []Record{
			{
				TypenameField: "Comment", "id": "c1", "content": "first",
				"author": Record{TypenameField: "User", "id": "u2", "name": "Bob", "username": "bob"},
			},
			{TypenameField: "Comment", "id": "c2", "content": "second", "author": nil},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("resolved mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveOne_DerivedExtrasNotExposed(t *testing.T) {
	t.Parallel()

	v := New("Post", Fields{"id": Scalar(), "commentCount": commentCount})
	got := ResolveOne(Record{"id": "p1", "commentTotal": float64(7)}, v)

	assert.Equal(t, int64(7), got["commentCount"])
	assert.NotContains(t, got, "commentTotal")
}

func TestResolveOne_MissingNestedResolvesToNil(t *testing.T) {
	t.Parallel()

	got := ResolveOne(Record{"id": "p1", "title": "t", "content": "c", "commentTotal": int64(0)}, postView)

	assert.Contains(t, got, "author")
	assert.Nil(t, got["author"])
	assert.Nil(t, got["comments"])
}

func TestResolveOne_JSONSubObjects(t *testing.T) {
	t.Parallel()

	v := New("Comment", Fields{"id": Scalar(), "author": Nested(userView)})
	got := ResolveOne(Record{"id": "c1", "author": json.RawMessage(`{"id":"u1","name":"Ada"}`)}, v)

	author, ok := got["author"].(Record)
	require.True(t, ok)
	assert.Equal(t, "Ada", author["name"])
}

func TestResolveOne_NilRow(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ResolveOne(nil, postView))
}

func TestResolveMany_PreservesOrderAndLength(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 5, 50} {
		rows := make([]Record, n)
		for i := range rows {
			rows[i] = Record{"id": fmt.Sprintf("u%03d", n-i), "name": fmt.Sprint(i)}
		}

		got := ResolveMany(rows, userView)

		require.Len(t, got, n)
		for i := range rows {
			assert.Equal(t, rows[i]["id"], got[i]["id"], "n=%d i=%d", n, i)
		}
	}
}

func TestInt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(3), Int(int64(3)))
	assert.Equal(t, int64(3), Int(int32(3)))
	assert.Equal(t, int64(3), Int(3))
	assert.Equal(t, int64(3), Int(float64(3)))
	assert.Equal(t, int64(3), Int(json.Number("3")))
	assert.Equal(t, int64(0), Int("3"))
	assert.Equal(t, int64(0), Int(nil))
}

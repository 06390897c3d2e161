package comment

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/storage/storagetest"
	"github.com/heartmarshall/social-backend/internal/view"
	"github.com/heartmarshall/social-backend/pkg/ctxutil"
)

func newTestService(store commentStore) (*Service, *storagetest.Tx) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	tx := &storagetest.Tx{}
	return NewService(logger, store, tx, connection.NewPager(10, 50)), tx
}

// ---------------------------------------------------------------------------
// Add
// ---------------------------------------------------------------------------

func TestService_Add_Success(t *testing.T) {
	t.Parallel()

	ctx := ctxutil.WithUserID(context.Background(), "u1")
	store := &storagetest.StoreMock{
		CountFunc: func(_ context.Context, typeName string, where storage.Cond) (int64, error) {
			assert.Equal(t, "Post", typeName)
			assert.Equal(t, storage.IDs("p1"), where)
			return 1, nil
		},
		CreateFunc: func(_ context.Context, typeName string, values storage.Values) (string, error) {
			assert.Equal(t, "Comment", typeName)
			assert.Equal(t, storage.Values{"authorId": "u1", "postId": "p1", "content": "nice"}, values)
			return "c1", nil
		},
		FindManyFunc: func(context.Context, storage.Query) ([]view.Record, error) {
			return []view.Record{{"id": "c1", "content": "nice", "author": map[string]any{"id": "u1"}}}, nil
		},
	}

	svc, tx := newTestService(store)
	got, err := svc.Add(ctx, AddInput{PostID: "p1", Content: " nice ", Select: []string{"content", "author"}})
	require.NoError(t, err)
	assert.Equal(t, "nice", got["content"])
	assert.Equal(t, "u1", got["author"].(view.Record)["id"])
	assert.Equal(t, 1, tx.Runs)
}

func TestService_Add_MissingPost(t *testing.T) {
	t.Parallel()

	ctx := ctxutil.WithUserID(context.Background(), "u1")
	store := &storagetest.StoreMock{
		CountFunc: func(context.Context, string, storage.Cond) (int64, error) { return 0, nil },
	}

	svc, _ := newTestService(store)
	_, err := svc.Add(ctx, AddInput{PostID: "p1", Content: "nice"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, store.CreateCalls())
}

func TestService_Add_Errors(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(&storagetest.StoreMock{})

	_, err := svc.Add(context.Background(), AddInput{PostID: "p1", Content: "x"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	ctx := ctxutil.WithUserID(context.Background(), "u1")
	_, err = svc.Add(ctx, AddInput{PostID: "p1", Content: "   "})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "content", verr.Errors[0].Field)
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestService_Delete_ReturnsRowWithDecrementedCount(t *testing.T) {
	t.Parallel()

	ctx := ctxutil.WithUserID(context.Background(), "u1")
	owned := storage.Eq{Field: "authorId", Value: "u1"}
	store := &storagetest.StoreMock{
		FindManyFunc: func(_ context.Context, q storage.Query) ([]view.Record, error) {
			assert.Equal(t, storage.And{storage.IDs("c1"), owned}, q.Where)
			return []view.Record{{
				"id":   "c1",
				"post": map[string]any{"id": "p1", "commentTotal": float64(4)},
			}}, nil
		},
		DeleteFunc: func(_ context.Context, _ string, id string, where storage.Cond) error {
			assert.Equal(t, "c1", id)
			assert.Equal(t, owned, where)
			return nil
		},
	}

	svc, _ := newTestService(store)
	got, err := svc.Delete(ctx, DeleteInput{ID: "c1", Select: []string{"post.commentCount"}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got["post"].(view.Record)["commentCount"])
}

func TestService_Delete_NotAuthor(t *testing.T) {
	t.Parallel()

	ctx := ctxutil.WithUserID(context.Background(), "u2")
	store := &storagetest.StoreMock{
		FindManyFunc: func(context.Context, storage.Query) ([]view.Record, error) { return nil, nil },
	}

	svc, _ := newTestService(store)
	_, err := svc.Delete(ctx, DeleteInput{ID: "c1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, store.DeleteCalls())
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

func TestService_Search_BlankQueryIsEmptyPage(t *testing.T) {
	t.Parallel()

	store := &storagetest.StoreMock{}
	svc, _ := newTestService(store)

	page, err := svc.Search(context.Background(), SearchInput{Query: "   "})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasNext)
	assert.Empty(t, store.ScanCalls())
}

func TestService_Search_FiltersByContentAndPost(t *testing.T) {
	t.Parallel()

	store := &storagetest.StoreMock{
		ScanFunc: func(_ context.Context, q storage.Query) ([]connection.Node, error) {
			assert.Equal(t, storage.And{
				storage.Contains{Field: "content", Text: "go"},
				storage.Eq{Field: "postId", Value: "p1"},
			}, q.Where)
			return []connection.Node{{Row: view.Record{"id": "c1", "content": "Go!"}, Position: connection.Position{ID: "c1"}}}, nil
		},
	}

	svc, _ := newTestService(store)
	page, err := svc.Search(context.Background(), SearchInput{Query: " go ", PostID: "p1", Select: []string{"content"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Go!", page.Items[0]["content"])
}

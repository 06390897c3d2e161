package user

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/storage/storagetest"
	"github.com/heartmarshall/social-backend/internal/view"
	"github.com/heartmarshall/social-backend/pkg/ctxutil"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestService(store userStore) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewService(logger, store)
}

func userRows(ids ...string) []view.Record {
	rows := storagetest.Rows(ids...)
	for _, r := range rows {
		r["name"] = "name-" + r["id"].(string)
		r["username"] = "user-" + r["id"].(string)
	}
	return rows
}

// ---------------------------------------------------------------------------
// ByID tests
// ---------------------------------------------------------------------------

func TestService_ByID_Self(t *testing.T) {
	t.Parallel()

	ctx := ctxutil.WithUserID(context.Background(), "u1")
	store := &storagetest.StoreMock{
		FindManyFunc: func(_ context.Context, q storage.Query) ([]view.Record, error) {
			assert.Equal(t, "User", q.Type)
			assert.True(t, q.Selection.Has("name"))
			assert.False(t, q.Selection.Has("username"))
			return userRows("u1"), nil
		},
	}

	got, err := newTestService(store).ByID(ctx, ByIDInput{IDs: []string{"u1"}, Select: []string{"name"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, view.Record{"__typename": "User", "id": "u1", "name": "name-u1"}, got[0])
}

func TestService_ByID_Anonymous(t *testing.T) {
	t.Parallel()

	svc := newTestService(&storagetest.StoreMock{})
	_, err := svc.ByID(context.Background(), ByIDInput{IDs: []string{"u1"}})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestService_ByID_OtherUserForbidden(t *testing.T) {
	t.Parallel()

	ctx := ctxutil.WithUserID(context.Background(), "u1")
	store := &storagetest.StoreMock{
		FindManyFunc: func(context.Context, storage.Query) ([]view.Record, error) {
			return userRows("u1", "u2"), nil
		},
	}

	_, err := newTestService(store).ByID(ctx, ByIDInput{IDs: []string{"u1", "u2"}})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestService_ByID_MissingIsNotFound(t *testing.T) {
	t.Parallel()

	ctx := ctxutil.WithUserID(context.Background(), "u1")
	store := &storagetest.StoreMock{
		FindManyFunc: func(context.Context, storage.Query) ([]view.Record, error) {
			return nil, nil
		},
	}

	_, err := newTestService(store).ByID(ctx, ByIDInput{IDs: []string{"u1"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ByID_UnknownPath(t *testing.T) {
	t.Parallel()

	ctx := ctxutil.WithUserID(context.Background(), "u1")
	svc := newTestService(&storagetest.StoreMock{})

	_, err := svc.ByID(ctx, ByIDInput{IDs: []string{"u1"}, Select: []string{"email"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ---------------------------------------------------------------------------
// Update tests
// ---------------------------------------------------------------------------

func TestService_Update_TrimsAndReturnsUser(t *testing.T) {
	t.Parallel()

	ctx := ctxutil.WithUserID(context.Background(), "u1")
	store := &storagetest.StoreMock{
		UpdateFunc: func(_ context.Context, typeName, id string, where storage.Cond, values storage.Values) error {
			assert.Equal(t, "User", typeName)
			assert.Equal(t, "u1", id)
			assert.Nil(t, where)
			assert.Equal(t, storage.Values{"name": "Ada"}, values)
			return nil
		},
		FindManyFunc: func(context.Context, storage.Query) ([]view.Record, error) {
			return []view.Record{{"id": "u1", "name": "Ada"}}, nil
		},
	}

	got, err := newTestService(store).Update(ctx, UpdateInput{Name: "  Ada ", Select: []string{"name"}})
	require.NoError(t, err)
	assert.Equal(t, "Ada", got["name"])
	assert.Len(t, store.UpdateCalls(), 1)
}

func TestService_Update_Anonymous(t *testing.T) {
	t.Parallel()

	_, err := newTestService(&storagetest.StoreMock{}).Update(context.Background(), UpdateInput{Name: "Ada"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdateInput_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: "Ada"},
		{name: "two characters", input: "Al"},
		{name: "fifty characters", input: strings.Repeat("a", 50)},
		{name: "multibyte counts runes", input: strings.Repeat("ж", 50)},
		{name: "too short after trim", input: "  A  ", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 51), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := UpdateInput{Name: tt.input}.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

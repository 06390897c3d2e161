package client

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/social-backend/internal/cache"
	"github.com/heartmarshall/social-backend/internal/metrics"
	"github.com/heartmarshall/social-backend/internal/view"
)

// chanStream yields events from a channel and ends when it is closed.
type chanStream chan Event

func (s chanStream) Next(ctx context.Context) (Event, error) {
	select {
	case ev, ok := <-s:
		if !ok {
			return Event{}, io.EOF
		}
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

func message(id int64, msgID, content string) Event {
	return Event{ID: id, Data: view.Record{
		"__typename": "ChatRoomMessage",
		"id":         msgID,
		"content":    content,
	}}
}

func newTestReconciler(store *cache.Store, last int64) (*Reconciler, *metrics.Collector) {
	m := metrics.NewCollector("test")
	return NewReconciler(discardLogger(), store, "ChatRoomMessage", roomList, last, m), m
}

func TestReconciler_DropsAlreadyAppliedEvents(t *testing.T) {
	t.Parallel()

	store := cache.New()
	r, m := newTestReconciler(store, 0)

	for _, ev := range []Event{
		message(1, "m1", "a"),
		message(2, "m2", "b"),
		message(2, "m2", "b again"),
		message(1, "m1", "a again"),
	} {
		_, err := r.Apply(ev)
		require.NoError(t, err)
	}

	l, _ := store.List(roomList)
	assert.Equal(t, []string{"ChatRoomMessage:m1", "ChatRoomMessage:m2"}, l.IDs)
	got, _ := store.Read("ChatRoomMessage:m2")
	assert.Equal(t, "b", got["content"])
	assert.Equal(t, int64(2), r.Last())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsApplied))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsSkipped))
}

func TestReconciler_MergeKeepsUnmaskedFields(t *testing.T) {
	t.Parallel()

	store := cache.New()
	seedRoom(t, store)
	r, _ := newTestReconciler(store, 4)

	applied, err := r.Apply(message(5, "m1", "edited"))
	require.NoError(t, err)
	assert.True(t, applied)

	got, _ := store.Read("ChatRoomMessage:m1")
	assert.Equal(t, "edited", got["content"])
	assert.Equal(t, cache.Ref{Key: "User:u1"}, got["author"])

	l, _ := store.List(roomList)
	assert.Equal(t, []string{"ChatRoomMessage:m1"}, l.IDs)
}

func TestReconciler_AppliesOlderIDArrivingLate(t *testing.T) {
	t.Parallel()

	store := cache.New()
	r, m := newTestReconciler(store, 0)

	applied, err := r.Apply(message(11, "m11", "second"))
	require.NoError(t, err)
	assert.True(t, applied)
	applied, err = r.Apply(message(10, "m10", "first"))
	require.NoError(t, err)
	assert.True(t, applied)

	l, _ := store.List(roomList)
	assert.Equal(t, []string{"ChatRoomMessage:m11", "ChatRoomMessage:m10"}, l.IDs)
	assert.Equal(t, int64(11), r.Last())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsApplied))
	assert.Zero(t, testutil.ToFloat64(m.EventsSkipped))
}

func TestReconciler_StartsAfterGivenMarker(t *testing.T) {
	t.Parallel()

	r, _ := newTestReconciler(cache.New(), 10)
	applied, err := r.Apply(message(10, "m10", "old"))
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestReconciler_BodyWithoutIDIsNotApplied(t *testing.T) {
	t.Parallel()

	r, _ := newTestReconciler(cache.New(), 0)
	_, err := r.Apply(Event{ID: 1, Data: view.Record{"content": "?"}})
	assert.ErrorIs(t, err, cache.ErrNoID)
	assert.Zero(t, r.Last())
}

func TestReconciler_RunStopsWhenStreamEnds(t *testing.T) {
	t.Parallel()

	store := cache.New()
	r, _ := newTestReconciler(store, 0)

	s := make(chanStream, 3)
	s <- message(1, "m1", "a")
	s <- Event{ID: 2, Data: view.Record{"content": "no id"}}
	s <- message(3, "m3", "c")
	close(s)

	require.NoError(t, r.Run(context.Background(), s))
	l, _ := store.List(roomList)
	assert.Equal(t, []string{"ChatRoomMessage:m1", "ChatRoomMessage:m3"}, l.IDs)
}

func TestReconciler_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	r, _ := newTestReconciler(cache.New(), 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, make(chanStream)) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// TestChatScenario follows a message sent by this client: the placeholder
// shows at the head of the room, the reply swaps it in place, and the live
// echo of the same message changes nothing.
func TestChatScenario(t *testing.T) {
	t.Parallel()

	c, store := newTestClient(t, fixedReply(http.StatusOK, `{"data":{"__typename":"ChatRoomMessage","id":"m2","content":"hi",
		"author":{"__typename":"User","id":"u1","name":"Ann"}}}`))
	seedRoom(t, store)
	r, m := newTestReconciler(store, 1)

	key, err := c.Mutate(context.Background(), sendMessage("hi"))
	require.NoError(t, err)

	applied, err := r.Apply(Event{ID: 2, Data: view.Record{
		"__typename": "ChatRoomMessage", "id": "m2", "content": "hi",
		"author": view.Record{"__typename": "User", "id": "u1", "name": "Ann"},
	}})
	require.NoError(t, err)
	assert.True(t, applied)

	l, _ := store.List(roomList)
	assert.Equal(t, []string{key, "ChatRoomMessage:m1"}, l.IDs)

	// a message from someone else lands at the end
	_, err = r.Apply(message(3, "m3", "hey"))
	require.NoError(t, err)
	l, _ = store.List(roomList)
	assert.Equal(t, []string{"ChatRoomMessage:m2", "ChatRoomMessage:m1", "ChatRoomMessage:m3"}, l.IDs)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsApplied))
}

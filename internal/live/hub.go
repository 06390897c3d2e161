// Package live fans chat room events out to subscribers. A subscriber that
// resumes with the id of the last event it saw first receives the stored
// events it missed, then live ones.
package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/heartmarshall/social-backend/internal/metrics"
	"github.com/heartmarshall/social-backend/internal/view"
	"github.com/heartmarshall/social-backend/pkg/seqset"
)

// ErrDropped is returned by Subscription.Next after the subscriber fell
// behind and was disconnected.
var ErrDropped = errors.New("subscriber dropped: too slow")

// ErrClosed is returned by Subscription.Next after the subscription or the
// hub was closed.
var ErrClosed = errors.New("subscription closed")

// Event is one change in a room. ID is the room-independent sequence number
// assigned by storage. Ids are unique but concurrent writers may publish
// them out of order.
type Event struct {
	ID   int64       `json:"id"`
	Room string      `json:"-"`
	Data view.Record `json:"data"`
}

// Replayer loads stored events of room with ids greater than after, oldest
// first, at most limit of them.
type Replayer interface {
	Replay(ctx context.Context, room string, after int64, limit int) ([]Event, error)
}

// Options configure a Hub.
type Options struct {
	// Buffer is the number of undelivered events a subscriber may hold
	// before it is dropped.
	Buffer int
	// ReplayLimit is the page size of the replay of stored events.
	ReplayLimit int
}

// Hub routes published events to the subscribers of their room.
type Hub struct {
	log     *slog.Logger
	metrics *metrics.Collector
	opts    Options

	mu       sync.Mutex
	replayer Replayer
	rooms    map[string]map[*Subscription]struct{}
	closed   bool
}

// NewHub creates a hub. A nil collector disables metrics.
func NewHub(logger *slog.Logger, opts Options, m *metrics.Collector) *Hub {
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.ReplayLimit <= 0 {
		opts.ReplayLimit = 100
	}
	return &Hub{
		log:     logger.With("component", "live"),
		metrics: m,
		opts:    opts,
		rooms:   make(map[string]map[*Subscription]struct{}),
	}
}

// SetReplayer installs the source of stored events. Without one, subscribers
// only receive live events.
func (h *Hub) SetReplayer(r Replayer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.replayer = r
}

// Publish delivers ev to every subscriber of ev.Room without blocking.
// Subscribers whose buffer is full are dropped.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.LivePublished.Inc()
	}
	for sub := range h.rooms[ev.Room] {
		select {
		case sub.events <- ev:
		default:
			h.log.Warn("dropping slow subscriber",
				slog.String("room", ev.Room),
				slog.Int64("event_id", ev.ID),
			)
			if h.metrics != nil {
				h.metrics.LiveDropped.Inc()
			}
			h.removeLocked(sub, ErrDropped)
		}
	}
}

// Subscribe registers for events of room. Stored events with ids greater
// than lastEventID are delivered first, read page by page until the store
// is exhausted; a lastEventID of zero skips replay. The first page is read
// here so a failing store fails the subscription.
func (h *Hub) Subscribe(ctx context.Context, room string, lastEventID int64) (*Subscription, error) {
	sub := &Subscription{
		hub:         h,
		room:        room,
		events:      make(chan Event, h.opts.Buffer),
		done:        make(chan struct{}),
		replayAfter: lastEventID,
		seen:        seqset.New(max(seenWindow, h.opts.Buffer+h.opts.ReplayLimit)),
	}
	if lastEventID > 0 {
		sub.seen.Add(lastEventID)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Subscription]struct{})
	}
	h.rooms[room][sub] = struct{}{}
	if h.metrics != nil {
		h.metrics.LiveSubscribers.Inc()
	}
	sub.replayer = h.replayer
	h.mu.Unlock()

	// registered before replay so nothing published meanwhile is missed;
	// Next skips the overlap by id
	if lastEventID > 0 && sub.replayer != nil {
		sub.replaying = true
		if err := sub.replayPage(ctx); err != nil {
			sub.Close()
			return nil, err
		}
	}

	return sub, nil
}

// Subscribers returns the number of subscribers of room.
func (h *Hub) Subscribers(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

// Stats returns the number of rooms with subscribers and the total number of
// subscribers.
func (h *Hub) Stats() (rooms, subscribers int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, subs := range h.rooms {
		subscribers += len(subs)
	}
	return len(h.rooms), subscribers
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, subs := range h.rooms {
		for sub := range subs {
			h.removeLocked(sub, ErrClosed)
		}
	}
}

func (h *Hub) removeLocked(sub *Subscription, reason error) {
	subs, ok := h.rooms[sub.room]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.rooms, sub.room)
	}
	sub.reason = reason
	close(sub.done)
	if h.metrics != nil {
		h.metrics.LiveSubscribers.Dec()
	}
}

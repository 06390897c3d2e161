package live

import (
	"context"
	"fmt"

	"github.com/heartmarshall/social-backend/pkg/seqset"
)

// seenWindow is how many delivered event ids a subscription remembers to
// drop redeliveries.
const seenWindow = 4096

// Subscription is one subscriber of a room. It is consumed by a single
// goroutine calling Next.
type Subscription struct {
	hub  *Hub
	room string

	events chan Event
	done   chan struct{}
	// set by the hub before done is closed
	reason error

	// stored events still to replay: pending holds the current page,
	// replayAfter is where the next page starts
	replayer    Replayer
	replaying   bool
	replayAfter int64
	pending     []Event

	seen *seqset.Set
}

// Room returns the subscribed room.
func (s *Subscription) Room() string { return s.room }

// Next returns the next event not delivered before. Stored events missed
// since the resume point come first, oldest first, then live ones. Live
// events may arrive out of id order when writes commit concurrently.
// It blocks until an event arrives, ctx is done, or the subscription ends
// with ErrDropped or ErrClosed.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for {
		ev, err := s.receive(ctx)
		if err != nil {
			return Event{}, err
		}
		if !s.seen.Add(ev.ID) {
			continue
		}
		return ev, nil
	}
}

func (s *Subscription) receive(ctx context.Context) (Event, error) {
	for len(s.pending) == 0 && s.replaying {
		if err := s.replayPage(ctx); err != nil {
			return Event{}, err
		}
	}
	if len(s.pending) > 0 {
		ev := s.pending[0]
		s.pending = s.pending[1:]
		return ev, nil
	}

	// buffered events win over a concurrent drop so nothing already
	// accepted is lost
	select {
	case ev := <-s.events:
		return ev, nil
	default:
	}

	select {
	case ev := <-s.events:
		return ev, nil
	case <-s.done:
		select {
		case ev := <-s.events:
			return ev, nil
		default:
			return Event{}, s.reason
		}
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// replayPage loads the next page of stored events. A short page ends the
// replay.
func (s *Subscription) replayPage(ctx context.Context) error {
	limit := s.hub.opts.ReplayLimit
	missed, err := s.replayer.Replay(ctx, s.room, s.replayAfter, limit)
	if err != nil {
		return fmt.Errorf("replay room %s after %d: %w", s.room, s.replayAfter, err)
	}
	if len(missed) < limit {
		s.replaying = false
	}
	if len(missed) > 0 {
		s.replayAfter = missed[len(missed)-1].ID
	}
	s.pending = missed
	if s.hub.metrics != nil {
		s.hub.metrics.LiveReplayed.Add(float64(len(missed)))
	}
	return nil
}

// Close unsubscribes. Closing twice is a no-op.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.removeLocked(s, ErrClosed)
}

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/heartmarshall/social-backend/internal/cache"
	"github.com/heartmarshall/social-backend/internal/metrics"
	"github.com/heartmarshall/social-backend/internal/view"
	"github.com/heartmarshall/social-backend/pkg/seqset"
)

// appliedWindow is how many applied event ids a Reconciler remembers.
const appliedWindow = 4096

// Event is one frame of a live stream: the stored sequence number of a
// message and the message itself.
type Event struct {
	ID   int64       `json:"id"`
	Data view.Record `json:"data"`
}

// Stream yields live events. Next returns io.EOF once the server ended the
// stream.
type Stream interface {
	Next(ctx context.Context) (Event, error)
}

// Reconciler folds the events of one stream into the entity list they
// belong to.
type Reconciler struct {
	log      *slog.Logger
	store    *cache.Store
	typeName string
	listKey  string
	metrics  *metrics.Collector

	mu      sync.Mutex
	applied *seqset.Set
}

// NewReconciler creates a Reconciler writing entities of typeName into the
// list at listKey. last is the id of the event applied before the stream was
// opened, zero for none.
func NewReconciler(logger *slog.Logger, store *cache.Store, typeName, listKey string, last int64, m *metrics.Collector) *Reconciler {
	applied := seqset.New(appliedWindow)
	if last > 0 {
		applied.Add(last)
	}
	return &Reconciler{
		log:      logger.With("component", "reconciler", "list", listKey),
		store:    store,
		typeName: typeName,
		listKey:  listKey,
		metrics:  m,
		applied:  applied,
	}
}

// Last returns the highest applied event id, the point to resume from.
func (r *Reconciler) Last() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied.Max()
}

// Apply drops ev when an event with its id was already applied. Ids may
// arrive out of order, so an older unseen id is still applied.
// Otherwise it merges the body under its key, masked to the body's own
// fields, appends the key to the list unless present, and advances the
// marker. It reports whether the event was applied.
func (r *Reconciler) Apply(ev Event) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.applied.Has(ev.ID) {
		if r.metrics != nil {
			r.metrics.EventsSkipped.Inc()
		}
		return false, nil
	}

	key, err := r.store.Write(r.typeName, ev.Data, nil)
	if err != nil {
		return false, fmt.Errorf("reconciler.Apply %d: %w", ev.ID, err)
	}
	r.store.AppendToList(r.listKey, key)
	r.applied.Add(ev.ID)

	if r.metrics != nil {
		r.metrics.EventsApplied.Inc()
	}
	return true, nil
}

// Run applies events from s until ctx is cancelled or the stream ends, both
// of which return nil. Events that cannot be applied are logged and skipped.
func (r *Reconciler) Run(ctx context.Context, s Stream) error {
	for {
		ev, err := s.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reconciler.Run: %w", err)
		}
		if _, err := r.Apply(ev); err != nil {
			r.log.WarnContext(ctx, "skip live event",
				slog.Int64("event_id", ev.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

package rpc

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/view"
)

const maxLoaderBatch = 100

// byIDFunc fetches rows by id with the given selection. It fails as a whole
// when any id is missing or hidden.
type byIDFunc func(ctx context.Context, ids []string, sel []string) ([]view.Record, error)

// Loaders holds the per-request byId loaders. byId calls for the same
// procedure and selection issued concurrently within one request, e.g. by
// the calls of one batch, are coalesced into a single storage query.
type Loaders struct {
	wait time.Duration

	mu      sync.Mutex
	loaders map[string]*dataloader.Loader[string, view.Record]
}

// NewLoaders creates an empty loader set. Must be called per request:
// loaders cache results for their lifetime.
func NewLoaders(wait time.Duration) *Loaders {
	return &Loaders{
		wait:    wait,
		loaders: make(map[string]*dataloader.Loader[string, view.Record]),
	}
}

// Load returns the rows for ids in request order. Any failing id fails the
// call, matching a direct byId call.
func (l *Loaders) Load(ctx context.Context, procedure string, fetch byIDFunc, ids, sel []string) ([]view.Record, error) {
	// the loader would collapse duplicates, which a direct call rejects
	if len(ids) == 0 || hasDuplicates(ids) {
		return fetch(ctx, ids, sel)
	}
	loader := l.loader(procedure, fetch, sel)
	rows, errs := loader.LoadMany(ctx, ids)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (l *Loaders) loader(procedure string, fetch byIDFunc, sel []string) *dataloader.Loader[string, view.Record] {
	sorted := slices.Clone(sel)
	slices.Sort(sorted)
	key := procedure + "|" + strings.Join(slices.Compact(sorted), ",")

	l.mu.Lock()
	defer l.mu.Unlock()

	if loader, ok := l.loaders[key]; ok {
		return loader
	}
	loader := dataloader.NewBatchedLoader(
		newByIDBatchFn(fetch, sel),
		dataloader.WithWait[string, view.Record](l.wait),
		dataloader.WithBatchCapacity[string, view.Record](maxLoaderBatch),
	)
	l.loaders[key] = loader
	return loader
}

// newByIDBatchFn loads all keys in one call. When that fails, each key is
// retried on its own so one bad id only fails the calls that asked for it.
func newByIDBatchFn(fetch byIDFunc, sel []string) dataloader.BatchFunc[string, view.Record] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[view.Record] {
		rows, err := fetch(ctx, keys, sel)
		if err == nil {
			return mapResults(keys, rows)
		}
		if len(keys) == 1 {
			return errorResults(1, err)
		}

		results := make([]*dataloader.Result[view.Record], len(keys))
		for i, key := range keys {
			rows, err := fetch(ctx, []string{key}, sel)
			if err != nil {
				results[i] = &dataloader.Result[view.Record]{Error: err}
				continue
			}
			results[i] = mapResults([]string{key}, rows)[0]
		}
		return results
	}
}

// mapResults maps fetched rows back to key order. fetch returns rows in
// request order, but ids are matched to stay independent of that.
func mapResults(keys []string, rows []view.Record) []*dataloader.Result[view.Record] {
	byID := make(map[string]view.Record, len(rows))
	for _, row := range rows {
		if id, ok := row["id"].(string); ok {
			byID[id] = row
		}
	}
	results := make([]*dataloader.Result[view.Record], len(keys))
	for i, key := range keys {
		row, ok := byID[key]
		if !ok {
			results[i] = &dataloader.Result[view.Record]{Error: fmt.Errorf("%s: %w", key, domain.ErrNotFound)}
			continue
		}
		results[i] = &dataloader.Result[view.Record]{Data: row}
	}
	return results
}

func hasDuplicates(ids []string) bool {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}

func errorResults(n int, err error) []*dataloader.Result[view.Record] {
	results := make([]*dataloader.Result[view.Record], n)
	for i := range results {
		results[i] = &dataloader.Result[view.Record]{Error: err}
	}
	return results
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type contextKey string

const loadersKey contextKey = "rpc_loaders"

// WithLoaders stores Loaders in the context.
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, l)
}

// loadersFromContext returns the request loaders, or a fresh set when the
// middleware did not install one.
func loadersFromContext(ctx context.Context, wait time.Duration) *Loaders {
	if l, ok := ctx.Value(loadersKey).(*Loaders); ok && l != nil {
		return l
	}
	return NewLoaders(wait)
}

// LoaderMiddleware installs per-request Loaders.
func LoaderMiddleware(wait time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(wait))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

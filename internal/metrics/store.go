package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/view"
)

// Store records the count, outcome and latency of every storage call.
type Store struct {
	inner storage.Store
	c     *Collector
}

// InstrumentStore wraps inner with storage metrics.
func InstrumentStore(inner storage.Store, c *Collector) *Store {
	return &Store{inner: inner, c: c}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) observe(op, typeName string, start time.Time, err error) {
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		status = "not_found"
	default:
		status = "error"
	}
	s.c.StoreOperations.WithLabelValues(op, typeName, status).Inc()
	s.c.StoreDuration.WithLabelValues(op, typeName).Observe(time.Since(start).Seconds())
}

func (s *Store) FindUnique(ctx context.Context, q storage.Query) (view.Record, error) {
	start := time.Now()
	row, err := s.inner.FindUnique(ctx, q)
	s.observe("find_unique", q.Type, start, err)
	return row, err
}

func (s *Store) FindMany(ctx context.Context, q storage.Query) ([]view.Record, error) {
	start := time.Now()
	rows, err := s.inner.FindMany(ctx, q)
	s.observe("find_many", q.Type, start, err)
	return rows, err
}

func (s *Store) Count(ctx context.Context, typeName string, where storage.Cond) (int64, error) {
	start := time.Now()
	n, err := s.inner.Count(ctx, typeName, where)
	s.observe("count", typeName, start, err)
	return n, err
}

func (s *Store) Scan(ctx context.Context, q storage.Query) ([]connection.Node, error) {
	start := time.Now()
	nodes, err := s.inner.Scan(ctx, q)
	s.observe("scan", q.Type, start, err)
	return nodes, err
}

func (s *Store) Locate(ctx context.Context, q storage.Query, id string) (connection.Position, error) {
	start := time.Now()
	pos, err := s.inner.Locate(ctx, q, id)
	s.observe("locate", q.Type, start, err)
	return pos, err
}

func (s *Store) Create(ctx context.Context, typeName string, values storage.Values) (string, error) {
	start := time.Now()
	id, err := s.inner.Create(ctx, typeName, values)
	s.observe("create", typeName, start, err)
	return id, err
}

func (s *Store) Update(ctx context.Context, typeName, id string, where storage.Cond, values storage.Values) error {
	start := time.Now()
	err := s.inner.Update(ctx, typeName, id, where, values)
	s.observe("update", typeName, start, err)
	return err
}

func (s *Store) Delete(ctx context.Context, typeName, id string, where storage.Cond) error {
	start := time.Now()
	err := s.inner.Delete(ctx, typeName, id, where)
	s.observe("delete", typeName, start, err)
	return err
}

// Package rpc serves the JSON RPC surface. Every procedure accepts an
// envelope {select, selection, args, ...fields}; the selection narrows the
// route's view and is resolved in a single storage round trip.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/metrics"
	"github.com/heartmarshall/social-backend/internal/view"
)

// procedure runs one call.
type procedure func(ctx context.Context, c *call) (any, error)

// Options configures the handler.
type Options struct {
	MaxBatch         int
	BatchConcurrency int
	LoaderWait       time.Duration
	MaxBodyBytes     int64
}

// Handler dispatches RPC calls to the services.
type Handler struct {
	log        *slog.Logger
	metrics    *metrics.Collector
	opts       Options
	procedures map[string]procedure
}

// NewHandler creates a Handler. A nil collector disables metrics.
func NewHandler(logger *slog.Logger, services Services, opts Options, m *metrics.Collector) *Handler {
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = 50
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = 8
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	h := &Handler{
		log:     logger.With("component", "rpc"),
		metrics: m,
		opts:    opts,
	}
	h.procedures = h.register(services)
	return h
}

// Routes mounts the single-call and batch endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/rpc", h.ServeBatch)
	r.Post("/rpc/{procedure}", h.ServeCall)
}

// Procedures lists the registered procedure names.
func (h *Handler) Procedures() []string {
	names := make([]string, 0, len(h.procedures))
	for name := range h.procedures {
		names = append(names, name)
	}
	return names
}

// Response is the body of a single call and of each batch entry.
type Response struct {
	Data   any           `json:"data,omitempty"`
	Errors gqlerror.List `json:"errors,omitempty"`
	status int
}

// BatchCall is one entry of a batch request.
type BatchCall struct {
	Procedure string          `json:"procedure"`
	Input     json.RawMessage `json:"input"`
}

// ServeCall handles POST /rpc/{procedure}.
func (h *Handler) ServeCall(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "procedure")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		resp := h.fail(r.Context(), name, fmt.Errorf("%w: read body: %v", errBadRequest, err))
		writeJSON(w, resp.status, resp)
		return
	}

	resp := h.run(r.Context(), name, body)
	writeJSON(w, resp.status, resp)
}

// ServeBatch handles POST /rpc: an array of calls answered by an array of
// responses in the same order. Calls run concurrently and fail independently.
func (h *Handler) ServeBatch(w http.ResponseWriter, r *http.Request) {
	var calls []BatchCall
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err := dec.Decode(&calls); err != nil {
		resp := h.fail(r.Context(), "", fmt.Errorf("%w: decode batch: %v", errBadRequest, err))
		writeJSON(w, resp.status, resp)
		return
	}
	if len(calls) == 0 || len(calls) > h.opts.MaxBatch {
		resp := h.fail(r.Context(), "", fmt.Errorf("%w: batch must hold 1..%d calls (got %d)", errBadRequest, h.opts.MaxBatch, len(calls)))
		writeJSON(w, resp.status, resp)
		return
	}

	ctx := r.Context()
	out := make([]Response, len(calls))

	var g errgroup.Group
	g.SetLimit(h.opts.BatchConcurrency)
	for i, c := range calls {
		g.Go(func() error {
			out[i] = h.run(ctx, c.Procedure, c.Input)
			return nil
		})
	}
	_ = g.Wait()

	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) run(ctx context.Context, name string, raw json.RawMessage) Response {
	start := time.Now()

	resp := h.dispatch(ctx, name, raw)

	if h.metrics != nil {
		label := name
		if _, ok := h.procedures[name]; !ok {
			label = "unknown"
		}
		code := "OK"
		if len(resp.Errors) > 0 {
			code, _ = resp.Errors[0].Extensions["code"].(string)
		}
		h.metrics.RPCRequests.WithLabelValues(label, code).Inc()
		h.metrics.RPCDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}

	return resp
}

func (h *Handler) dispatch(ctx context.Context, name string, raw json.RawMessage) Response {
	proc, ok := h.procedures[name]
	if !ok {
		return h.fail(ctx, name, fmt.Errorf("%w: unknown procedure %q", errBadRequest, name))
	}

	c, err := parseCall(raw)
	if err != nil {
		return h.fail(ctx, name, err)
	}

	data, err := proc(ctx, c)
	if err != nil {
		return h.fail(ctx, name, err)
	}
	return Response{Data: data, status: http.StatusOK}
}

func (h *Handler) fail(ctx context.Context, name string, err error) Response {
	gqlErr, status := presentError(ctx, h.log, name, err)
	return Response{Errors: gqlerror.List{gqlErr}, status: status}
}

// ---------------------------------------------------------------------------
// Envelope
// ---------------------------------------------------------------------------

// call is a parsed envelope. raw still holds the procedure fields.
type call struct {
	sel  []string
	args connection.Args
	raw  json.RawMessage
}

func parseCall(raw json.RawMessage) (*call, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}

	var env struct {
		Select    []string        `json:"select"`
		Selection string          `json:"selection"`
		Args      connection.Args `json:"args"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", errBadRequest, err)
	}

	sel := env.Select
	if env.Selection != "" {
		parsed, err := view.ParseSelection(env.Selection)
		if err != nil {
			return nil, err
		}
		sel = append(sel, parsed...)
	}

	return &call{sel: sel, args: env.Args, raw: raw}, nil
}

// decode reads the procedure fields into v.
func (c *call) decode(v any) error {
	if err := json.Unmarshal(c.raw, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return domain.NewValidationError(typeErr.Field, "must be "+typeErr.Type.String())
		}
		return fmt.Errorf("%w: decode input: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

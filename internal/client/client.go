// Package client talks to the RPC and live endpoints and keeps the
// responses in a normalized cache.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/heartmarshall/social-backend/internal/cache"
	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/metrics"
	"github.com/heartmarshall/social-backend/internal/transport/rpc"
	"github.com/heartmarshall/social-backend/internal/view"
)

// Options configures a Client. Zero values select defaults.
type Options struct {
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	// Token is sent as a bearer token on every call and stream.
	Token   string
	Metrics *metrics.Collector
}

// Client calls procedures and writes what they return into a Store.
type Client struct {
	log     *slog.Logger
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
	token   string
	store   *cache.Store
	metrics *metrics.Collector
}

// New creates a Client for the server at baseURL.
func New(logger *slog.Logger, baseURL string, store *cache.Store, opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Client{
		log:     logger.With("component", "client"),
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    opts.HTTPClient,
		dialer:  opts.Dialer,
		token:   opts.Token,
		store:   store,
		metrics: opts.Metrics,
	}
}

// Store returns the cache the client writes into.
func (c *Client) Store() *cache.Store {
	return c.store
}

// Request is one procedure call. Input holds the procedure fields; Select
// and Args form the rest of the envelope.
type Request struct {
	Procedure string
	Input     map[string]any
	Select    []string
	Args      *connection.Args
}

func (r Request) body() map[string]any {
	out := make(map[string]any, len(r.Input)+2)
	for k, v := range r.Input {
		out[k] = v
	}
	if len(r.Select) > 0 {
		out["select"] = r.Select
	}
	if r.Args != nil {
		out["args"] = r.Args
	}
	return out
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors gqlerror.List   `json:"errors"`
}

// Call runs one procedure and decodes its data into out, which may be nil.
// Error responses are turned back into domain errors.
func (c *Client) Call(ctx context.Context, req Request, out any) error {
	payload, err := json.Marshal(req.body())
	if err != nil {
		return fmt.Errorf("client.Call %s: encode: %w", req.Procedure, err)
	}

	var resp response
	if err := c.post(ctx, "/rpc/"+req.Procedure, payload, &resp); err != nil {
		return fmt.Errorf("client.Call %s: %w", req.Procedure, err)
	}
	if len(resp.Errors) > 0 {
		return decodeError(resp.Errors[0])
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("client.Call %s: decode data: %w", req.Procedure, err)
	}
	return nil
}

// Result is the outcome of one call of a batch.
type Result struct {
	Data json.RawMessage
	Err  error
}

// Batch sends calls in one request. Results keep the order of reqs and fail
// independently; the returned error covers only the request as a whole.
func (c *Client) Batch(ctx context.Context, reqs []Request) ([]Result, error) {
	calls := make([]rpc.BatchCall, len(reqs))
	for i, req := range reqs {
		input, err := json.Marshal(req.body())
		if err != nil {
			return nil, fmt.Errorf("client.Batch: encode %s: %w", req.Procedure, err)
		}
		calls[i] = rpc.BatchCall{Procedure: req.Procedure, Input: input}
	}
	payload, err := json.Marshal(calls)
	if err != nil {
		return nil, fmt.Errorf("client.Batch: encode: %w", err)
	}

	var resps []response
	if err := c.post(ctx, "/rpc", payload, &resps); err != nil {
		return nil, fmt.Errorf("client.Batch: %w", err)
	}
	if len(resps) != len(reqs) {
		return nil, fmt.Errorf("client.Batch: got %d results for %d calls", len(resps), len(reqs))
	}

	out := make([]Result, len(resps))
	for i, r := range resps {
		if len(r.Errors) > 0 {
			out[i].Err = decodeError(r.Errors[0])
			continue
		}
		out[i].Data = r.Data
	}
	return out, nil
}

// post sends payload and decodes the reply into out. Non-2xx replies carry
// an error envelope and are decoded as well.
func (c *Client) post(ctx context.Context, path string, payload []byte, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		var env response
		if resp.StatusCode >= 300 && json.Unmarshal(body, &env) == nil && len(env.Errors) > 0 {
			return decodeError(env.Errors[0])
		}
		return fmt.Errorf("status %d: decode response: %w", resp.StatusCode, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Cache writes
// ---------------------------------------------------------------------------

// Query runs a read procedure returning an entity or a list of entities and
// writes them into the store. It returns their keys in order.
func (c *Client) Query(ctx context.Context, req Request) ([]string, error) {
	var data json.RawMessage
	if err := c.Call(ctx, req, &data); err != nil {
		return nil, err
	}

	var recs []view.Record
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("client.Query %s: %w", req.Procedure, err)
		}
	} else {
		var rec view.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("client.Query %s: %w", req.Procedure, err)
		}
		recs = []view.Record{rec}
	}

	keys, err := c.store.WriteMany("", recs, nil)
	if err != nil {
		return nil, fmt.Errorf("client.Query %s: %w", req.Procedure, err)
	}
	return keys, nil
}

type pageData struct {
	Items       []view.Record `json:"items"`
	NextCursor  string        `json:"nextCursor"`
	PrevCursor  string        `json:"prevCursor"`
	HasNext     bool          `json:"hasNext"`
	HasPrevious bool          `json:"hasPrevious"`
}

// QueryList runs a connection procedure and stores the page as the list at
// listKey, replacing what was there.
func (c *Client) QueryList(ctx context.Context, listKey string, req Request) (cache.List, error) {
	page, keys, err := c.page(ctx, req)
	if err != nil {
		return cache.List{}, err
	}

	var args connection.Args
	if req.Args != nil {
		args = *req.Args
	}
	l := cache.List{
		IDs:        keys,
		Args:       args,
		NextCursor: page.NextCursor,
		PrevCursor: page.PrevCursor,
		HasNext:    page.HasNext,
	}
	c.store.SetList(listKey, l)
	return l, nil
}

// LoadMore fetches the page after the end of the list at listKey with the
// list's own arguments and appends it. Input and Select of req are used as
// given. It is a no-op on a list without a next page.
func (c *Client) LoadMore(ctx context.Context, listKey string, req Request) (cache.List, error) {
	l, ok := c.store.List(listKey)
	if !ok {
		return cache.List{}, fmt.Errorf("client.LoadMore: %w: list %q", domain.ErrNotFound, listKey)
	}
	if !l.HasNext {
		return l, nil
	}

	args := l.Args
	args.Cursor = l.NextCursor
	args.Direction = connection.Forward
	req.Args = &args

	page, keys, err := c.page(ctx, req)
	if err != nil {
		return cache.List{}, err
	}
	for _, key := range keys {
		c.store.AppendToList(listKey, key)
	}

	l, _ = c.store.List(listKey)
	l.NextCursor = page.NextCursor
	l.HasNext = page.HasNext
	c.store.SetList(listKey, l)
	return l, nil
}

func (c *Client) page(ctx context.Context, req Request) (pageData, []string, error) {
	var page pageData
	if err := c.Call(ctx, req, &page); err != nil {
		return pageData{}, nil, err
	}
	keys, err := c.store.WriteMany("", page.Items, nil)
	if err != nil {
		return pageData{}, nil, fmt.Errorf("client.page %s: %w", req.Procedure, err)
	}
	return page, keys, nil
}

// Mutation is an optimistic write: Optimistic is merged under a placeholder
// key and inserted by Placements before Request is sent.
type Mutation struct {
	Request
	Type       string
	Optimistic view.Record
	Placements []cache.Placement
}

// Mutate applies m optimistically, sends it, and commits the server entity
// in place of the placeholder. On any failure the optimistic write is rolled
// back and an *domain.OptimisticConflictError is returned.
func (c *Client) Mutate(ctx context.Context, m Mutation) (string, error) {
	h := c.store.BeginOptimistic(m.Type, m.Optimistic, m.Placements...)

	var data view.Record
	err := c.Call(ctx, m.Request, &data)
	if err == nil {
		var key string
		if key, err = c.store.CommitOptimistic(h, data, nil); err == nil {
			return key, nil
		}
	}

	c.store.RollbackOptimistic(h)
	c.log.WarnContext(ctx, "optimistic write rolled back",
		slog.String("procedure", m.Procedure),
		slog.String("key", h.Key),
		slog.String("error", err.Error()),
	)
	return "", &domain.OptimisticConflictError{Key: h.Key, Err: err}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// RemoteError is an error reported by the server. It unwraps to the domain
// sentinel matching its code.
type RemoteError struct {
	Code    string
	Message string
	err     error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.err }

var codeErrors = map[string]error{
	rpc.CodeNotFound:      domain.ErrNotFound,
	rpc.CodeAlreadyExists: domain.ErrAlreadyExists,
	rpc.CodeUnauthorized:  domain.ErrUnauthorized,
	rpc.CodeForbidden:     domain.ErrForbidden,
	rpc.CodeConflict:      domain.ErrConflict,
	rpc.CodeConfiguration: domain.ErrConfiguration,
}

func decodeError(e *gqlerror.Error) error {
	code, _ := e.Extensions["code"].(string)

	switch code {
	case rpc.CodeValidation:
		return decodeValidation(e)
	case rpc.CodeStaleCursor:
		cursor, _ := e.Extensions["cursor"].(string)
		return &domain.StaleCursorError{Cursor: cursor}
	}

	re := &RemoteError{Code: code, Message: e.Message}
	if sentinel, ok := codeErrors[code]; ok {
		re.err = sentinel
	}
	return re
}

func decodeValidation(e *gqlerror.Error) error {
	raw, err := json.Marshal(e.Extensions["fields"])
	if err != nil {
		return domain.NewValidationError("", e.Message)
	}
	var fields []domain.FieldError
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return domain.NewValidationError("", e.Message)
	}
	return domain.NewValidationErrors(fields)
}


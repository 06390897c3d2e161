// Package connection implements cursor-based pagination in both directions
// over an ordered result set.
//
// The storage side exposes a single primitive, Source.Scan: read up to n items
// strictly after a position, in declared order or in reverse. A backward page
// is a reverse scan from the cursor whose result is reversed back into
// declared order, so both directions share one query path.
package connection

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/view"
)

// Direction of traversal relative to the declared sort order.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Args is the pagination envelope of a connection request.
type Args struct {
	Cursor    string    `json:"cursor,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// Node is one scanned item and its position in the sort order.
type Node struct {
	Row      view.Record
	Position Position
}

// Source is an ordered, scannable result set.
type Source interface {
	// Scan returns up to limit items strictly after the given position
	// (from the start when after is nil), in declared order, or in reverse
	// declared order when reverse is set. The item at after is never
	// returned.
	Scan(ctx context.Context, after *Position, reverse bool, limit int) ([]Node, error)

	// Locate returns the position of the item with the given id.
	// Returns domain.ErrNotFound when the item no longer exists.
	Locate(ctx context.Context, id string) (Position, error)
}

// Page is one page of a connection, always in declared order.
type Page struct {
	Items       []view.Record `json:"items"`
	Cursors     []string      `json:"cursors"`
	NextCursor  string        `json:"nextCursor,omitempty"`
	PrevCursor  string        `json:"prevCursor,omitempty"`
	HasNext     bool          `json:"hasNext"`
	HasPrevious bool          `json:"hasPrevious"`
}

// Pager paginates Sources.
type Pager struct {
	DefaultLimit int
	MaxLimit     int
}

// NewPager creates a Pager; zero limits fall back to package defaults.
func NewPager(defaultLimit, maxLimit int) Pager {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return Pager{DefaultLimit: defaultLimit, MaxLimit: maxLimit}
}

// Normalize validates args and applies defaults.
func (p Pager) Normalize(args Args) (Args, error) {
	switch args.Direction {
	case "":
		args.Direction = Forward
	case Forward, Backward:
	default:
		return args, domain.NewValidationError("direction", "must be forward or backward")
	}
	if args.Limit < 0 {
		return args, domain.NewValidationError("limit", "must be >= 0")
	}
	if args.Limit == 0 {
		args.Limit = p.DefaultLimit
	}
	if args.Limit > p.MaxLimit {
		args.Limit = p.MaxLimit
	}
	return args, nil
}

// Page fetches one page of src.
//
// A forward page holds the items after the cursor; a backward page the items
// before it. One extra item is scanned to learn whether the traversal can
// continue. NextCursor is set when more items follow the page, PrevCursor
// when items precede it. An empty page carries no cursors.
func (p Pager) Page(ctx context.Context, src Source, args Args) (*Page, error) {
	args, err := p.Normalize(args)
	if err != nil {
		return nil, err
	}

	after, err := p.position(ctx, src, args.Cursor)
	if err != nil {
		return nil, err
	}

	reverse := args.Direction == Backward
	nodes, err := src.Scan(ctx, after, reverse, args.Limit+1)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	more := len(nodes) > args.Limit
	if more {
		nodes = nodes[:args.Limit]
	}
	if reverse {
		slices.Reverse(nodes)
	}

	page := &Page{
		Items:   make([]view.Record, len(nodes)),
		Cursors: make([]string, len(nodes)),
	}
	for i, n := range nodes {
		page.Items[i] = n.Row
		page.Cursors[i] = EncodeCursor(n.Position)
	}
	if len(nodes) == 0 {
		return page, nil
	}

	if reverse {
		page.HasPrevious = more
		page.HasNext = after != nil
	} else {
		page.HasNext = more
		page.HasPrevious = after != nil
	}
	if page.HasNext {
		page.NextCursor = page.Cursors[len(nodes)-1]
	}
	if page.HasPrevious {
		page.PrevCursor = page.Cursors[0]
	}
	return page, nil
}

func (p Pager) position(ctx context.Context, src Source, token string) (*Position, error) {
	if token == "" {
		return nil, nil
	}
	pos, positioned := DecodeCursor(token)
	if positioned {
		return &pos, nil
	}

	pos, err := src.Locate(ctx, pos.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.StaleCursorError{Cursor: token}
	}
	if err != nil {
		return nil, fmt.Errorf("locate cursor: %w", err)
	}
	return &pos, nil
}

package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeWait = time.Second

// WSStream is a live chat room stream over a websocket.
type WSStream struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

// Dial opens the live stream of a chat room. Messages stored after
// lastEventID are replayed first.
func (c *Client) Dial(ctx context.Context, room string, lastEventID int64) (*WSStream, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("client.Dial: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u = u.JoinPath("live", "chatroom", room)
	if lastEventID > 0 {
		u.RawQuery = url.Values{"lastEventId": {strconv.FormatInt(lastEventID, 10)}}.Encode()
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("client.Dial %s: status %d: %w", room, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("client.Dial %s: %w", room, err)
	}
	return &WSStream{conn: conn}, nil
}

// Next reads one event. Cancelling ctx unblocks the read and leaves the
// stream unusable.
func (s *WSStream) Next(ctx context.Context) (Event, error) {
	stop := context.AfterFunc(ctx, func() {
		s.conn.SetReadDeadline(time.Now()) //nolint:errcheck
	})
	defer stop()

	var ev Event
	if err := s.conn.ReadJSON(&ev); err != nil {
		if ctx.Err() != nil {
			return Event{}, ctx.Err()
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return Event{}, io.EOF
		}
		return Event{}, fmt.Errorf("stream.Next: %w", err)
	}
	return ev, nil
}

// Close says goodbye to the server and closes the connection.
func (s *WSStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait)) //nolint:errcheck
		err = s.conn.Close()
	})
	return err
}

// Subscribe streams the live events of room into r until ctx is cancelled
// or the server ends the stream. It resumes after the newest event r has
// applied.
func (c *Client) Subscribe(ctx context.Context, room string, r *Reconciler) error {
	stream, err := c.Dial(ctx, room, r.Last())
	if err != nil {
		return err
	}
	defer stream.Close()

	c.log.DebugContext(ctx, "subscribed",
		slog.String("room", room),
		slog.Int64("last_event_id", r.Last()),
	)
	return r.Run(ctx, stream)
}

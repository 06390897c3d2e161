// Package ws streams live chat room events over websockets.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/heartmarshall/social-backend/internal/domain"
	"github.com/heartmarshall/social-backend/internal/live"
)

const maxMessageSize = 4 * 1024

// roomAuthorizer decides whether the caller may read a room.
type roomAuthorizer interface {
	Authorize(ctx context.Context, room string) error
}

// subscriber opens live subscriptions.
type subscriber interface {
	Subscribe(ctx context.Context, room string, lastEventID int64) (*live.Subscription, error)
}

// Options configures connection keepalive.
type Options struct {
	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration
	// CheckOrigin defaults to allowing every origin; CORS is enforced by
	// the HTTP middleware.
	CheckOrigin func(r *http.Request) bool
}

// Server upgrades chat room stream requests.
type Server struct {
	log      *slog.Logger
	rooms    roomAuthorizer
	hub      subscriber
	opts     Options
	upgrader websocket.Upgrader
}

// NewServer creates a Server.
func NewServer(logger *slog.Logger, rooms roomAuthorizer, hub subscriber, opts Options) *Server {
	if opts.WriteWait <= 0 {
		opts.WriteWait = 10 * time.Second
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = opts.PongWait * 9 / 10
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Server{
		log:   logger.With("component", "ws"),
		rooms: rooms,
		hub:   hub,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Routes mounts the stream endpoint.
func (s *Server) Routes(r chi.Router) {
	r.Get("/live/chatroom/{id}", s.ServeChatRoom)
}

// ServeChatRoom handles GET /live/chatroom/{id}?lastEventId=N. The caller
// must be able to read the room; stored messages after lastEventId are
// replayed before live ones. The Last-Event-ID header is accepted as well.
func (s *Server) ServeChatRoom(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "id")

	lastEventID, err := parseLastEventID(r)
	if err != nil {
		http.Error(w, "lastEventId must be a non-negative integer", http.StatusBadRequest)
		return
	}

	if err := s.rooms.Authorize(r.Context(), room); err != nil {
		status := authStatus(err)
		if status == http.StatusInternalServerError {
			s.log.ErrorContext(r.Context(), "authorize room", slog.String("room", room), slog.String("error", err.Error()))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := s.hub.Subscribe(ctx, room, lastEventID)
	if err != nil {
		s.log.ErrorContext(ctx, "subscribe", slog.String("room", room), slog.String("error", err.Error()))
		http.Error(w, "subscribe failed", http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied
		s.log.WarnContext(ctx, "websocket upgrade", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	s.log.DebugContext(ctx, "stream opened",
		slog.String("room", room),
		slog.Int64("last_event_id", lastEventID),
	)

	var wg sync.WaitGroup
	events := make(chan live.Event)
	ended := make(chan error, 1)

	wg.Add(2)
	go func() {
		defer wg.Done()
		s.readPump(conn, cancel)
	}()
	go func() {
		defer wg.Done()
		forward(ctx, sub, events, ended)
	}()

	reason := s.writePump(ctx, conn, events, ended)
	s.log.DebugContext(ctx, "stream closed", slog.String("room", room), slog.String("reason", reason))

	cancel()
	conn.Close()
	wg.Wait()
}

// forward moves subscription events to the write pump until ctx ends or the
// subscription stops.
func forward(ctx context.Context, sub *live.Subscription, out chan<- live.Event, ended chan<- error) {
	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			ended <- err
			return
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			ended <- ctx.Err()
			return
		}
	}
}

// readPump discards client frames and keeps the read deadline alive on
// pongs. Any read error ends the stream.
func (s *Server) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.opts.PongWait)) //nolint:errcheck
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump writes event frames and pings. It returns the close reason.
func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, events <-chan live.Event, ended <-chan error) string {
	ticker := time.NewTicker(s.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait)) //nolint:errcheck
			if err := conn.WriteJSON(ev); err != nil {
				return "write: " + err.Error()
			}

		case err := <-ended:
			code, text := closeFrame(err)
			msg := websocket.FormatCloseMessage(code, text)
			conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.opts.WriteWait)) //nolint:errcheck
			return text

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait)) //nolint:errcheck
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return "ping: " + err.Error()
			}

		case <-ctx.Done():
			return "client gone"
		}
	}
}

func closeFrame(err error) (int, string) {
	switch {
	case errors.Is(err, live.ErrDropped):
		return websocket.CloseTryAgainLater, "subscriber too slow"
	case errors.Is(err, live.ErrClosed):
		return websocket.CloseGoingAway, "server shutting down"
	case errors.Is(err, context.Canceled):
		return websocket.CloseNormalClosure, "unsubscribed"
	default:
		return websocket.CloseInternalServerErr, "stream error"
	}
}

func parseLastEventID(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("lastEventId")
	if raw == "" {
		raw = r.Header.Get("Last-Event-ID")
	}
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, errors.New("invalid last event id")
	}
	return id, nil
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

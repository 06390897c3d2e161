package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heartmarshall/social-backend/internal/config"
	"github.com/heartmarshall/social-backend/internal/live"
	"github.com/heartmarshall/social-backend/internal/metrics"
	"github.com/heartmarshall/social-backend/internal/transport/middleware"
	"github.com/heartmarshall/social-backend/internal/transport/rest"
	"github.com/heartmarshall/social-backend/internal/transport/rpc"
	"github.com/heartmarshall/social-backend/internal/transport/ws"
)

type tokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

type roomAuthorizer interface {
	Authorize(ctx context.Context, room string) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type routerDeps struct {
	services rpc.Services
	rooms    roomAuthorizer
	hub      *live.Hub
	tokens   tokenValidator
	db       pinger
	metrics  *metrics.Collector
}

// newRouter mounts every route. The returned func stops background work
// owned by the router.
func newRouter(cfg *config.Config, logger *slog.Logger, deps routerDeps) (http.Handler, func()) {
	r := chi.NewRouter()
	r.Use(
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.CORS(cfg.CORS),
		middleware.Auth(deps.tokens),
	)

	health := rest.NewHealthHandler(deps.db, deps.hub, BuildVersion())
	r.Get("/live", health.Live)
	r.Get("/ready", health.Ready)
	r.Get("/health", health.Health)

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, deps.metrics.Handler())
	}

	limiter := middleware.NewRateLimiter(time.Minute)

	rpcHandler := rpc.NewHandler(logger, deps.services, rpc.Options{
		MaxBatch:         cfg.RPC.MaxBatch,
		BatchConcurrency: cfg.RPC.BatchConcurrency,
		LoaderWait:       cfg.RPC.LoaderWait,
		MaxBodyBytes:     cfg.RPC.MaxBodyBytes,
	}, deps.metrics)

	r.Group(func(r chi.Router) {
		if cfg.RPC.RateLimit > 0 {
			r.Use(limiter.Limit(cfg.RPC.RateLimit))
		}
		r.Use(rpc.LoaderMiddleware(cfg.RPC.LoaderWait))
		rpcHandler.Routes(r)
	})

	ws.NewServer(logger, deps.rooms, deps.hub, ws.Options{
		WriteWait:  cfg.Live.WriteWait,
		PongWait:   cfg.Live.PongWait,
		PingPeriod: cfg.Live.PingPeriod,
	}).Routes(r)

	return r, limiter.Stop
}

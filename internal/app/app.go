package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/social-backend/internal/adapter/postgres"
	"github.com/heartmarshall/social-backend/internal/auth"
	"github.com/heartmarshall/social-backend/internal/config"
	"github.com/heartmarshall/social-backend/internal/connection"
	"github.com/heartmarshall/social-backend/internal/live"
	"github.com/heartmarshall/social-backend/internal/metrics"
	"github.com/heartmarshall/social-backend/internal/service/chat"
	"github.com/heartmarshall/social-backend/internal/service/comment"
	"github.com/heartmarshall/social-backend/internal/service/post"
	"github.com/heartmarshall/social-backend/internal/service/profile"
	"github.com/heartmarshall/social-backend/internal/service/user"
	"github.com/heartmarshall/social-backend/internal/storage"
	"github.com/heartmarshall/social-backend/internal/transport/rpc"
	"github.com/heartmarshall/social-backend/internal/views"
)

// Run is the application entry point. It loads configuration, connects to
// the database, wires services and transports, and serves HTTP until ctx is
// cancelled, then shuts down gracefully.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	if err := views.Validate(); err != nil {
		return fmt.Errorf("validate views: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	collector := metrics.NewCollector(cfg.Metrics.Namespace)

	var store storage.Store = postgres.NewStore(pool, logger)
	if cfg.Metrics.Enabled {
		store = metrics.InstrumentStore(store, collector)
	}
	tx := postgres.NewTxManager(pool)
	pager := connection.NewPager(cfg.Pagination.DefaultLimit, cfg.Pagination.MaxLimit)

	hub := live.NewHub(logger, live.Options{
		Buffer:      cfg.Live.Buffer,
		ReplayLimit: cfg.Live.ReplayLimit,
	}, collector)
	defer hub.Close()

	chatService := chat.NewService(logger, store, tx, pager, hub)
	hub.SetReplayer(chatService)

	services := rpc.Services{
		User:    user.NewService(logger, store),
		Profile: profile.NewService(logger, store, tx, pager),
		Post:    post.NewService(logger, store, pager),
		Comment: comment.NewService(logger, store, tx, pager),
		Chat:    chatService,
	}

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)

	router, stop := newRouter(cfg, logger, routerDeps{
		services: services,
		rooms:    chatService,
		hub:      hub,
		tokens:   jwtManager,
		db:       pool,
		metrics:  collector,
	})
	defer stop()

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return serve(ctx, logger, srv, hub, cfg.Server.ShutdownTimeout)
}

// serve runs srv until ctx is cancelled or the listener fails. Live streams
// are closed before the server drains, since hijacked connections are not
// tracked by Shutdown.
func serve(ctx context.Context, logger *slog.Logger, srv *http.Server, hub *live.Hub, timeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

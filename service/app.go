package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"bridgeus/app/config"
	"bridgeus/app/middleware"
	"bridgeus/app/routes"
	"bridgeus/app/services"

	"golang.org/x/sync/errgroup"
)

// RunServer serves the feed API on the configured address until ctx is
// cancelled.
func RunServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}
	return Serve(ctx, cfg, logger, ln)
}

// Serve runs the feed service on ln: the HTTP API and the idle-session
// sweeper. It shuts down gracefully when ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, ln net.Listener) error {
	st, err := openStores(cfg.Store)
	if err != nil {
		ln.Close()
		return err
	}
	defer st.Close()

	feed, err := newFeed(ctx, feedOptions(cfg.Feed), st.posts, logger)
	if err != nil {
		ln.Close()
		return fmt.Errorf("failed to prepare feed: %w", err)
	}

	sessions := services.NewSessionManager(feed, cfg.Feed.SessionIdleTTL, logger)
	defer sessions.CloseAll()

	sweeper, err := sessions.StartSweeper(cfg.Feed.SweepSchedule)
	if err != nil {
		ln.Close()
		return fmt.Errorf("invalid sweep schedule %q: %w", cfg.Feed.SweepSchedule, err)
	}
	defer sweeper.Stop()

	limiter := middleware.NewRateLimiter(cfg.Feed.LoadRate, cfg.Feed.LoadBurst, cfg.Server.TrustProxy)
	if _, err := sweeper.AddFunc(cfg.Feed.SweepSchedule, func() {
		if n := limiter.Sweep(time.Now()); n > 0 {
			logger.Debug("dropped idle rate limit buckets", "clients", n)
		}
	}); err != nil {
		ln.Close()
		return fmt.Errorf("invalid sweep schedule %q: %w", cfg.Feed.SweepSchedule, err)
	}

	router := routes.SetupRoutes(routes.Dependencies{
		Feed:        feed,
		Replies:     services.NewReplyService(st.replies, st.posts, nil),
		Sessions:    sessions,
		Logger:      logger,
		LoadLimiter: limiter,
		WaitTimeout: cfg.Feed.LoadDelay + 30*time.Second,
	})

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("feed service listening",
			"addr", ln.Addr().String(),
			"backend", cfg.Store.Backend,
			"page_size", cfg.Feed.PageSize,
			"endless", cfg.Feed.Endless)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down feed service")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

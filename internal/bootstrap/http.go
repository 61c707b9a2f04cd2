package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/target/principal-auth/config"
	httpx "github.com/target/principal-auth/internal/http"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	// Readiness is served on /readyz; see ReadinessChecks.
	Readiness map[string]httpx.CheckFunc
	Logger    *slog.Logger
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessChecks pings PostgreSQL and Redis. Nil dependencies are skipped.
func ReadinessChecks(db Pinger, rdb redis.UniversalClient) map[string]httpx.CheckFunc {
	checks := make(map[string]httpx.CheckFunc, 2)
	if db != nil {
		checks["postgres"] = db.Ping
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}

// NewHTTPServer builds the server with the auth routes mounted.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
		appCfg.Sanitize()
	}

	rs := httpx.RouterServices{
		MerchantPrefix:     appCfg.Peer.MerchantPrefix,
		CORSAllowedOrigins: appCfg.HTTP.CORSAllowedOrigins,
		Readiness:          cfg.Readiness,
		Logger:             logger,
	}
	// Assign only non-nil services so the router sees nil interfaces.
	if cfg.Services.Users != nil {
		rs.Users = cfg.Services.Users
	}
	if cfg.Services.Merchants != nil {
		rs.Merchants = cfg.Services.Merchants
	}

	return &http.Server{
		Addr:              appCfg.HTTP.Addr,
		Handler:           httpx.NewRouter(rs),
		ReadHeaderTimeout: appCfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Serve runs server on ln until ctx is cancelled, then shuts it down within shutdownTimeout.
func Serve(ctx context.Context, server *http.Server, ln net.Listener, shutdownTimeout time.Duration, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(ctx, "starting HTTP server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	})

	return g.Wait()
}

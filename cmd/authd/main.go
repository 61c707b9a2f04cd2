package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/target/principal-auth/config"
	"github.com/target/principal-auth/internal/bootstrap"
	"github.com/target/principal-auth/internal/observability/statsd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	logger = bootstrap.ConfigureLogger(cfg.Observability.Logging)

	logStartupInfo(ctx, logger, &cfg)

	dbCfg := bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}

	pool, err := bootstrap.ConnectDB(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	redisClient, err := bootstrap.ConnectRedis(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if cerr := redisClient.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", cerr)
		}
	}()

	if cfg.Postgres.RunMigrationsOnStart {
		if err = bootstrap.RunMigrations(ctx, pool, logger); err != nil {
			return err
		}
	} else {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
	}

	deps := &bootstrap.ServiceDeps{
		Config: &cfg,
		DB:     pool,
		Redis:  redisClient,
		Logger: logger,
	}
	if client := bootstrap.BuildMetrics(logger, cfg.Observability.Metrics); client != nil {
		defer func() { _ = client.Close() }()
		deps.Metrics = statsd.Sink(client)
	}

	services, err := bootstrap.NewServices(deps)
	if err != nil {
		return err
	}

	server := bootstrap.NewHTTPServer(&bootstrap.HTTPServerConfig{
		Config:    &cfg,
		Services:  services,
		Readiness: bootstrap.ReadinessChecks(pool, redisClient),
		Logger:    logger,
	})
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTP.Addr, err)
	}

	return bootstrap.Serve(ctx, server, ln, cfg.HTTP.ShutdownTimeout, logger)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting principal-auth service",
		"db_host", cfg.Postgres.Host,
		"db_port", cfg.Postgres.Port,
		"db_name", cfg.Postgres.Name,
		"peer_base_url", cfg.Peer.BaseURL,
		"token_ttl", cfg.Token.TTL,
		"orphan_policy", string(cfg.Registration.OrphanPolicy),
		"orphan_notifications", cfg.Observability.Notifications.AnySinkEnabled(),
		"log_level", cfg.Observability.Logging.Level,
	)
}

package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/principal-auth/config"
	"github.com/target/principal-auth/internal/adapters/jwt"
	"github.com/target/principal-auth/internal/adapters/passwords"
	"github.com/target/principal-auth/internal/adapters/profilepeer"
	redisadapter "github.com/target/principal-auth/internal/adapters/redis"
	"github.com/target/principal-auth/internal/clock"
	"github.com/target/principal-auth/internal/data"
	domainauth "github.com/target/principal-auth/internal/domain/auth"
	"github.com/target/principal-auth/internal/observability/notify/pagerduty"
	"github.com/target/principal-auth/internal/observability/notify/slack"
	"github.com/target/principal-auth/internal/observability/statsd"
	"github.com/target/principal-auth/internal/service"
	"github.com/target/principal-auth/internal/service/orphannotifier"
)

// ServiceDeps contains the infrastructure needed to build services.
type ServiceDeps struct {
	Config  *config.AppConfig
	DB      data.DBTX
	Redis   redis.UniversalClient
	Metrics statsd.Sink
	Logger  *slog.Logger
}

// ServiceContainer holds one auth service per principal kind.
type ServiceContainer struct {
	Users     *service.AuthService
	Merchants *service.AuthService
}

// NewServices builds the user and merchant auth services. Both share the hasher,
// token codec and session cache but use separate peer routes and credential rows.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	if deps.DB == nil || deps.Redis == nil {
		return ServiceContainer{}, errors.New("database and redis are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	hasher := passwords.NewBcryptHasher(cfg.Password.BcryptCost)
	codec, err := jwt.NewCodec(jwt.Options{
		Secret: []byte(cfg.Token.SigningSecret),
		Issuer: cfg.Token.Issuer,
		Clock:  clock.Real{},
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("token codec: %w", err)
	}
	sessions := redisadapter.NewSessionCacheWithPrefix(deps.Redis, cfg.Redis.SessionPrefix)

	shared := sharedAuthDeps{
		cfg:      cfg,
		db:       deps.DB,
		hasher:   hasher,
		codec:    codec,
		sessions: sessions,
		metrics:  deps.Metrics,
		logger:   logger,
	}
	if n := BuildOrphanNotifier(logger, cfg.Observability.Notifications); n.Enabled() {
		shared.notifier = n
	}

	users, err := newAuthService(shared, domainauth.KindUser, profilepeer.UserRoutes())
	if err != nil {
		return ServiceContainer{}, err
	}
	merchants, err := newAuthService(shared, domainauth.KindMerchant, profilepeer.MerchantRoutes(cfg.Peer.MerchantPrefix))
	if err != nil {
		return ServiceContainer{}, err
	}

	return ServiceContainer{Users: users, Merchants: merchants}, nil
}

type sharedAuthDeps struct {
	cfg      *config.AppConfig
	db       data.DBTX
	hasher   *passwords.BcryptHasher
	codec    *jwt.Codec
	sessions *redisadapter.SessionCache
	metrics  statsd.Sink
	notifier service.OrphanNotifier
	logger   *slog.Logger
}

func newAuthService(d sharedAuthDeps, kind domainauth.PrincipalKind, routes profilepeer.Routes) (*service.AuthService, error) {
	logger := d.logger.With("kind", string(kind))

	peer, err := profilepeer.NewClient(profilepeer.Options{
		BaseURL:    d.cfg.Peer.BaseURL,
		Routes:     routes,
		Timeout:    d.cfg.Peer.Timeout,
		MaxRetries: d.cfg.Peer.MaxRetries,
		RetryBase:  d.cfg.Peer.RetryBase,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%s identity peer: %w", kind, err)
	}

	credentials, err := data.NewCredentialRepo(d.db, data.CredentialRepoOptions{
		Kind:   kind,
		Hasher: d.hasher,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%s credential store: %w", kind, err)
	}

	svc, err := service.NewAuthService(service.AuthServiceOptions{
		Kind:         kind,
		Peer:         peer,
		Credentials:  credentials,
		Hasher:       d.hasher,
		Codec:        d.codec,
		Sessions:     d.sessions,
		TokenTTL:     d.cfg.Token.TTL,
		OrphanPolicy: service.OrphanPolicy(d.cfg.Registration.OrphanPolicy),
		Logger:       d.logger,
		Metrics:      d.metrics,
		Notifier:     d.notifier,
	})
	if err != nil {
		return nil, fmt.Errorf("%s auth service: %w", kind, err)
	}
	return svc, nil
}

// BuildMetrics returns a StatsD client, or nil when metrics are disabled or unreachable.
func BuildMetrics(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	if !cfg.IsEnabled() {
		logger.Info("metrics disabled")
		return nil
	}

	client, err := statsd.NewClient(statsd.Config{
		Enabled:    true,
		Address:    cfg.StatsdAddress,
		Prefix:     cfg.Prefix,
		Logger:     logger,
		GlobalTags: cfg.GlobalTags("authd"),
	})
	if err != nil {
		logger.Warn("statsd client unavailable; metrics disabled", "error", err)
		return nil
	}
	logger.Info("metrics enabled", "address", cfg.StatsdAddress)
	return client
}

// BuildOrphanNotifier wires the configured Slack and PagerDuty sinks. A sink that
// fails to initialise is logged and skipped.
func BuildOrphanNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *orphannotifier.Service {
	notifierLogger := logger.With("component", "orphan_notifier")
	if !cfg.Enabled {
		return orphannotifier.NewService(orphannotifier.Options{Logger: notifierLogger})
	}

	sinks := make([]orphannotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, orphannotifier.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, orphannotifier.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	logger.Info("orphan notifications configured", "sinks", len(sinks))
	return orphannotifier.NewService(orphannotifier.Options{Logger: notifierLogger, Sinks: sinks})
}

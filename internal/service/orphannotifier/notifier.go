package orphannotifier

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/principal-auth/internal/observability/notify"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the orphan notifier.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
}

// Service fans orphaned-principal alerts out to every registered sink.
type Service struct {
	logger *slog.Logger
	sinks  []SinkRegistration
}

// NewService constructs an orphan notifier. Nil sinks are dropped.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "orphan_notifier")
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		if entry.Name == "" {
			entry.Name = "sink"
		}
		sinks = append(sinks, entry)
	}

	return &Service{logger: logger, sinks: sinks}
}

// NotifyOrphan delivers payload to all sinks concurrently and waits for them.
// Delivery errors are logged, never returned.
func (s *Service) NotifyOrphan(ctx context.Context, payload notify.OrphanPayload) {
	if len(s.sinks) == 0 {
		return
	}
	if payload.Severity == "" {
		payload.Severity = notify.SeverityCritical
	}

	var g errgroup.Group
	for _, entry := range s.sinks {
		g.Go(func() error {
			start := time.Now()
			err := entry.Sink.SendOrphan(ctx, payload)
			attrs := []any{
				"sink", entry.Name,
				"kind", payload.Kind,
				"principal_id", payload.PrincipalID,
				"duration", time.Since(start),
			}
			if err != nil {
				s.logger.ErrorContext(ctx, "orphan notification delivery failed", append(attrs, "error", err)...)
				return nil
			}
			s.logger.InfoContext(ctx, "orphan notification delivered", attrs...)
			return nil
		})
	}
	_ = g.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return len(s.sinks) > 0
}

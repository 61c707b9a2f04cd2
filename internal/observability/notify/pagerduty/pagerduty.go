package pagerduty

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/target/principal-auth/internal/observability/notify"
)

// APIEndpoint is the PagerDuty Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

// Config captures runtime configuration for the PagerDuty sink.
type Config struct {
	RoutingKey string
	Source     string
	Component  string
	// Endpoint overrides APIEndpoint.
	Endpoint   string
	Timeout    time.Duration
	RetryLimit int
	RetryBase  time.Duration
	Client     *http.Client
}

// Client publishes orphan events via PagerDuty's Events API v2.
type Client struct {
	routingKey string
	source     string
	component  string
	endpoint   string
	poster     *notify.Poster
}

// NewClient constructs a PagerDuty events client. Callers must provide a routing key.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.RoutingKey)
	if key == "" {
		return nil, errors.New("pagerduty routing key is required")
	}

	return &Client{
		routingKey: key,
		source:     notify.FallbackString(strings.TrimSpace(cfg.Source), "principal-auth"),
		component:  notify.FallbackString(strings.TrimSpace(cfg.Component), "registration"),
		endpoint:   notify.FallbackString(strings.TrimSpace(cfg.Endpoint), APIEndpoint),
		poster: notify.NewPoster(notify.PosterConfig{
			Name:       "pagerduty api",
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
			RetryBase:  cfg.RetryBase,
			Client:     cfg.Client,
		}),
	}, nil
}

// SendOrphan submits a trigger event to PagerDuty. Repeated alerts for the same
// principal share a dedup key.
func (c *Client) SendOrphan(ctx context.Context, payload notify.OrphanPayload) error {
	return c.poster.PostJSON(ctx, c.endpoint, c.buildEvent(payload))
}

func (c *Client) buildEvent(payload notify.OrphanPayload) map[string]any {
	severity := strings.ToLower(notify.FallbackString(payload.Severity, notify.SeverityCritical))

	occurredAt := payload.OccurredAt.UTC()
	if payload.OccurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	custom := map[string]any{
		"kind":         payload.Kind,
		"principal_id": payload.PrincipalID,
		"username":     payload.Username,
		"error":        payload.Error,
		"error_class":  payload.ErrorClass,
	}
	for k, v := range payload.Metadata {
		if _, exists := custom[k]; !exists {
			custom[k] = v
		}
	}

	return map[string]any{
		"routing_key":  c.routingKey,
		"event_action": "trigger",
		"dedup_key":    payload.DedupKey(),
		"payload": map[string]any{
			"summary": fmt.Sprintf(
				"%s principal %s exists on the identity peer without a credential",
				notify.FallbackString(payload.Kind, "unknown"),
				notify.FallbackString(payload.PrincipalID, "unknown"),
			),
			"severity":       severity,
			"source":         c.source,
			"component":      c.component,
			"timestamp":      occurredAt.Format(time.RFC3339),
			"custom_details": custom,
		},
	}
}

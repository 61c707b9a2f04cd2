package slack

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/target/principal-auth/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	RetryBase  time.Duration
	Client     *http.Client
}

// Client delivers orphan notifications to a Slack incoming webhook.
type Client struct {
	webhookURL string
	channel    string
	username   string
	poster     *notify.Poster
}

// NewClient builds a Slack webhook client.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}

	return &Client{
		webhookURL: webhookURL,
		channel:    strings.TrimSpace(cfg.Channel),
		username:   notify.FallbackString(strings.TrimSpace(cfg.Username), "principal-auth"),
		poster: notify.NewPoster(notify.PosterConfig{
			Name:       "slack webhook",
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
			RetryBase:  cfg.RetryBase,
			Client:     cfg.Client,
		}),
	}, nil
}

// SendOrphan posts a formatted message to Slack.
func (c *Client) SendOrphan(ctx context.Context, payload notify.OrphanPayload) error {
	return c.poster.PostJSON(ctx, c.webhookURL, c.formatMessage(payload))
}

func (c *Client) formatMessage(payload notify.OrphanPayload) map[string]any {
	timestamp := payload.OccurredAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var text strings.Builder
	text.WriteString("*Orphaned principal*")
	if payload.PrincipalID != "" {
		text.WriteString(" `")
		text.WriteString(escape(payload.PrincipalID))
		text.WriteByte('`')
	}
	if payload.Kind != "" {
		text.WriteString(" (")
		text.WriteString(escape(payload.Kind))
		text.WriteByte(')')
	}
	text.WriteByte('\n')

	writeField(&text, "Severity", notify.FallbackString(payload.Severity, notify.SeverityCritical))
	writeField(&text, "Username", payload.Username)
	writeField(&text, "Error class", payload.ErrorClass)
	writeField(&text, "Error", payload.Error)
	writeMetadata(&text, payload.Metadata)
	writeField(&text, "Timestamp", timestamp.UTC().Format(time.RFC3339))

	msg := map[string]any{
		"text":     strings.TrimSuffix(text.String(), "\n"),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escape neutralises Slack control sequences such as <!channel> in user-supplied text.
func escape(value string) string {
	return slackEscaper.Replace(value)
}

func writeField(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	text.WriteString("• ")
	text.WriteString(label)
	text.WriteString(": ")
	text.WriteString(escape(value))
	text.WriteByte('\n')
}

func writeMetadata(text *strings.Builder, metadata map[string]string) {
	if len(metadata) == 0 {
		return
	}
	text.WriteString("• Metadata:\n")
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		text.WriteString("    • ")
		text.WriteString(escape(k))
		text.WriteString(": ")
		text.WriteString(escape(metadata[k]))
		text.WriteByte('\n')
	}
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultRetryBase = 200 * time.Millisecond
	maxErrorBody     = 4 << 10
)

// PosterConfig configures a Poster.
type PosterConfig struct {
	// Name prefixes error messages, e.g. "slack".
	Name       string
	Timeout    time.Duration
	RetryLimit int
	RetryBase  time.Duration
	Client     *http.Client
}

// Poster delivers JSON documents to a webhook-style endpoint. Transport errors,
// 429 and 5xx responses are retried with exponential backoff; other statuses are final.
type Poster struct {
	name    string
	retries uint64
	base    time.Duration
	client  *http.Client
}

// NewPoster builds a Poster from cfg, applying defaults for zero values.
func NewPoster(cfg PosterConfig) *Poster {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := cfg.RetryBase
	if base <= 0 {
		base = defaultRetryBase
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "notify"
	}
	return &Poster{
		name:    name,
		retries: uint64(max(cfg.RetryLimit, 0)),
		base:    base,
		client:  hc,
	}
}

// PostJSON encodes v and posts it to url.
func (p *Poster) PostJSON(ctx context.Context, url string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", p.name, err)
	}

	backoff := retry.WithMaxRetries(p.retries, retry.NewExponential(p.base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		return p.postOnce(ctx, url, body)
	})
}

func (p *Poster) postOnce(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", p.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return retry.RetryableError(fmt.Errorf("%s request failed: %w", p.name, err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return p.drain(resp)
	}

	statusErr := p.errorFromResponse(resp)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return retry.RetryableError(statusErr)
	}
	return statusErr
}

func (p *Poster) drain(resp *http.Response) error {
	_, copyErr := io.Copy(io.Discard, resp.Body)
	closeErr := resp.Body.Close()
	if copyErr != nil || closeErr != nil {
		return errors.Join(
			wrapIf(copyErr, "drain "+p.name+" response body"),
			wrapIf(closeErr, "close response body"),
		)
	}
	return nil
}

func (p *Poster) errorFromResponse(resp *http.Response) error {
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	closeErr := resp.Body.Close()
	if readErr != nil || closeErr != nil {
		return errors.Join(
			fmt.Errorf("%s %s", p.name, resp.Status),
			wrapIf(readErr, "read "+p.name+" error response"),
			wrapIf(closeErr, "close response body"),
		)
	}
	return fmt.Errorf("%s %s: %s", p.name, resp.Status, strings.TrimSpace(string(respBody)))
}

func wrapIf(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// FallbackString returns fallback when value is blank.
func FallbackString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

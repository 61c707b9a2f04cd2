// Package profilepeer implements the identity peer port against the external profile service.
package profilepeer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	domainauth "github.com/target/principal-auth/internal/domain/auth"
	"github.com/target/principal-auth/internal/ports"
)

var _ ports.IdentityPeer = (*Client)(nil)

const (
	defaultTimeout   = 5 * time.Second
	defaultRetryBase = 100 * time.Millisecond
	// maxBodyBytes caps how much of a peer response is read.
	maxBodyBytes = 1 << 20
)

// Routes are the peer paths for one principal kind, relative to the base URL.
type Routes struct {
	Lookup string
	Create string
}

// UserRoutes returns the routes of the user profile API.
func UserRoutes() Routes {
	return Routes{Lookup: "/get_user", Create: "/create"}
}

// MerchantRoutes returns the routes of the merchant profile API mounted under prefix.
func MerchantRoutes(prefix string) Routes {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	return Routes{Lookup: prefix + "/get_merchant", Create: prefix + "/create"}
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Routes  Routes
	// Timeout bounds each HTTP attempt. Ignored when HTTPClient is set.
	Timeout    time.Duration
	HTTPClient *http.Client
	// MaxRetries is the number of extra lookup attempts after a connectivity failure.
	MaxRetries uint64
	RetryBase  time.Duration
	Logger     *slog.Logger
}

// Client talks to the profile service over HTTP/JSON.
type Client struct {
	lookupURL  string
	createURL  string
	client     *http.Client
	maxRetries uint64
	retryBase  time.Duration
	logger     *slog.Logger
}

// NewClient builds a peer client. A missing base URL is an error.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("profile peer base url is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid profile peer base url %q", opts.BaseURL)
	}

	routes := opts.Routes
	if routes.Lookup == "" || routes.Create == "" {
		routes = UserRoutes()
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	retryBase := opts.RetryBase
	if retryBase <= 0 {
		retryBase = defaultRetryBase
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		lookupURL:  base + routes.Lookup,
		createURL:  base + routes.Create,
		client:     hc,
		maxRetries: opts.MaxRetries,
		retryBase:  retryBase,
		logger:     logger.With("component", "profile_peer"),
	}, nil
}

type principalResponse struct {
	ID json.RawMessage `json:"id"`
}

// LookupID resolves username to the peer's principal id.
// Connectivity failures are retried with exponential backoff; everything else is final.
func (c *Client) LookupID(ctx context.Context, username string) (string, error) {
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))

	var id string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		got, err := c.lookupOnce(ctx, username)
		if errors.Is(err, domainauth.ErrPeerUnavailable) {
			c.logger.WarnContext(ctx, "profile lookup failed, retrying", "error", err)
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		id = got
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (c *Client) lookupOnce(ctx context.Context, username string) (string, error) {
	endpoint := c.lookupURL + "?" + url.Values{"username": {username}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", transportError(ctx, "lookup", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		c.logger.DebugContext(ctx, "profile lookup returned non-200", "status", resp.StatusCode)
		return "", domainauth.ErrUnknownPrincipal
	}

	id, err := decodeID(resp.Body)
	if err != nil {
		c.logger.DebugContext(ctx, "profile lookup returned no usable id", "error", err)
		return "", domainauth.ErrUnknownPrincipal
	}
	return id, nil
}

// Create registers profile with the peer and returns the new principal id.
// It is never retried: the peer offers no idempotency key.
func (c *Client) Create(ctx context.Context, profile domainauth.Profile) (string, error) {
	body, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.createURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", transportError(ctx, "create", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", domainauth.ErrPeerCreateFailed, resp.StatusCode)
	}

	id, err := decodeID(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domainauth.ErrPeerCreateFailed, err)
	}
	return id, nil
}

// transportError classifies a failed round trip. Caller cancellation is passed through
// unchanged so it is not mistaken for an outage and retried.
func transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("profile %s: %w", op, ctxErr)
	}
	return fmt.Errorf("%w: profile %s: %w", domainauth.ErrPeerUnavailable, op, err)
}

// decodeID reads {"id": ...} where id is either a JSON string or number.
func decodeID(r io.Reader) (string, error) {
	var body principalResponse
	if err := json.NewDecoder(io.LimitReader(r, maxBodyBytes)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode peer response: %w", err)
	}

	raw := bytes.TrimSpace(body.ID)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.New("peer response has no id")
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("decode id: %w", err)
		}
		if s = strings.TrimSpace(s); s == "" {
			return "", errors.New("peer response has empty id")
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("decode id: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxBodyBytes))
	_ = body.Close()
}

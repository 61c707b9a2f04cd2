package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// PeerConfig configures the HTTP client for the external profile service.
type PeerConfig struct {
	// BaseURL is required; the process refuses to start without it.
	BaseURL        string        `env:"BASE_URL"`
	Timeout        time.Duration `env:"TIMEOUT"         envDefault:"5s"`
	MaxRetries     uint64        `env:"MAX_RETRIES"     envDefault:"3"`
	RetryBase      time.Duration `env:"RETRY_BASE"      envDefault:"100ms"`
	MerchantPrefix string        `env:"MERCHANT_PREFIX" envDefault:"/merchant"`
}

// Sanitize applies guardrails to peer configuration values.
func (c *PeerConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 100 * time.Millisecond
	}
	const maxRetries = 10
	if c.MaxRetries > maxRetries {
		c.MaxRetries = maxRetries
	}
	c.MerchantPrefix = strings.TrimSpace(c.MerchantPrefix)
}

// Validate checks that the base URL is present and absolute.
func (c *PeerConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("PEER_BASE_URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("PEER_BASE_URL %q is not an absolute URL", c.BaseURL)
	}
	return nil
}

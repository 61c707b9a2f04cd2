package config

import (
	"errors"
	"fmt"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Token, password and registration configuration
//   - peer.go: Identity peer client configuration
//   - database.go: Database and session cache configuration
//   - http.go: HTTP server configuration
type AppConfig struct {
	Token        TokenConfig
	Password     PasswordConfig
	Registration RegistrationConfig

	Peer PeerConfig `envPrefix:"PEER_"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Token.Sanitize()
	c.Password.Sanitize()
	c.Peer.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()
}

// Validate reports settings the process cannot start without.
// It is called after Sanitize.
func (c *AppConfig) Validate() error {
	var errs []error
	if err := c.Token.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Peer.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MinSigningSecretBytes is the shortest accepted HS256 signing secret.
const MinSigningSecretBytes = 32

// TokenConfig controls session token minting.
type TokenConfig struct {
	// SigningSecret has no default and must be supplied by the environment.
	SigningSecret string        `env:"TOKEN_SIGNING_SECRET"`
	TTL           time.Duration `env:"TOKEN_TTL"            envDefault:"30m"`
	Issuer        string        `env:"TOKEN_ISSUER"         envDefault:"principal-auth"`
}

// Sanitize applies guardrails to token configuration values.
func (c *TokenConfig) Sanitize() {
	c.Issuer = strings.TrimSpace(c.Issuer)
	if c.TTL <= 0 {
		c.TTL = 30 * time.Minute
	}
}

// Validate checks the signing secret.
func (c *TokenConfig) Validate() error {
	if c.SigningSecret == "" {
		return errors.New("TOKEN_SIGNING_SECRET is required")
	}
	if len(c.SigningSecret) < MinSigningSecretBytes {
		return fmt.Errorf("TOKEN_SIGNING_SECRET must be at least %d bytes", MinSigningSecretBytes)
	}
	if c.TTL < time.Second {
		return errors.New("TOKEN_TTL must be at least 1s")
	}
	return nil
}

// PasswordConfig controls password hashing.
type PasswordConfig struct {
	BcryptCost int `env:"PASSWORD_BCRYPT_COST" envDefault:"10"`
}

// Sanitize clamps the work factor to what bcrypt accepts.
func (c *PasswordConfig) Sanitize() {
	if c.BcryptCost < bcrypt.MinCost {
		c.BcryptCost = bcrypt.MinCost
	}
	if c.BcryptCost > bcrypt.MaxCost {
		c.BcryptCost = bcrypt.MaxCost
	}
}

// OrphanPolicy selects how a failed registration's remote principal is handled.
type OrphanPolicy string

const (
	// OrphanPolicyCompensate deletes the remote principal when the peer supports it.
	OrphanPolicyCompensate OrphanPolicy = "compensate"
	// OrphanPolicyRecord logs and counts the orphan without touching the peer.
	OrphanPolicyRecord OrphanPolicy = "record"
)

// UnmarshalText implements encoding.TextUnmarshaler for OrphanPolicy.
func (p *OrphanPolicy) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "compensate", "record":
		*p = OrphanPolicy(v)
		return nil
	default:
		return fmt.Errorf("invalid OrphanPolicy: %q (valid options: compensate, record)", v)
	}
}

// RegistrationConfig controls the two-phase registration flow.
type RegistrationConfig struct {
	OrphanPolicy OrphanPolicy `env:"REGISTRATION_ORPHAN_POLICY" envDefault:"compensate"`
}

package auth

// Package auth contains domain-level types for credentials, sessions and principals.
// It is pure and free of framework/adapter concerns.

import (
	"time"
)

// PrincipalKind identifies which identity peer owns a principal.
type PrincipalKind string

const (
	KindUser     PrincipalKind = "user"
	KindMerchant PrincipalKind = "merchant"
)

// Valid reports whether k is a known principal kind.
func (k PrincipalKind) Valid() bool {
	return k == KindUser || k == KindMerchant
}

// DefaultRoles returns the role list attached to tokens minted for this kind.
func (k PrincipalKind) DefaultRoles() []string {
	switch k {
	case KindMerchant:
		return []string{string(RoleMerchant)}
	default:
		return []string{string(RoleUser)}
	}
}

// Role is an opaque authorization label carried inside a session token.
// Evaluation of roles happens outside this service.
type Role string

const (
	RoleUser     Role = "user"
	RoleMerchant Role = "merchant"
)

// TokenTypeBearer is the token type tag returned alongside issued tokens.
const TokenTypeBearer = "bearer"

// CredentialRecord binds a principal to a password hash.
// PasswordHash is never logged or serialized to clients.
type CredentialRecord struct {
	Kind         PrincipalKind `db:"principal_kind"`
	PrincipalID  string        `db:"principal_id"`
	PasswordHash string        `db:"password_hash" json:"-"`
	CreatedAt    time.Time     `db:"created_at"`
}

// Credentials is an authentication attempt. It is validated once and discarded.
type Credentials struct {
	Username string
	Password string
}

// AuthResult is returned by a successful authentication.
type AuthResult struct {
	Kind        PrincipalKind
	Username    string
	PrincipalID string
}

// Claims are embedded in a session token.
type Claims struct {
	Subject     string    `json:"sub"`
	PrincipalID string    `json:"user_id"`
	Role        []string  `json:"role"`
	TokenID     string    `json:"jti,omitempty"`
	IssuedAt    time.Time `json:"-"`
	ExpiresAt   time.Time `json:"-"`
}

// IssuedSession is the result of minting and recording a session token.
type IssuedSession struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"-"`
}

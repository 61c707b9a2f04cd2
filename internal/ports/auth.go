package ports

// Package ports defines interfaces (hexagonal ports) for credential and session behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/target/principal-auth/internal/domain/auth"
)

// PasswordHasher produces and checks salted, algorithm-tagged password hashes.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	// Verify compares in constant time. A malformed hash yields false.
	Verify(secret, hash string) bool
}

// TokenCodec signs and decodes session tokens. Decode never consults external state.
type TokenCodec interface {
	Issue(claims domainauth.Claims, ttl time.Duration) (token string, expiresAt time.Time, err error)
	// Decode returns ErrTokenMalformed or ErrTokenExpired on failure.
	Decode(token string) (domainauth.Claims, error)
}

// SessionCache is the liveness authority for issued tokens.
type SessionCache interface {
	Put(ctx context.Context, token, principalID string, ttl time.Duration) error
	// Get returns ErrSessionNotFound when the token is absent or evicted.
	Get(ctx context.Context, token string) (principalID string, err error)
	Invalidate(ctx context.Context, token string) error
}

// CredentialStore persists credential records for one principal kind.
type CredentialStore interface {
	// Authenticate returns the record only when secret matches the stored hash.
	// Missing rows and mismatches both yield ErrInvalidCredentials.
	Authenticate(ctx context.Context, principalID, secret string) (domainauth.CredentialRecord, error)
	// Create fails with ErrDuplicatePrincipal when a row already exists.
	Create(ctx context.Context, principalID, passwordHash string) (domainauth.CredentialRecord, error)
	Exists(ctx context.Context, principalID string) (bool, error)
}

// IdentityPeer resolves and creates principals on the external profile service.
type IdentityPeer interface {
	// LookupID returns ErrUnknownPrincipal when the peer has no such username and
	// ErrPeerUnavailable on connectivity loss.
	LookupID(ctx context.Context, username string) (string, error)
	// Create returns ErrPeerCreateFailed or ErrPeerUnavailable on failure.
	Create(ctx context.Context, profile domainauth.Profile) (string, error)
}

// PrincipalRemover is implemented by identity peers able to delete a principal.
// It is used to compensate a registration whose local insert failed.
type PrincipalRemover interface {
	RemovePrincipal(ctx context.Context, principalID string) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

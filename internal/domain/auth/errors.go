package auth

import (
	"errors"
	"fmt"
)

// Authentication outcomes. UnknownPrincipal and InvalidCredentials stay distinct internally
// and are collapsed into one message at the transport boundary.
var (
	ErrUnknownPrincipal   = errors.New("unknown principal")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Identity peer failures.
var (
	// ErrPeerUnavailable is transient: the peer could not be reached.
	ErrPeerUnavailable = errors.New("identity peer unavailable")
	// ErrPeerCreateFailed is terminal: the peer answered but refused to create the principal.
	ErrPeerCreateFailed = errors.New("identity peer create failed")
)

// Registration outcomes.
var (
	ErrRegistrationFailed         = errors.New("registration failed")
	ErrDuplicatePrincipal         = errors.New("duplicate principal")
	ErrPrincipalAlreadyRegistered = errors.New("principal already registered")
	ErrCredentialNotFound         = errors.New("credential not found")
)

// Token and session outcomes.
var (
	ErrTokenMalformed          = errors.New("token malformed")
	ErrTokenExpired            = errors.New("token expired")
	ErrSessionRevokedOrUnknown = errors.New("session revoked or unknown")
	ErrSessionNotFound         = errors.New("session not found")
)

// OrphanedPrincipalError records a principal that exists on the identity peer
// without a matching local credential row.
type OrphanedPrincipalError struct {
	Kind        PrincipalKind
	PrincipalID string
	Cause       error
}

func (e *OrphanedPrincipalError) Error() string {
	return fmt.Sprintf("orphaned %s principal %s: %v", e.Kind, e.PrincipalID, e.Cause)
}

func (e *OrphanedPrincipalError) Unwrap() error { return e.Cause }

// IsAuthenticationFailure reports whether err should surface as "invalid username or password".
func IsAuthenticationFailure(err error) bool {
	return errors.Is(err, ErrUnknownPrincipal) || errors.Is(err, ErrInvalidCredentials)
}

// IsTokenFailure reports whether err should surface as "invalid token".
func IsTokenFailure(err error) bool {
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrSessionRevokedOrUnknown)
}

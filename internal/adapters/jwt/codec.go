package jwt

// Package jwt implements the session token codec as HS256-signed JWTs.

import (
	"errors"
	"fmt"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	josejwt "github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/target/principal-auth/internal/clock"
	domainauth "github.com/target/principal-auth/internal/domain/auth"
	"github.com/target/principal-auth/internal/ports"
)

var _ ports.TokenCodec = (*Codec)(nil)

// MinSecretLen is the minimum HS256 key length accepted.
const MinSecretLen = 32

// ErrWeakSecret is returned when the signing secret is shorter than MinSecretLen.
var ErrWeakSecret = fmt.Errorf("token signing secret must be at least %d bytes", MinSecretLen)

var allowedAlgorithms = []jose.SignatureAlgorithm{jose.HS256}

// Options groups Codec construction parameters.
type Options struct {
	Secret []byte
	Issuer string
	Clock  ports.Clock
}

// Codec signs and verifies session tokens with a static symmetric secret.
// Decode is pure: it checks signature, issuer and expiry only.
type Codec struct {
	key    []byte
	issuer string
	clock  ports.Clock
	signer jose.Signer
}

// privateClaims are the non-registered claims carried in the token.
type privateClaims struct {
	PrincipalID string   `json:"user_id"`
	Role        []string `json:"role"`
}

// NewCodec creates a Codec. The secret is copied.
func NewCodec(opts Options) (*Codec, error) {
	if len(opts.Secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	key := append([]byte(nil), opts.Secret...)

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	return &Codec{key: key, issuer: opts.Issuer, clock: clk, signer: signer}, nil
}

// Issue signs claims with an absolute expiry of now+ttl.
func (c *Codec) Issue(claims domainauth.Claims, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		return "", time.Time{}, errors.New("token ttl must be positive")
	}
	if claims.PrincipalID == "" {
		return "", time.Time{}, errors.New("token principal id is required")
	}

	now := c.clock.Now()
	expiresAt := now.Add(ttl)
	tokenID := claims.TokenID
	if tokenID == "" {
		tokenID = uuid.NewString()
	}

	registered := josejwt.Claims{
		Issuer:   c.issuer,
		Subject:  claims.Subject,
		ID:       tokenID,
		IssuedAt: josejwt.NewNumericDate(now),
		Expiry:   josejwt.NewNumericDate(expiresAt),
	}
	private := privateClaims{
		PrincipalID: claims.PrincipalID,
		Role:        append([]string{}, claims.Role...),
	}

	raw, err := josejwt.Signed(c.signer).Claims(registered).Claims(private).Serialize()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return raw, registered.Expiry.Time().UTC(), nil
}

// Decode verifies the signature and expiry of token and returns its claims.
func (c *Codec) Decode(token string) (domainauth.Claims, error) {
	parsed, err := josejwt.ParseSigned(token, allowedAlgorithms)
	if err != nil {
		return domainauth.Claims{}, fmt.Errorf("%w: %w", domainauth.ErrTokenMalformed, err)
	}

	var (
		registered josejwt.Claims
		private    privateClaims
	)
	if err = parsed.Claims(c.key, &registered, &private); err != nil {
		return domainauth.Claims{}, fmt.Errorf("%w: %w", domainauth.ErrTokenMalformed, err)
	}
	if registered.Expiry == nil || private.PrincipalID == "" {
		return domainauth.Claims{}, fmt.Errorf("%w: missing required claims", domainauth.ErrTokenMalformed)
	}

	err = registered.ValidateWithLeeway(josejwt.Expected{
		Issuer: c.issuer,
		Time:   c.clock.Now(),
	}, 0)
	switch {
	case errors.Is(err, josejwt.ErrExpired):
		return domainauth.Claims{}, domainauth.ErrTokenExpired
	case err != nil:
		return domainauth.Claims{}, fmt.Errorf("%w: %w", domainauth.ErrTokenMalformed, err)
	}

	out := domainauth.Claims{
		Subject:     registered.Subject,
		PrincipalID: private.PrincipalID,
		Role:        private.Role,
		TokenID:     registered.ID,
		ExpiresAt:   registered.Expiry.Time().UTC(),
	}
	if registered.IssuedAt != nil {
		out.IssuedAt = registered.IssuedAt.Time().UTC()
	}
	if out.Role == nil {
		out.Role = []string{}
	}
	return out, nil
}

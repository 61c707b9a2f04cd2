package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	domainauth "github.com/target/principal-auth/internal/domain/auth"
	obserrors "github.com/target/principal-auth/internal/observability/errors"
	"github.com/target/principal-auth/internal/observability/notify"
	"github.com/target/principal-auth/internal/observability/statsd"
	"github.com/target/principal-auth/internal/ports"
)

// DefaultTokenTTL is used when AuthServiceOptions.TokenTTL is unset.
const DefaultTokenTTL = 30 * time.Minute

// timingSecret is hashed once per service; unknown usernames are verified against it.
const timingSecret = "principal-auth-timing-equalizer"

// compensationTimeout bounds the compensating delete issued after a failed local insert.
const compensationTimeout = 5 * time.Second

// OrphanPolicy selects what happens to a principal created on the identity peer
// when the local credential insert fails.
type OrphanPolicy string

const (
	// OrphanPolicyCompensate deletes the remote principal when the peer supports it.
	OrphanPolicyCompensate OrphanPolicy = "compensate"
	// OrphanPolicyRecord leaves the remote principal in place and reports it.
	OrphanPolicyRecord OrphanPolicy = "record"
)

// Valid reports whether p is a known policy.
func (p OrphanPolicy) Valid() bool {
	return p == OrphanPolicyCompensate || p == OrphanPolicyRecord
}

// OrphanNotifier alerts operators about principals left on the identity peer
// without a credential row.
type OrphanNotifier interface {
	NotifyOrphan(ctx context.Context, payload notify.OrphanPayload)
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Kind        domainauth.PrincipalKind
	Peer        ports.IdentityPeer
	Credentials ports.CredentialStore
	Hasher      ports.PasswordHasher
	Codec       ports.TokenCodec
	Sessions    ports.SessionCache

	TokenTTL time.Duration
	// Roles attached to issued tokens. Defaults to Kind.DefaultRoles().
	Roles        []string
	OrphanPolicy OrphanPolicy

	Logger   *slog.Logger
	Metrics  statsd.Sink
	Notifier OrphanNotifier // optional
}

// AuthService orchestrates password authentication, session issuance and verification,
// and two-phase registration for one principal kind.
type AuthService struct {
	kind         domainauth.PrincipalKind
	peer         ports.IdentityPeer
	credentials  ports.CredentialStore
	hasher       ports.PasswordHasher
	codec        ports.TokenCodec
	sessions     ports.SessionCache
	ttl          time.Duration
	roles        []string
	orphanPolicy OrphanPolicy
	notifier     OrphanNotifier
	logger       *slog.Logger
	metrics      *AuthMetrics

	timingOnce sync.Once
	timingHash string
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if !opts.Kind.Valid() {
		return nil, fmt.Errorf("auth service: invalid principal kind %q", opts.Kind)
	}
	if opts.Peer == nil || opts.Credentials == nil || opts.Hasher == nil || opts.Codec == nil || opts.Sessions == nil {
		return nil, errors.New("auth service: peer, credentials, hasher, codec and sessions are required")
	}

	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	roles := opts.Roles
	if len(roles) == 0 {
		roles = opts.Kind.DefaultRoles()
	}
	policy := opts.OrphanPolicy
	if policy == "" {
		policy = OrphanPolicyCompensate
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("auth service: invalid orphan policy %q", policy)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		kind:         opts.Kind,
		peer:         opts.Peer,
		credentials:  opts.Credentials,
		hasher:       opts.Hasher,
		codec:        opts.Codec,
		sessions:     opts.Sessions,
		ttl:          ttl,
		roles:        append([]string(nil), roles...),
		orphanPolicy: policy,
		notifier:     opts.Notifier,
		logger:       logger.With("component", "auth_service", "kind", string(opts.Kind)),
		metrics:      NewAuthMetrics(opts.Kind, opts.Metrics),
	}, nil
}

// Kind returns the principal kind this service serves.
func (s *AuthService) Kind() domainauth.PrincipalKind { return s.kind }

// Metrics returns the service's operation counters.
func (s *AuthService) Metrics() *AuthMetrics { return s.metrics }

// Authenticate resolves the username on the identity peer and checks the secret against
// the stored hash. Unknown users and wrong passwords stay distinct here; callers collapse
// them before anything reaches a client.
func (s *AuthService) Authenticate(ctx context.Context, creds domainauth.Credentials) (result domainauth.AuthResult, err error) {
	defer s.metrics.observe(ctx, opAuthenticate, time.Now(), &err)
	return s.authenticate(ctx, creds)
}

func (s *AuthService) authenticate(ctx context.Context, creds domainauth.Credentials) (domainauth.AuthResult, error) {
	if creds.Username == "" {
		s.equalizeTiming(creds.Password)
		return domainauth.AuthResult{}, domainauth.ErrUnknownPrincipal
	}

	principalID, err := s.peer.LookupID(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, domainauth.ErrUnknownPrincipal) {
			s.equalizeTiming(creds.Password)
		}
		return domainauth.AuthResult{}, fmt.Errorf("resolve principal: %w", err)
	}

	if _, err := s.credentials.Authenticate(ctx, principalID, creds.Password); err != nil {
		return domainauth.AuthResult{}, fmt.Errorf("verify credentials: %w", err)
	}

	return domainauth.AuthResult{
		Kind:        s.kind,
		Username:    creds.Username,
		PrincipalID: principalID,
	}, nil
}

// equalizeTiming runs one hash comparison so an unknown username costs as much as a
// wrong password.
func (s *AuthService) equalizeTiming(secret string) {
	s.timingOnce.Do(func() {
		hash, err := s.hasher.Hash(timingSecret)
		if err != nil {
			s.logger.Warn("timing hash unavailable", "error", err)
			return
		}
		s.timingHash = hash
	})
	_ = s.hasher.Verify(secret, s.timingHash)
}

// IssueSession mints a token for an authenticated principal and records it in the session
// cache with the same lifetime. A zero ttl or nil roles fall back to the service defaults.
// The token is only returned once the cache write succeeded.
func (s *AuthService) IssueSession(
	ctx context.Context,
	result domainauth.AuthResult,
	roles []string,
	ttl time.Duration,
) (issued domainauth.IssuedSession, err error) {
	defer s.metrics.observe(ctx, opIssue, time.Now(), &err)
	return s.issueSession(ctx, result, roles, ttl)
}

func (s *AuthService) issueSession(
	ctx context.Context,
	result domainauth.AuthResult,
	roles []string,
	ttl time.Duration,
) (domainauth.IssuedSession, error) {
	if result.PrincipalID == "" {
		return domainauth.IssuedSession{}, errors.New("issue session: principal id is required")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	if roles == nil {
		roles = s.roles
	}

	token, expiresAt, err := s.codec.Issue(domainauth.Claims{
		Subject:     result.Username,
		PrincipalID: result.PrincipalID,
		Role:        append([]string(nil), roles...),
	}, ttl)
	if err != nil {
		return domainauth.IssuedSession{}, fmt.Errorf("issue token: %w", err)
	}

	if err := s.sessions.Put(ctx, token, result.PrincipalID, ttl); err != nil {
		return domainauth.IssuedSession{}, fmt.Errorf("record session: %w", err)
	}

	return domainauth.IssuedSession{
		AccessToken: token,
		TokenType:   domainauth.TokenTypeBearer,
		ExpiresAt:   expiresAt,
	}, nil
}

// Login authenticates creds and issues a session with the default roles and lifetime.
func (s *AuthService) Login(ctx context.Context, creds domainauth.Credentials) (issued domainauth.IssuedSession, err error) {
	defer s.metrics.observe(ctx, opLogin, time.Now(), &err)

	result, err := s.authenticate(ctx, creds)
	if err != nil {
		if domainauth.IsAuthenticationFailure(err) {
			s.logger.InfoContext(ctx, "login rejected", "reason", rejectionReason(err))
		}
		return domainauth.IssuedSession{}, err
	}
	return s.issueSession(ctx, result, nil, 0)
}

// VerifySession accepts token only if its signature and expiry are valid and the session
// cache still maps it to the principal named in its claims.
func (s *AuthService) VerifySession(ctx context.Context, token string) (claims domainauth.Claims, err error) {
	defer s.metrics.observe(ctx, opVerify, time.Now(), &err)

	claims, err = s.codec.Decode(token)
	if err != nil {
		return domainauth.Claims{}, fmt.Errorf("decode token: %w", err)
	}

	principalID, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domainauth.ErrSessionNotFound) {
			return domainauth.Claims{}, domainauth.ErrSessionRevokedOrUnknown
		}
		return domainauth.Claims{}, fmt.Errorf("lookup session: %w", err)
	}
	if principalID != claims.PrincipalID {
		s.logger.WarnContext(ctx, "session cache entry does not match token claims")
		return domainauth.Claims{}, domainauth.ErrSessionRevokedOrUnknown
	}

	return claims, nil
}

// RevokeSession removes token from the session cache. Only tokens signed by this service
// are acted on, so arbitrary cache keys cannot be deleted. Expired tokens are a no-op.
func (s *AuthService) RevokeSession(ctx context.Context, token string) (err error) {
	defer s.metrics.observe(ctx, opRevoke, time.Now(), &err)

	if _, err := s.codec.Decode(token); err != nil {
		if errors.Is(err, domainauth.ErrTokenExpired) {
			return nil
		}
		return fmt.Errorf("decode token: %w", err)
	}

	if err := s.sessions.Invalidate(ctx, token); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}

// RegisterPrincipal creates the principal on the identity peer and then stores its
// credential row. A principal id that already has a row fails with
// ErrPrincipalAlreadyRegistered. Any other failure after the remote create is handled
// according to the orphan policy.
func (s *AuthService) RegisterPrincipal(ctx context.Context, info domainauth.RegistrationInfo) (principalID string, err error) {
	defer s.metrics.observe(ctx, opRegister, time.Now(), &err)

	info.Normalize()
	if err := info.Validate(); err != nil {
		return "", err
	}

	hash, err := s.hasher.Hash(info.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	principalID, err = s.peer.Create(ctx, info.Profile)
	if err != nil {
		s.logger.WarnContext(ctx, "identity peer create failed", "error", err)
		return "", fmt.Errorf("%w: %w", domainauth.ErrRegistrationFailed, err)
	}

	exists, err := s.credentials.Exists(ctx, principalID)
	if err != nil {
		// The peer may have handed back an id that is already registered here, so the
		// principal is never removed on this path.
		return "", s.handleOrphan(ctx, principalID, info.Username, false, fmt.Errorf("check credential: %w", err))
	}
	if exists {
		return "", fmt.Errorf("%w: %w", domainauth.ErrPrincipalAlreadyRegistered, domainauth.ErrDuplicatePrincipal)
	}

	if _, err := s.credentials.Create(ctx, principalID, hash); err != nil {
		if errors.Is(err, domainauth.ErrDuplicatePrincipal) {
			// Lost a race: the id is bound to the winner's row, so nothing is orphaned.
			return "", fmt.Errorf("%w: %w", domainauth.ErrPrincipalAlreadyRegistered, err)
		}
		return "", s.handleOrphan(ctx, principalID, info.Username, true, fmt.Errorf("create credential: %w", err))
	}

	s.logger.InfoContext(ctx, "principal registered", "principal_id", principalID)
	return principalID, nil
}

// handleOrphan deals with a remote principal whose local credential row could not be written.
// removable is false unless this service confirmed the id had no credential row; only then
// may the compensating delete run. The delete and the operator alert run even if ctx was
// cancelled.
func (s *AuthService) handleOrphan(ctx context.Context, principalID, username string, removable bool, cause error) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	remover, canRemove := s.peer.(ports.PrincipalRemover)
	if removable && canRemove && s.orphanPolicy == OrphanPolicyCompensate {
		rmErr := remover.RemovePrincipal(cctx, principalID)
		if rmErr == nil {
			s.logger.InfoContext(ctx, "compensated failed registration", "principal_id", principalID, "error", cause)
			s.metrics.orphan(true)
			return fmt.Errorf("%w: %w", domainauth.ErrRegistrationFailed, cause)
		}
		cause = errors.Join(cause, fmt.Errorf("compensating delete: %w", rmErr))
	}

	s.logger.WarnContext(ctx, "identity peer principal left without credential",
		"principal_id", principalID,
		"error", cause,
	)
	s.metrics.orphan(false)
	if s.notifier != nil {
		s.notifier.NotifyOrphan(cctx, notify.OrphanPayload{
			Kind:        string(s.kind),
			PrincipalID: principalID,
			Username:    username,
			Error:       cause.Error(),
			ErrorClass:  obserrors.Classify(cause),
			OccurredAt:  time.Now().UTC(),
			Metadata: map[string]string{
				"orphan_policy": string(s.orphanPolicy),
				"removable":     strconv.FormatBool(removable),
			},
		})
	}
	return fmt.Errorf("%w: %w", domainauth.ErrRegistrationFailed, &domainauth.OrphanedPrincipalError{
		Kind:        s.kind,
		PrincipalID: principalID,
		Cause:       cause,
	})
}

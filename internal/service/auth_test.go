package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/target/principal-auth/internal/adapters/jwt"
	"github.com/target/principal-auth/internal/adapters/passwords"
	"github.com/target/principal-auth/internal/clock"
	domainauth "github.com/target/principal-auth/internal/domain/auth"
	apperrors "github.com/target/principal-auth/internal/errors"
	mockauth "github.com/target/principal-auth/internal/mocks/auth"
	"github.com/target/principal-auth/internal/observability/metrics"
	"github.com/target/principal-auth/internal/observability/notify"
	"github.com/target/principal-auth/internal/ports"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testSecret = []byte("test-signing-secret-0123456789abcdef")

type authFixture struct {
	svc      *AuthService
	clock    *clock.Fixed
	peer     *mockauth.FakeIdentityPeer
	store    *mockauth.MemoryCredentialStore
	sessions *mockauth.MemorySessionCache
	codec    *jwt.Codec
	sink     *metrics.RecordingSink
}

type fixtureOption func(*AuthServiceOptions)

func newAuthFixture(t *testing.T, opts ...fixtureOption) *authFixture {
	t.Helper()

	clk := clock.NewFixed(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	hasher := passwords.NewBcryptHasher(bcrypt.MinCost)
	codec, err := jwt.NewCodec(jwt.Options{Secret: testSecret, Issuer: "principal-auth", Clock: clk})
	require.NoError(t, err)

	f := &authFixture{
		clock:    clk,
		peer:     mockauth.NewFakeIdentityPeer(),
		store:    mockauth.NewMemoryCredentialStore(domainauth.KindUser, hasher),
		sessions: mockauth.NewMemorySessionCache(clk),
		codec:    codec,
		sink:     &metrics.RecordingSink{},
	}

	o := AuthServiceOptions{
		Kind:        domainauth.KindUser,
		Peer:        f.peer,
		Credentials: f.store,
		Hasher:      hasher,
		Codec:       codec,
		Sessions:    f.sessions,
		Metrics:     f.sink,
	}
	for _, opt := range opts {
		opt(&o)
	}
	f.svc, err = NewAuthService(o)
	require.NoError(t, err)
	return f
}

func alice() domainauth.RegistrationInfo {
	return domainauth.RegistrationInfo{
		Profile: domainauth.Profile{
			FullName:    "Alice Liddell",
			Username:    "alice@example.com",
			PhoneNumber: "5551234567",
		},
		Password: "Secret123!",
	}
}

func (f *authFixture) register(t *testing.T, info domainauth.RegistrationInfo) string {
	t.Helper()
	id, err := f.svc.RegisterPrincipal(context.Background(), info)
	require.NoError(t, err)
	return id
}

func (f *authFixture) login(t *testing.T, username, password string) domainauth.IssuedSession {
	t.Helper()
	issued, err := f.svc.Login(context.Background(), domainauth.Credentials{Username: username, Password: password})
	require.NoError(t, err)
	return issued
}

func TestNewAuthService_Validation(t *testing.T) {
	f := newAuthFixture(t)
	base := AuthServiceOptions{
		Kind:        domainauth.KindUser,
		Peer:        f.peer,
		Credentials: f.store,
		Hasher:      passwords.NewBcryptHasher(bcrypt.MinCost),
		Codec:       f.codec,
		Sessions:    f.sessions,
	}

	svc, err := NewAuthService(base)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, svc.ttl)
	assert.Equal(t, []string{"user"}, svc.roles)
	assert.Equal(t, OrphanPolicyCompensate, svc.orphanPolicy)

	bad := base
	bad.Kind = "admin"
	_, err = NewAuthService(bad)
	require.Error(t, err)

	bad = base
	bad.Sessions = nil
	_, err = NewAuthService(bad)
	require.Error(t, err)

	bad = base
	bad.OrphanPolicy = "ignore"
	_, err = NewAuthService(bad)
	require.Error(t, err)

	merchant := base
	merchant.Kind = domainauth.KindMerchant
	svc, err = NewAuthService(merchant)
	require.NoError(t, err)
	assert.Equal(t, []string{"merchant"}, svc.roles)
}

// Scenario A.
func TestRegisterThenAuthenticate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	id := f.register(t, alice())
	assert.NotEmpty(t, id)

	res, err := f.svc.Authenticate(ctx, domainauth.Credentials{Username: "alice@example.com", Password: "Secret123!"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.AuthResult{Kind: domainauth.KindUser, Username: "alice@example.com", PrincipalID: id}, res)

	_, err = f.svc.Authenticate(ctx, domainauth.Credentials{Username: "alice@example.com", Password: "wrong"})
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
}

func TestAuthenticate_SingleBitMutationsFail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, alice())

	password := []byte("Secret123!")
	for i := range password {
		for bit := range 8 {
			mutated := append([]byte(nil), password...)
			mutated[i] ^= 1 << bit
			_, err := f.svc.Authenticate(ctx, domainauth.Credentials{Username: "alice@example.com", Password: string(mutated)})
			require.ErrorIsf(t, err, domainauth.ErrInvalidCredentials, "byte %d bit %d", i, bit)
		}
	}
}

func TestAuthenticate_Failures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, alice())

	_, err := f.svc.Authenticate(ctx, domainauth.Credentials{Username: "bob@example.com", Password: "Secret123!"})
	require.ErrorIs(t, err, domainauth.ErrUnknownPrincipal)
	assert.True(t, domainauth.IsAuthenticationFailure(err))

	_, err = f.svc.Authenticate(ctx, domainauth.Credentials{Password: "Secret123!"})
	require.ErrorIs(t, err, domainauth.ErrUnknownPrincipal)

	// A principal known to the peer but without a credential row.
	f.peer.Seed("carol@example.com")
	_, err = f.svc.Authenticate(ctx, domainauth.Credentials{Username: "carol@example.com", Password: "Secret123!"})
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)

	f.peer.Unavailable = true
	_, err = f.svc.Authenticate(ctx, domainauth.Credentials{Username: "alice@example.com", Password: "Secret123!"})
	require.ErrorIs(t, err, domainauth.ErrPeerUnavailable)
	assert.False(t, domainauth.IsAuthenticationFailure(err))
}

type countingHasher struct {
	ports.PasswordHasher
	hashes   atomic.Int64
	verifies atomic.Int64
}

func (h *countingHasher) Hash(secret string) (string, error) {
	h.hashes.Add(1)
	return h.PasswordHasher.Hash(secret)
}

func (h *countingHasher) Verify(secret, hash string) bool {
	h.verifies.Add(1)
	return h.PasswordHasher.Verify(secret, hash)
}

func TestAuthenticate_UnknownPrincipalPaysForHashCompare(t *testing.T) {
	h := &countingHasher{PasswordHasher: passwords.NewBcryptHasher(bcrypt.MinCost)}
	f := newAuthFixture(t, func(o *AuthServiceOptions) { o.Hasher = h })
	ctx := context.Background()

	for _, username := range []string{"bob@example.com", "", "dave@example.com"} {
		_, err := f.svc.Authenticate(ctx, domainauth.Credentials{Username: username, Password: "Secret123!"})
		require.ErrorIs(t, err, domainauth.ErrUnknownPrincipal)
	}
	assert.Equal(t, int64(3), h.verifies.Load(), "every unknown username runs one compare")
	assert.Equal(t, int64(1), h.hashes.Load(), "the comparison hash is computed once")

	f.peer.Unavailable = true
	_, err := f.svc.Authenticate(ctx, domainauth.Credentials{Username: "bob@example.com", Password: "Secret123!"})
	require.ErrorIs(t, err, domainauth.ErrPeerUnavailable)
	assert.Equal(t, int64(3), h.verifies.Load(), "peer outages are not masked")
}

func TestIssueThenVerify(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	id := f.register(t, alice())

	res, err := f.svc.Authenticate(ctx, domainauth.Credentials{Username: "alice@example.com", Password: "Secret123!"})
	require.NoError(t, err)

	issued, err := f.svc.IssueSession(ctx, res, []string{"user", "beta"}, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, domainauth.TokenTypeBearer, issued.TokenType)
	assert.Equal(t, f.clock.Now().Add(10*time.Minute), issued.ExpiresAt)

	claims, err := f.svc.VerifySession(ctx, issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Subject)
	assert.Equal(t, id, claims.PrincipalID)
	assert.Equal(t, []string{"user", "beta"}, claims.Role)
	assert.Equal(t, issued.ExpiresAt, claims.ExpiresAt)
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	id := f.register(t, alice())

	issued := f.login(t, "alice@example.com", "Secret123!")

	claims, err := f.svc.VerifySession(context.Background(), issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, claims.PrincipalID)
	assert.Equal(t, []string{"user"}, claims.Role)
	assert.Equal(t, f.clock.Now().Add(DefaultTokenTTL), claims.ExpiresAt)

	_, err = f.svc.Login(context.Background(), domainauth.Credentials{Username: "alice@example.com", Password: "nope"})
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	assert.Equal(t, 1, f.sessions.Len(), "failed logins must not record sessions")

	snap := f.svc.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.Successes[opLogin])
	assert.Equal(t, int64(1), snap.Rejected[opLogin])
}

func TestIssueSession_TokensAreUnique(t *testing.T) {
	f := newAuthFixture(t)
	res := domainauth.AuthResult{Kind: domainauth.KindUser, Username: "alice@example.com", PrincipalID: "1"}

	seen := map[string]bool{}
	for range 20 {
		issued, err := f.svc.IssueSession(context.Background(), res, nil, 0)
		require.NoError(t, err)
		require.False(t, seen[issued.AccessToken])
		seen[issued.AccessToken] = true
	}
	assert.Equal(t, 20, f.sessions.Len())
}

// Scenario B.
func TestVerifySession_ExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	res := domainauth.AuthResult{Kind: domainauth.KindUser, Username: "alice@example.com", PrincipalID: "1"}

	issued, err := f.svc.IssueSession(context.Background(), res, nil, time.Second)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Second)

	_, err = f.svc.VerifySession(context.Background(), issued.AccessToken)
	require.ErrorIs(t, err, domainauth.ErrTokenExpired)
	assert.True(t, domainauth.IsTokenFailure(err))
}

func TestVerifySession_ExpiredTokenStillCached(t *testing.T) {
	f := newAuthFixture(t)
	// The cache keeps wall-clock time, so the entry outlives the token's embedded expiry.
	cache := mockauth.NewMemorySessionCache(nil)
	svc, err := NewAuthService(AuthServiceOptions{
		Kind:        domainauth.KindUser,
		Peer:        f.peer,
		Credentials: f.store,
		Hasher:      passwords.NewBcryptHasher(bcrypt.MinCost),
		Codec:       f.codec,
		Sessions:    cache,
	})
	require.NoError(t, err)

	issued, err := svc.IssueSession(context.Background(),
		domainauth.AuthResult{Username: "alice@example.com", PrincipalID: "1"}, nil, time.Hour)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)

	_, err = cache.Get(context.Background(), issued.AccessToken)
	require.NoError(t, err, "entry is still live in the cache")
	_, err = svc.VerifySession(context.Background(), issued.AccessToken)
	require.ErrorIs(t, err, domainauth.ErrTokenExpired)
}

// Scenario C.
func TestVerifySession_RevokedInCache(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, alice())
	issued := f.login(t, "alice@example.com", "Secret123!")

	require.NoError(t, f.sessions.Invalidate(context.Background(), issued.AccessToken))

	_, err := f.svc.VerifySession(context.Background(), issued.AccessToken)
	require.ErrorIs(t, err, domainauth.ErrSessionRevokedOrUnknown)
}

func TestVerifySession_CacheMismatch(t *testing.T) {
	f := newAuthFixture(t)
	issued, err := f.svc.IssueSession(context.Background(),
		domainauth.AuthResult{Username: "alice@example.com", PrincipalID: "1"}, nil, 0)
	require.NoError(t, err)

	require.NoError(t, f.sessions.Put(context.Background(), issued.AccessToken, "2", time.Minute))

	_, err = f.svc.VerifySession(context.Background(), issued.AccessToken)
	require.ErrorIs(t, err, domainauth.ErrSessionRevokedOrUnknown)
}

func TestVerifySession_MisSignedToken(t *testing.T) {
	f := newAuthFixture(t)
	other, err := jwt.NewCodec(jwt.Options{
		Secret: []byte("another-secret-that-is-long-enough!!"),
		Issuer: "principal-auth",
		Clock:  f.clock,
	})
	require.NoError(t, err)

	forged, _, err := other.Issue(domainauth.Claims{Subject: "alice@example.com", PrincipalID: "1"}, time.Minute)
	require.NoError(t, err)
	// Even a cache entry for the forged token does not make it valid.
	require.NoError(t, f.sessions.Put(context.Background(), forged, "1", time.Minute))

	for _, token := range []string{forged, "", "abc", "a.b.c"} {
		assert.NotPanics(t, func() {
			_, err := f.svc.VerifySession(context.Background(), token)
			assert.ErrorIs(t, err, domainauth.ErrTokenMalformed)
		})
	}
}

func TestRevokeSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.register(t, alice())

	issued := f.login(t, "alice@example.com", "Secret123!")
	require.NoError(t, f.svc.RevokeSession(ctx, issued.AccessToken))
	_, err := f.svc.VerifySession(ctx, issued.AccessToken)
	require.ErrorIs(t, err, domainauth.ErrSessionRevokedOrUnknown)

	require.ErrorIs(t, f.svc.RevokeSession(ctx, "not-a-token"), domainauth.ErrTokenMalformed)

	expiring := f.login(t, "alice@example.com", "Secret123!")
	f.clock.Advance(DefaultTokenTTL + time.Second)
	require.NoError(t, f.svc.RevokeSession(ctx, expiring.AccessToken))
}

// Scenario D and the duplicate half of registration.
func TestRegisterPrincipal_Duplicate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	id := f.register(t, alice())

	again := alice()
	again.Password = "Different1!"
	_, err := f.svc.RegisterPrincipal(ctx, again)
	require.ErrorIs(t, err, domainauth.ErrPrincipalAlreadyRegistered)
	require.ErrorIs(t, err, domainauth.ErrDuplicatePrincipal)

	// The first record is untouched and nothing was compensated.
	_, err = f.svc.Authenticate(ctx, domainauth.Credentials{Username: "alice@example.com", Password: "Secret123!"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Count())
	assert.Empty(t, f.peer.Removed())
	rec, ok := f.store.Record(id)
	require.True(t, ok)
	assert.True(t, passwords.NewBcryptHasher(bcrypt.MinCost).Verify("Secret123!", rec.PasswordHash))
}

func TestRegisterPrincipal_ConcurrentSameUsername(t *testing.T) {
	f := newAuthFixture(t)
	const callers = 10

	errs := make([]error, callers)
	var g errgroup.Group
	for i := range callers {
		g.Go(func() error {
			_, errs[i] = f.svc.RegisterPrincipal(context.Background(), alice())
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var successes, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domainauth.ErrPrincipalAlreadyRegistered):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, conflicts)
	assert.Equal(t, 1, f.store.Count())
	assert.Empty(t, f.peer.Removed())
}

func TestRegisterPrincipal_PeerUnavailable(t *testing.T) {
	f := newAuthFixture(t)
	f.peer.Unavailable = true

	_, err := f.svc.RegisterPrincipal(context.Background(), alice())
	require.ErrorIs(t, err, domainauth.ErrRegistrationFailed)
	require.ErrorIs(t, err, domainauth.ErrPeerUnavailable)
	assert.Equal(t, 0, f.store.Count())

	snap := f.svc.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.Errors[opRegister])
}

func TestRegisterPrincipal_PeerRefuses(t *testing.T) {
	f := newAuthFixture(t)
	f.peer.CreateErr = domainauth.ErrPeerCreateFailed

	_, err := f.svc.RegisterPrincipal(context.Background(), alice())
	require.ErrorIs(t, err, domainauth.ErrRegistrationFailed)
	require.ErrorIs(t, err, domainauth.ErrPeerCreateFailed)
	assert.Equal(t, 0, f.store.Count())
}

func TestRegisterPrincipal_InvalidInput(t *testing.T) {
	f := newAuthFixture(t)

	info := alice()
	info.PhoneNumber = "123"
	_, err := f.svc.RegisterPrincipal(context.Background(), info)
	require.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "phone_number", apperrors.GetField(err))
	assert.Equal(t, 0, f.peer.CreateCalls, "invalid input never reaches the peer")
}

func TestRegisterPrincipal_OrphanCompensated(t *testing.T) {
	f := newAuthFixture(t)
	f.store.CreateErr = errors.New("connection reset")

	_, err := f.svc.RegisterPrincipal(context.Background(), alice())
	require.ErrorIs(t, err, domainauth.ErrRegistrationFailed)

	var orphan *domainauth.OrphanedPrincipalError
	assert.False(t, errors.As(err, &orphan), "compensated registrations leave no orphan")
	assert.Equal(t, []string{"1"}, f.peer.Removed())
	assert.Equal(t, int64(1), f.svc.Metrics().Snapshot().OrphansCompensated)

	orphans := f.sink.Counts("auth.registration.orphan")
	require.Len(t, orphans, 1)
	assert.Equal(t, "compensated", orphans[0].Tags["outcome"])
}

func TestRegisterPrincipal_OrphanRecorded(t *testing.T) {
	tests := []struct {
		name    string
		opts    fixtureOption
		prepare func(f *authFixture)
	}{
		{
			name: "record policy",
			opts: func(o *AuthServiceOptions) { o.OrphanPolicy = OrphanPolicyRecord },
		},
		{
			name: "peer without delete capability",
			opts: func(o *AuthServiceOptions) {
				o.Peer = struct{ ports.IdentityPeer }{o.Peer}
			},
		},
		{
			name:    "compensating delete fails",
			prepare: func(f *authFixture) { f.peer.RemoveErr = errors.New("peer said no") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []fixtureOption
			if tt.opts != nil {
				opts = append(opts, tt.opts)
			}
			f := newAuthFixture(t, opts...)
			if tt.prepare != nil {
				tt.prepare(f)
			}
			f.store.CreateErr = errors.New("connection reset")

			_, err := f.svc.RegisterPrincipal(context.Background(), alice())
			require.ErrorIs(t, err, domainauth.ErrRegistrationFailed)

			var orphan *domainauth.OrphanedPrincipalError
			require.ErrorAs(t, err, &orphan)
			assert.Equal(t, "1", orphan.PrincipalID)
			assert.Equal(t, domainauth.KindUser, orphan.Kind)
			assert.Empty(t, f.peer.Removed())
			assert.Equal(t, int64(1), f.svc.Metrics().Snapshot().OrphansRecorded)
		})
	}
}

type recordingNotifier struct {
	payloads []notify.OrphanPayload
	ctxErr   error
}

func (n *recordingNotifier) NotifyOrphan(ctx context.Context, p notify.OrphanPayload) {
	n.ctxErr = ctx.Err()
	n.payloads = append(n.payloads, p)
}

func TestRegisterPrincipal_OrphanNotifiesOperators(t *testing.T) {
	n := &recordingNotifier{}
	f := newAuthFixture(t, func(o *AuthServiceOptions) {
		o.OrphanPolicy = OrphanPolicyRecord
		o.Notifier = n
	})
	f.store.CreateErr = errors.New("connection reset")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := f.svc.RegisterPrincipal(ctx, alice())
	require.ErrorIs(t, err, domainauth.ErrRegistrationFailed)

	require.Len(t, n.payloads, 1)
	p := n.payloads[0]
	assert.Equal(t, "user", p.Kind)
	assert.Equal(t, "1", p.PrincipalID)
	assert.Equal(t, "alice@example.com", p.Username)
	assert.Contains(t, p.Error, "connection reset")
	assert.NotEmpty(t, p.ErrorClass)
	assert.Equal(t, "record", p.Metadata["orphan_policy"])
	assert.Equal(t, "true", p.Metadata["removable"])
	assert.NotContains(t, p.Error, "Secret123!")
	assert.NoError(t, n.ctxErr)
}

func TestRegisterPrincipal_CompensatedOrphanIsNotAlerted(t *testing.T) {
	n := &recordingNotifier{}
	f := newAuthFixture(t, func(o *AuthServiceOptions) { o.Notifier = n })
	f.store.CreateErr = errors.New("connection reset")

	_, err := f.svc.RegisterPrincipal(context.Background(), alice())
	require.ErrorIs(t, err, domainauth.ErrRegistrationFailed)
	assert.Empty(t, n.payloads)
}

func TestRegisterPrincipal_ExistsFailureNeverRemovesPrincipal(t *testing.T) {
	n := &recordingNotifier{}
	f := newAuthFixture(t, func(o *AuthServiceOptions) { o.Notifier = n })
	id := f.register(t, alice())

	// A repeat signup gets the same id back from the peer; the credential lookup then fails.
	f.store.ExistsErr = errors.New("db blip")
	_, err := f.svc.RegisterPrincipal(context.Background(), alice())
	require.ErrorIs(t, err, domainauth.ErrRegistrationFailed)

	var orphan *domainauth.OrphanedPrincipalError
	require.ErrorAs(t, err, &orphan)
	assert.Equal(t, id, orphan.PrincipalID)
	assert.Empty(t, f.peer.Removed(), "an id that may already be registered is never deleted")
	assert.Equal(t, int64(0), f.svc.Metrics().Snapshot().OrphansCompensated)
	require.Len(t, n.payloads, 1)
	assert.Equal(t, "false", n.payloads[0].Metadata["removable"])

	f.store.ExistsErr = nil
	issued := f.login(t, "alice@example.com", alice().Password)
	assert.NotEmpty(t, issued.AccessToken)
}

func TestRegisterPrincipal_CancelledAfterRemoteCreate(t *testing.T) {
	f := newAuthFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.store.CreateErr = context.Canceled
	cancel()

	_, err := f.svc.RegisterPrincipal(ctx, alice())
	require.ErrorIs(t, err, domainauth.ErrRegistrationFailed)
	assert.Equal(t, []string{"1"}, f.peer.Removed(), "compensation still runs after cancellation")
}

func TestAuthServiceMetrics_EmitToSink(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, alice())
	f.login(t, "alice@example.com", "Secret123!")
	_, _ = f.svc.VerifySession(context.Background(), "garbage")

	ops := f.sink.Counts("auth.operation")
	require.Len(t, ops, 3)
	assert.Equal(t, map[string]string{"kind": "user", "operation": "register", "result": "success"}, ops[0].Tags)
	assert.Equal(t, "login", ops[1].Tags["operation"])
	assert.Equal(t, "rejected", ops[2].Tags["result"])
	assert.Equal(t, "token_malformed", ops[2].Tags["reason"])
}

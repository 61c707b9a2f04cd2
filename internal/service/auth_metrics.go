package service

import (
	"context"
	"errors"
	"sync"
	"time"

	domainauth "github.com/target/principal-auth/internal/domain/auth"
	apperrors "github.com/target/principal-auth/internal/errors"
	"github.com/target/principal-auth/internal/observability/metrics"
	"github.com/target/principal-auth/internal/observability/statsd"
)

// Operation names used in metric tags.
const (
	opAuthenticate = "authenticate"
	opIssue        = "issue"
	opLogin        = "login"
	opVerify       = "verify"
	opRevoke       = "revoke"
	opRegister     = "register"
)

// AuthMetrics tracks auth operation outcomes in memory and forwards them to an optional sink.
type AuthMetrics struct {
	mu sync.RWMutex

	Successes map[string]int64 `json:"successes"`
	Rejected  map[string]int64 `json:"rejected"`
	Errors    map[string]int64 `json:"errors"`

	OrphansCompensated int64 `json:"orphans_compensated"`
	OrphansRecorded    int64 `json:"orphans_recorded"`

	kind domainauth.PrincipalKind
	sink statsd.Sink
}

// NewAuthMetrics creates a metrics tracker. sink may be nil.
func NewAuthMetrics(kind domainauth.PrincipalKind, sink statsd.Sink) *AuthMetrics {
	return &AuthMetrics{
		Successes: make(map[string]int64),
		Rejected:  make(map[string]int64),
		Errors:    make(map[string]int64),
		kind:      kind,
		sink:      sink,
	}
}

// AuthMetricsSnapshot is a point-in-time copy of AuthMetrics.
type AuthMetricsSnapshot struct {
	Successes          map[string]int64
	Rejected           map[string]int64
	Errors             map[string]int64
	OrphansCompensated int64
	OrphansRecorded    int64
}

// Snapshot returns a copy of the counters.
func (m *AuthMetrics) Snapshot() AuthMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return AuthMetricsSnapshot{
		Successes:          cloneCounts(m.Successes),
		Rejected:           cloneCounts(m.Rejected),
		Errors:             cloneCounts(m.Errors),
		OrphansCompensated: m.OrphansCompensated,
		OrphansRecorded:    m.OrphansRecorded,
	}
}

// observe is deferred by every public AuthService method with a pointer to its named error.
func (m *AuthMetrics) observe(_ context.Context, op string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}

	result := metrics.ResultSuccess
	reason := ""
	if err != nil {
		reason = rejectionReason(err)
		result = metrics.ResultRejected
		if reason == "" {
			result = metrics.ResultError
		}
	}

	m.mu.Lock()
	switch result {
	case metrics.ResultSuccess:
		m.Successes[op]++
	case metrics.ResultRejected:
		m.Rejected[op]++
	default:
		m.Errors[op]++
	}
	sink := m.sink
	m.mu.Unlock()

	metrics.EmitAuthOperation(sink, metrics.AuthMetric{
		Kind:      string(m.kind),
		Operation: op,
		Result:    result,
		Reason:    reason,
		Duration:  time.Since(start),
		Err:       err,
	})
}

func (m *AuthMetrics) orphan(compensated bool) {
	m.mu.Lock()
	if compensated {
		m.OrphansCompensated++
	} else {
		m.OrphansRecorded++
	}
	sink := m.sink
	m.mu.Unlock()

	metrics.EmitOrphanedPrincipal(sink, string(m.kind), compensated)
}

// rejectionReason names expected refusals. It returns "" for faults.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domainauth.ErrPeerUnavailable):
		return ""
	case errors.Is(err, domainauth.ErrUnknownPrincipal):
		return "unknown_principal"
	case errors.Is(err, domainauth.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domainauth.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, domainauth.ErrTokenMalformed):
		return "token_malformed"
	case errors.Is(err, domainauth.ErrSessionRevokedOrUnknown):
		return "session_revoked"
	case errors.Is(err, domainauth.ErrPrincipalAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, domainauth.ErrPeerCreateFailed):
		return "peer_create_failed"
	case apperrors.IsValidation(err):
		return "validation"
	default:
		return ""
	}
}

func cloneCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

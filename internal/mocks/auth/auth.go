package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/target/principal-auth/internal/clock"
	domainauth "github.com/target/principal-auth/internal/domain/auth"
	"github.com/target/principal-auth/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SessionCache     = (*MemorySessionCache)(nil)
	_ ports.CredentialStore  = (*MemoryCredentialStore)(nil)
	_ ports.IdentityPeer     = (*FakeIdentityPeer)(nil)
	_ ports.PrincipalRemover = (*FakeIdentityPeer)(nil)
)

type cacheEntry struct {
	principalID string
	expiresAt   time.Time
}

// MemorySessionCache is an in-memory session cache that honours TTLs against its clock.
type MemorySessionCache struct {
	mu      sync.Mutex
	clock   ports.Clock
	entries map[string]cacheEntry
}

// NewMemorySessionCache creates an empty cache. A nil clock uses the system time.
func NewMemorySessionCache(clk ports.Clock) *MemorySessionCache {
	if clk == nil {
		clk = clock.Real{}
	}
	return &MemorySessionCache{
		clock:   clk,
		entries: make(map[string]cacheEntry),
	}
}

func (m *MemorySessionCache) Put(_ context.Context, token, principalID string, ttl time.Duration) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[token] = cacheEntry{principalID: principalID, expiresAt: m.clock.Now().Add(ttl)}
	return nil
}

func (m *MemorySessionCache) Get(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[token]
	if !ok {
		return "", domainauth.ErrSessionNotFound
	}
	if !m.clock.Now().Before(e.expiresAt) {
		delete(m.entries, token)
		return "", domainauth.ErrSessionNotFound
	}
	return e.principalID, nil
}

func (m *MemorySessionCache) Invalidate(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, token)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *MemorySessionCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// MemoryCredentialStore is an in-memory credential table. Create is atomic per principal id,
// so concurrent registrations see the same uniqueness arbitration as the SQL primary key.
type MemoryCredentialStore struct {
	mu      sync.Mutex
	kind    domainauth.PrincipalKind
	hasher  ports.PasswordHasher
	clock   ports.Clock
	records map[string]domainauth.CredentialRecord

	// CreateErr, when set, is returned by Create instead of inserting.
	CreateErr error
	// ExistsErr, when set, is returned by Exists.
	ExistsErr error
}

// NewMemoryCredentialStore creates an empty store verifying secrets with hasher.
func NewMemoryCredentialStore(kind domainauth.PrincipalKind, hasher ports.PasswordHasher) *MemoryCredentialStore {
	return &MemoryCredentialStore{
		kind:    kind,
		hasher:  hasher,
		clock:   clock.Real{},
		records: make(map[string]domainauth.CredentialRecord),
	}
}

func (m *MemoryCredentialStore) Authenticate(
	_ context.Context,
	principalID, secret string,
) (domainauth.CredentialRecord, error) {
	m.mu.Lock()
	rec, ok := m.records[principalID]
	m.mu.Unlock()
	if !ok || !m.hasher.Verify(secret, rec.PasswordHash) {
		return domainauth.CredentialRecord{}, domainauth.ErrInvalidCredentials
	}
	return rec, nil
}

func (m *MemoryCredentialStore) Create(
	_ context.Context,
	principalID, passwordHash string,
) (domainauth.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return domainauth.CredentialRecord{}, m.CreateErr
	}
	if _, ok := m.records[principalID]; ok {
		return domainauth.CredentialRecord{}, domainauth.ErrDuplicatePrincipal
	}
	rec := domainauth.CredentialRecord{
		Kind:         m.kind,
		PrincipalID:  principalID,
		PasswordHash: passwordHash,
		CreatedAt:    m.clock.Now(),
	}
	m.records[principalID] = rec
	return rec, nil
}

func (m *MemoryCredentialStore) Exists(_ context.Context, principalID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	_, ok := m.records[principalID]
	return ok, nil
}

// Count returns the number of stored records.
func (m *MemoryCredentialStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Record returns the stored record for principalID.
func (m *MemoryCredentialStore) Record(principalID string) (domainauth.CredentialRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[principalID]
	return rec, ok
}

// FakeIdentityPeer is an in-memory profile service. Creating a username that already
// exists returns the existing id, so racing registrations converge on one principal.
type FakeIdentityPeer struct {
	mu         sync.Mutex
	nextID     int
	byUsername map[string]string
	removed    []string

	// Unavailable makes every call fail with ErrPeerUnavailable.
	Unavailable bool
	// CreateErr, when set, is returned by Create.
	CreateErr error
	// RemoveErr, when set, is returned by RemovePrincipal.
	RemoveErr error

	LookupCalls int
	CreateCalls int
}

// NewFakeIdentityPeer creates an empty peer whose ids start at 1.
func NewFakeIdentityPeer() *FakeIdentityPeer {
	return &FakeIdentityPeer{byUsername: make(map[string]string)}
}

// Seed registers username directly and returns its id.
func (p *FakeIdentityPeer) Seed(username string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.assignLocked(username)
}

func (p *FakeIdentityPeer) assignLocked(username string) string {
	if id, ok := p.byUsername[username]; ok {
		return id
	}
	p.nextID++
	id := strconv.Itoa(p.nextID)
	p.byUsername[username] = id
	return id
}

func (p *FakeIdentityPeer) LookupID(_ context.Context, username string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LookupCalls++
	if p.Unavailable {
		return "", domainauth.ErrPeerUnavailable
	}
	id, ok := p.byUsername[username]
	if !ok {
		return "", domainauth.ErrUnknownPrincipal
	}
	return id, nil
}

func (p *FakeIdentityPeer) Create(_ context.Context, profile domainauth.Profile) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CreateCalls++
	if p.Unavailable {
		return "", domainauth.ErrPeerUnavailable
	}
	if p.CreateErr != nil {
		return "", p.CreateErr
	}
	return p.assignLocked(profile.Username), nil
}

func (p *FakeIdentityPeer) RemovePrincipal(_ context.Context, principalID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RemoveErr != nil {
		return p.RemoveErr
	}
	for username, id := range p.byUsername {
		if id == principalID {
			delete(p.byUsername, username)
		}
	}
	p.removed = append(p.removed, principalID)
	return nil
}

// Removed returns the principal ids deleted through RemovePrincipal.
func (p *FakeIdentityPeer) Removed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.removed...)
}

package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/target/principal-auth/internal/clock"
	"github.com/target/principal-auth/internal/data/pgxutil"
	domainauth "github.com/target/principal-auth/internal/domain/auth"
	apperrors "github.com/target/principal-auth/internal/errors"
	"github.com/target/principal-auth/internal/ports"
)

// DBTX is the subset of *pgxpool.Pool the repositories need.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	pgxutil.Beginner
}

const (
	selectCredentialSQL = `SELECT principal_id, password_hash, created_at FROM credentials WHERE principal_kind = $1 AND principal_id = $2`
	insertCredentialSQL = `INSERT INTO credentials (principal_kind, principal_id, password_hash, created_at) VALUES ($1, $2, $3, $4)`
	existsCredentialSQL = `SELECT EXISTS(SELECT 1 FROM credentials WHERE principal_kind = $1 AND principal_id = $2)`
)

var _ ports.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepoOptions configures a CredentialRepo.
type CredentialRepoOptions struct {
	Kind   domainauth.PrincipalKind
	Hasher ports.PasswordHasher
	Clock  ports.Clock
	Logger *slog.Logger
}

// CredentialRepo stores password hashes for one principal kind in the credentials table.
// Uniqueness of (principal_kind, principal_id) is enforced by the primary key, which makes
// Create the single arbitration point for racing registrations.
type CredentialRepo struct {
	db     DBTX
	kind   domainauth.PrincipalKind
	hasher ports.PasswordHasher
	clock  ports.Clock
	logger *slog.Logger
}

// NewCredentialRepo creates a CredentialRepo.
func NewCredentialRepo(db DBTX, opts CredentialRepoOptions) (*CredentialRepo, error) {
	if db == nil {
		return nil, errors.New("credential repo: db is required")
	}
	if !opts.Kind.Valid() {
		return nil, fmt.Errorf("credential repo: invalid principal kind %q", opts.Kind)
	}
	if opts.Hasher == nil {
		return nil, errors.New("credential repo: hasher is required")
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &CredentialRepo{
		db:     db,
		kind:   opts.Kind,
		hasher: opts.Hasher,
		clock:  clk,
		logger: logger.With("component", "credential_repo", "kind", string(opts.Kind)),
	}, nil
}

// Authenticate returns the stored record for principalID when secret matches its hash.
func (r *CredentialRepo) Authenticate(
	ctx context.Context,
	principalID, secret string,
) (domainauth.CredentialRecord, error) {
	rec, err := r.get(ctx, principalID)
	if err != nil {
		if errors.Is(err, domainauth.ErrCredentialNotFound) {
			return domainauth.CredentialRecord{}, domainauth.ErrInvalidCredentials
		}
		return domainauth.CredentialRecord{}, err
	}

	if !r.hasher.Verify(secret, rec.PasswordHash) {
		return domainauth.CredentialRecord{}, domainauth.ErrInvalidCredentials
	}
	return rec, nil
}

func (r *CredentialRepo) get(ctx context.Context, principalID string) (domainauth.CredentialRecord, error) {
	rec := domainauth.CredentialRecord{Kind: r.kind}
	err := r.db.QueryRow(ctx, selectCredentialSQL, string(r.kind), principalID).
		Scan(&rec.PrincipalID, &rec.PasswordHash, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainauth.CredentialRecord{}, domainauth.ErrCredentialNotFound
		}
		return domainauth.CredentialRecord{}, fmt.Errorf("get credential: %w", apperrors.MapDBError(err))
	}
	return rec, nil
}

// Create inserts a credential row. A second row for the same principal fails with
// ErrDuplicatePrincipal.
func (r *CredentialRepo) Create(
	ctx context.Context,
	principalID, passwordHash string,
) (domainauth.CredentialRecord, error) {
	if principalID == "" {
		return domainauth.CredentialRecord{}, apperrors.ValidationField("principal_id", "principal id is required")
	}
	if passwordHash == "" {
		return domainauth.CredentialRecord{}, apperrors.ValidationField("password_hash", "password hash is required")
	}

	rec := domainauth.CredentialRecord{
		Kind:         r.kind,
		PrincipalID:  principalID,
		PasswordHash: passwordHash,
		CreatedAt:    r.clock.Now(),
	}

	err := pgxutil.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, insertCredentialSQL, string(rec.Kind), rec.PrincipalID, rec.PasswordHash, rec.CreatedAt)
		return execErr
	})
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsConflict(mapped) {
			return domainauth.CredentialRecord{}, fmt.Errorf("%w: %w", domainauth.ErrDuplicatePrincipal, mapped)
		}
		return domainauth.CredentialRecord{}, fmt.Errorf("create credential: %w", mapped)
	}

	r.logger.InfoContext(ctx, "credential created", "principal_id", principalID)
	return rec, nil
}

// Exists reports whether a credential row exists for principalID.
func (r *CredentialRepo) Exists(ctx context.Context, principalID string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, existsCredentialSQL, string(r.kind), principalID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check credential: %w", apperrors.MapDBError(err))
	}
	return exists, nil
}

package data

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/target/principal-auth/internal/adapters/passwords"
	domainauth "github.com/target/principal-auth/internal/domain/auth"
	"github.com/target/principal-auth/internal/testutil"
)

func TestCredentialRepo_Integration(t *testing.T) {
	pool := testutil.SetupTestPool(t)
	ctx := context.Background()
	hasher := passwords.NewBcryptHasher(bcrypt.MinCost)

	users, err := NewCredentialRepo(pool, CredentialRepoOptions{Kind: domainauth.KindUser, Hasher: hasher})
	require.NoError(t, err)
	merchants, err := NewCredentialRepo(pool, CredentialRepoOptions{Kind: domainauth.KindMerchant, Hasher: hasher})
	require.NoError(t, err)

	hash, err := hasher.Hash("Secret123!")
	require.NoError(t, err)

	t.Run("create then authenticate", func(t *testing.T) {
		_, err := users.Create(ctx, "42", hash)
		require.NoError(t, err)

		exists, err := users.Exists(ctx, "42")
		require.NoError(t, err)
		assert.True(t, exists)

		rec, err := users.Authenticate(ctx, "42", "Secret123!")
		require.NoError(t, err)
		assert.Equal(t, "42", rec.PrincipalID)

		_, err = users.Authenticate(ctx, "42", "wrong")
		require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	})

	t.Run("kinds do not share rows", func(t *testing.T) {
		exists, err := merchants.Exists(ctx, "42")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = merchants.Create(ctx, "42", hash)
		require.NoError(t, err)
	})

	t.Run("duplicate create leaves the first row intact", func(t *testing.T) {
		other, err := hasher.Hash("Other456!")
		require.NoError(t, err)

		_, err = users.Create(ctx, "42", other)
		require.ErrorIs(t, err, domainauth.ErrDuplicatePrincipal)

		_, err = users.Authenticate(ctx, "42", "Secret123!")
		require.NoError(t, err)
	})

	t.Run("concurrent creates have exactly one winner", func(t *testing.T) {
		const callers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := users.Create(ctx, "race", hash)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case assert.ErrorIs(t, err, domainauth.ErrDuplicatePrincipal):
					conflicts++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, callers-1, conflicts)

		var rows int
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT count(*) FROM credentials WHERE principal_kind = 'user' AND principal_id = 'race'`).Scan(&rows))
		assert.Equal(t, 1, rows)
	})
}

func TestRunMigrations_Idempotent(t *testing.T) {
	pool := testutil.SetupTestPool(t)

	applied, err := RunMigrations(context.Background(), pool, nil)
	require.NoError(t, err)
	assert.Empty(t, applied, "schema was already applied by the test setup")
}

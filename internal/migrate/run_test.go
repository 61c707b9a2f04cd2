package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionsSorted(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	assert.Equal(t, "0001_credentials", versions[0])
	assert.IsNonDecreasing(t, versions)
}

func TestMigrationsCreateCredentialTables(t *testing.T) {
	body, err := migrationsFS.ReadFile("migrations/0001_credentials.sql")
	require.NoError(t, err)
	sql := string(body)
	assert.Contains(t, sql, "CREATE TABLE")
	assert.Contains(t, sql, "principal_id")
}

package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

func TestDropboxTokenLifecycle(t *testing.T) {
	gokeyring.MockInit()

	_, err := DropboxToken()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetDropboxToken("sl.token"))
	token, err := DropboxToken()
	require.NoError(t, err)
	assert.Equal(t, "sl.token", token)

	require.NoError(t, DeleteDropboxToken())
	assert.ErrorIs(t, DeleteDropboxToken(), ErrNotFound)
}

func TestPostgresConnectionString(t *testing.T) {
	gokeyring.MockInit()

	require.NoError(t, SetPostgresConnectionString("postgres://vault@localhost:5432/vault?sslmode=disable"))
	connStr, err := PostgresConnectionString()
	require.NoError(t, err)
	assert.Equal(t, "postgres://vault@localhost:5432/vault?sslmode=disable", connStr)

	// Each account is stored separately.
	_, err = DropboxToken()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, DeletePostgresConnectionString())
	_, err = PostgresConnectionString()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetRejectsEmpty(t *testing.T) {
	gokeyring.MockInit()

	assert.Error(t, SetDropboxToken(""))
	assert.Error(t, SetPostgresConnectionString(""))
}

func TestIsAvailable(t *testing.T) {
	gokeyring.MockInit()
	assert.True(t, IsAvailable())
}

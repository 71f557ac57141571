package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStores(t *testing.T) {
	ctx := context.Background()

	t.Run("static", func(t *testing.T) {
		token, err := StaticStore(" abc ").Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "abc", token)

		_, err = StaticStore("").Token(ctx)
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("DRAWSYNC_TEST_TOKEN", "from-env")
		token, err := EnvStore{Key: "DRAWSYNC_TEST_TOKEN"}.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "from-env", token)

		_, err = EnvStore{Key: "DRAWSYNC_TEST_TOKEN_UNSET"}.Token(ctx)
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

		token, err := FileStore{Path: path}.Token(ctx)
		require.NoError(t, err)
		assert.Equal(t, "from-file", token)

		_, err = FileStore{Path: filepath.Join(t.TempDir(), "missing")}.Token(ctx)
		assert.ErrorIs(t, err, ErrNoToken)
	})
}

type failingStore struct{}

func (failingStore) Token(context.Context) (string, error) {
	return "", errors.New("keychain locked")
}

func TestChain(t *testing.T) {
	ctx := context.Background()

	token, err := Chain(StaticStore(""), StaticStore("second")).Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", token)

	_, err = Chain(StaticStore(""), failingStore{}, StaticStore("never")).Token(ctx)
	assert.EqualError(t, err, "keychain locked")

	_, err = Chain().Token(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestParseIdentity(t *testing.T) {
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ann",
		"exp": expires.Unix(),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)

	id, err := ParseIdentity(token)
	require.NoError(t, err)
	assert.Equal(t, "ann", id.Username)
	assert.True(t, id.ExpiresAt.Equal(expires))
	assert.False(t, id.Expired(expires.Add(-time.Second)))
	assert.True(t, id.Expired(expires))

	withID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: 7, Username: "bo"}).SignedString([]byte("x"))
	require.NoError(t, err)
	id, err = ParseIdentity(withID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id.UserID)
	assert.Equal(t, "bo", id.Username)
	assert.False(t, id.Expired(time.Now()))

	_, err = ParseIdentity("not-a-jwt")
	assert.Error(t, err)
}

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/drawsync/go/internal/drawsync/credentials"
)

type unreadableStore struct{}

func (unreadableStore) Token(context.Context) (string, error) {
	return "", errors.New("permission denied")
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = previous })
	return &buf
}

func TestLookupToken(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		buf := captureLog(t)
		assert.Equal(t, "abc", lookupToken(ctx, credentials.StaticStore("abc")))
		assert.Empty(t, buf.String())
	})

	t.Run("missing", func(t *testing.T) {
		buf := captureLog(t)
		assert.Empty(t, lookupToken(ctx, credentials.StaticStore("")))
		assert.Contains(t, buf.String(), "no access token available")
	})

	t.Run("store failure is logged", func(t *testing.T) {
		buf := captureLog(t)
		assert.Empty(t, lookupToken(ctx, unreadableStore{}))
		assert.Contains(t, buf.String(), `"level":"warn"`)
		assert.Contains(t, buf.String(), "permission denied")
	})
}

func TestTokenStoreFallsBackToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	config := defaultConfig()
	config.Credentials.TokenEnv = "DRAWSYNC_TEST_TOKEN_UNSET"
	config.Credentials.TokenFile = path

	token, err := tokenStore(config).Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-file", token)
}

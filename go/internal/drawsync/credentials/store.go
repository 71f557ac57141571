package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoToken is returned when a store has no token to offer.
var ErrNoToken = errors.New("no token available")

// Store supplies the session token passed to the connection manager.
type Store interface {
	Token(ctx context.Context) (string, error)
}

// StaticStore always returns the same token.
type StaticStore string

func (s StaticStore) Token(ctx context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoToken
	}
	return strings.TrimSpace(string(s)), nil
}

// EnvStore reads the token from an environment variable.
type EnvStore struct {
	Key string
}

func (s EnvStore) Token(ctx context.Context) (string, error) {
	token := strings.TrimSpace(os.Getenv(s.Key))
	if token == "" {
		return "", fmt.Errorf("%s is not set: %w", s.Key, ErrNoToken)
	}
	return token, nil
}

// FileStore reads the token from a file, typically written by a login flow.
type FileStore struct {
	Path string
}

func (s FileStore) Token(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("token file %s: %w", s.Path, ErrNoToken)
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty: %w", s.Path, ErrNoToken)
	}
	return token, nil
}

// Chain tries each store in order and returns the first token found. Errors
// other than ErrNoToken stop the search.
func Chain(stores ...Store) Store {
	return chain(stores)
}

type chain []Store

func (c chain) Token(ctx context.Context) (string, error) {
	for _, s := range c {
		token, err := s.Token(ctx)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, ErrNoToken) {
			return "", err
		}
	}
	return "", ErrNoToken
}

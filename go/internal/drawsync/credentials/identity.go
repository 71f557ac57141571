package credentials

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields the game server puts in its access tokens. The
// subject carries the username.
type Claims struct {
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Identity is what the client can learn from a token without the server's key.
type Identity struct {
	UserID    int64
	Username  string
	ExpiresAt time.Time
}

// Expired reports whether the token has expired at now. Tokens without an
// expiry never expire.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// ParseIdentity decodes token claims without verifying the signature. The
// server remains the authority; this only labels the session before the
// authenticated event arrives.
func ParseIdentity(token string) (Identity, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}

	id := Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
	}
	if id.Username == "" {
		id.Username = claims.Subject
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

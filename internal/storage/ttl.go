package storage

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL returns the time left before a JWT bearer token's exp claim.
// The token is parsed without verification: the result only bounds how long
// the token is kept, it is never used to authenticate. Opaque tokens, tokens
// without exp and already-expired tokens return zero.
func TokenTTL(token string, now time.Time) time.Duration {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return 0
	}
	if claims.ExpiresAt == nil {
		return 0
	}
	ttl := claims.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return 0
	}
	return ttl
}

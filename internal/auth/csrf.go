package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// csrfLifetime is how long a token stays valid after it is issued
const csrfLifetime = time.Hour

// CSRFProtection issues one form token per browser client and checks it on
// state-changing requests
type CSRFProtection struct {
	mu     sync.Mutex
	tokens map[string]*csrfToken
	now    func() time.Time
}

type csrfToken struct {
	token     string
	createdAt time.Time
}

// NewCSRFProtection creates a new CSRF protection instance
func NewCSRFProtection() *CSRFProtection {
	return &CSRFProtection{
		tokens: make(map[string]*csrfToken),
		now:    time.Now,
	}
}

// Token returns the current token of clientID, issuing a new one when none
// exists or the previous one expired
func (c *CSRFProtection) Token(clientID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if t, ok := c.tokens[clientID]; ok && now.Sub(t.createdAt) <= csrfLifetime {
		return t.token
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("csrf: random source failed: " + err.Error())
	}
	t := &csrfToken{token: hex.EncodeToString(b), createdAt: now}
	c.tokens[clientID] = t
	return t.token
}

// Validate reports whether token is the live token of clientID
func (c *CSRFProtection) Validate(clientID, token string) bool {
	if token == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tokens[clientID]
	if !ok || c.now().Sub(t.createdAt) > csrfLifetime {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(t.token), []byte(token)) == 1
}

// Invalidate drops the token of clientID
func (c *CSRFProtection) Invalidate(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, clientID)
}

// Cleanup removes expired tokens
func (c *CSRFProtection) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for id, t := range c.tokens {
		if now.Sub(t.createdAt) > csrfLifetime {
			delete(c.tokens, id)
			removed++
		}
	}
	return removed
}

// Middleware returns an Echo middleware that validates CSRF tokens for
// state-changing requests (POST, PUT, DELETE, PATCH). It must run after
// ClientCookie.
func (c *CSRFProtection) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			method := ctx.Request().Method
			if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
				return next(ctx)
			}

			token := ctx.Request().Header.Get("X-CSRF-Token")
			if token == "" {
				token = ctx.FormValue("_csrf")
			}

			if token == "" {
				return echo.NewHTTPError(http.StatusForbidden, "CSRF token required")
			}
			if !c.Validate(ClientID(ctx), token) {
				return echo.NewHTTPError(http.StatusForbidden, "invalid CSRF token")
			}
			return next(ctx)
		}
	}
}

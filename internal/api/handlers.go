// Package api exposes the dashboard over HTTP: the server-rendered screens,
// the login and logout forms, and a small JSON and websocket surface for the
// browser-side scripts.
package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"peoplepulse/internal/auth"
	"peoplepulse/internal/dashboard"
	"peoplepulse/internal/session"
)

// Handlers holds what the HTTP handlers depend on
type Handlers struct {
	sessions *session.Manager
	loader   *dashboard.Loader
	csrf     *auth.CSRFProtection
	limiter  *auth.RateLimiter
	audit    *AuditLogger
	upgrader websocket.Upgrader
}

// Deps are the collaborators of the handlers, built by the application root
type Deps struct {
	Sessions *session.Manager
	Loader   *dashboard.Loader
	CSRF     *auth.CSRFProtection
	Limiter  *auth.RateLimiter
	// Audit serves the activity history; nil disables it
	Audit *AuditLogger
	// AllowedOrigins lists cross-origin pages allowed to open the session
	// websocket; same-origin is always allowed
	AllowedOrigins []string
}

// NewHandlers creates the handlers
func NewHandlers(d Deps) *Handlers {
	h := &Handlers{
		sessions: d.Sessions,
		loader:   d.Loader,
		csrf:     d.CSRF,
		limiter:  d.Limiter,
		audit:    d.Audit,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(d.AllowedOrigins),
	}
	return h
}

// sessionFor returns the session of the requesting browser and a request
// context that carries the client address for auditing
func (h *Handlers) sessionFor(c echo.Context) (*session.Session, context.Context) {
	ctx := session.WithClientIP(c.Request().Context(), c.RealIP())
	return h.sessions.Get(ctx, auth.ClientID(c)), ctx
}

// healthCheck handles GET /api/health
func (h *Handlers) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": h.sessions.Len(),
	})
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == origin {
				return true
			}
		}
		return sameHost(origin, r.Host)
	}
}

func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == host
}

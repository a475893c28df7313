// Package auth identifies browser clients and protects their form posts.
package auth

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

// Context key holding the browser client ID
const ContextKeyClient = "client_id"

// Name of the signed cookie carrying the client ID
const CookieName = "peoplepulse_client"

const clientIDValue = "client_id"

// NewCookieStore creates the signed cookie store for client IDs. The cookie
// lives for a year and is never readable from scripts.
func NewCookieStore(secret []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// ClientCookie middleware assigns every browser a stable client ID. A
// missing, unsigned or tampered cookie gets a fresh ID.
func ClientCookie(store sessions.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			// Get returns a new session alongside a decode error
			sess, _ := store.Get(req, CookieName)
			if sess == nil {
				sess = sessions.NewSession(store, CookieName)
			}

			id, ok := sess.Values[clientIDValue].(string)
			if _, err := uuid.Parse(id); !ok || err != nil {
				id = uuid.NewString()
				sess.Values[clientIDValue] = id
				if err := sess.Save(req, c.Response()); err != nil {
					c.Logger().Error("save client cookie: ", err)
					return echo.NewHTTPError(http.StatusInternalServerError, "failed to identify client")
				}
			}

			c.Set(ContextKeyClient, id)
			return next(c)
		}
	}
}

// ClientID returns the browser client ID set by ClientCookie
func ClientID(c echo.Context) string {
	id, _ := c.Get(ContextKeyClient).(string)
	return id
}

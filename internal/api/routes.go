package api

import (
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"peoplepulse/internal/auth"
)

// RegisterRoutes sets up every route. cookies signs the browser client
// cookie.
func RegisterRoutes(e *echo.Echo, h *Handlers, cookies sessions.Store) {
	// Health check (public, no client cookie)
	e.GET("/api/health", h.healthCheck)

	app := e.Group("")
	app.Use(auth.ClientCookie(cookies))
	app.Use(h.csrf.Middleware())

	// Screens
	app.GET("/", h.index)
	app.POST("/navigate", h.navigate)

	// Login and logout forms
	app.GET("/login", h.loginPage)
	app.POST("/login", h.loginSubmit, h.limiter.Middleware(h.loginBlocked))
	app.POST("/logout", h.logout)

	// Session state for browser-side scripts
	app.GET("/session/ws", h.sessionSocket)
	app.GET("/api/session", h.sessionState)
	app.GET("/api/menu", h.menu)
	if h.audit != nil {
		app.GET("/api/activity", h.audit.activityHandler)
	}
}

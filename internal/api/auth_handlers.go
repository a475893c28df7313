package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"peoplepulse/internal/auth"
	"peoplepulse/internal/models"
	"peoplepulse/internal/session"
	"peoplepulse/internal/views"
)

// Login form messages produced by this server
const (
	msgMissingCredentials = "Informe usuário e senha"
	msgTooManyAttempts    = "Muitas tentativas de login. Tente novamente em %d minuto(s)."
)

// loginPage handles GET /login
func (h *Handlers) loginPage(c echo.Context) error {
	sess, _ := h.sessionFor(c)
	if snap := sess.Snapshot(); snap.Loading || snap.User != nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return h.renderLogin(c, http.StatusOK, "", "")
}

// loginSubmit handles POST /login
func (h *Handlers) loginSubmit(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return h.renderLogin(c, http.StatusBadRequest, "", msgMissingCredentials)
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return h.renderLogin(c, http.StatusBadRequest, req.Username, msgMissingCredentials)
	}

	sess, ctx := h.sessionFor(c)
	if err := sess.Login(ctx, req.Username, req.Password); err != nil {
		var authErr *session.AuthError
		if !errors.As(err, &authErr) {
			c.Logger().Error("login error: ", err)
			return h.renderLogin(c, http.StatusInternalServerError, req.Username, session.MsgLoginFailed)
		}
		if authErr.Message == session.MsgConnectionError {
			return h.renderLogin(c, http.StatusBadGateway, req.Username, authErr.Message)
		}
		data := h.loginData(c, req.Username, authErr.Message)
		data.Remaining = h.limiter.Remaining(c.RealIP())
		return c.Render(http.StatusUnauthorized, views.TemplateLogin, data)
	}

	h.limiter.RecordSuccess(c.RealIP())
	return c.Redirect(http.StatusSeeOther, "/")
}

// loginBlocked answers a login refused by the rate limiter
func (h *Handlers) loginBlocked(c echo.Context, retryAfter time.Duration) error {
	minutes := int(math.Ceil(retryAfter.Minutes()))
	return h.renderLogin(c, http.StatusTooManyRequests, c.FormValue("username"),
		fmt.Sprintf(msgTooManyAttempts, minutes))
}

// logout handles POST /logout
func (h *Handlers) logout(c echo.Context) error {
	sess, ctx := h.sessionFor(c)
	sess.Logout(ctx)
	h.csrf.Invalidate(auth.ClientID(c))
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handlers) renderLogin(c echo.Context, status int, username, msg string) error {
	return c.Render(status, views.TemplateLogin, h.loginData(c, username, msg))
}

func (h *Handlers) loginData(c echo.Context, username, msg string) views.LoginData {
	return views.LoginData{
		Username:  username,
		Error:     msg,
		CSRFToken: h.csrf.Token(auth.ClientID(c)),
	}
}

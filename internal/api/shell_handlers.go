package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"peoplepulse/internal/auth"
	"peoplepulse/internal/dashboard"
	"peoplepulse/internal/navigation"
	"peoplepulse/internal/views"
)

// index handles GET /: the loading screen, the login screen or the shell
func (h *Handlers) index(c echo.Context) error {
	sess, ctx := h.sessionFor(c)
	snap := sess.Snapshot()

	v := views.Route(snap, sess.CurrentPage())
	switch v.Kind {
	case views.KindLoading:
		return c.Render(http.StatusOK, views.TemplateLoading, views.LoadingData{
			WatchURL: "/session/ws",
		})
	case views.KindLogin:
		return c.Render(http.StatusOK, views.TemplateLogin, views.LoginData{
			CSRFToken: h.csrf.Token(auth.ClientID(c)),
		})
	}

	var sum *dashboard.Summary
	if v.Page == navigation.PageDashboard {
		sum = h.loader.Load(ctx, snap.Token, snap.User)
		if ctx.Err() != nil {
			// browser went away
			return nil
		}
	}

	return c.Render(http.StatusOK, views.TemplateShell,
		views.NewShellData(snap.User, v.Page, h.csrf.Token(auth.ClientID(c)), sum))
}

// navigate handles POST /navigate. Selecting a page only changes the
// session's page selector.
func (h *Handlers) navigate(c echo.Context) error {
	sess, _ := h.sessionFor(c)
	sess.SelectPage(c.FormValue("page"))
	return c.Redirect(http.StatusSeeOther, "/")
}

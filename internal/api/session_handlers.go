package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"peoplepulse/internal/navigation"
)

const socketWriteTimeout = 10 * time.Second

// sessionState handles GET /api/session. The token is never serialized.
func (h *Handlers) sessionState(c echo.Context) error {
	sess, _ := h.sessionFor(c)
	return c.JSON(http.StatusOK, sess.Snapshot())
}

// menu handles GET /api/menu
func (h *Handlers) menu(c echo.Context) error {
	sess, _ := h.sessionFor(c)
	snap := sess.Snapshot()
	if !snap.Authenticated() {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "not authenticated",
		})
	}

	page := navigation.ParsePage(sess.CurrentPage())
	entries := navigation.Menu(snap.User.Role)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"page":    page,
		"title":   navigation.HeaderTitle(entries, page),
		"entries": entries,
	})
}

// sessionSocket handles GET /session/ws. It writes the session snapshot as
// JSON on connect and again after every change, until the browser goes away.
func (h *Handlers) sessionSocket(c echo.Context) error {
	sess, _ := h.sessionFor(c)

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already answered the request
		return nil
	}
	defer conn.Close()

	release := sess.Hold()
	defer release()

	// Reads only detect the disconnect; incoming messages are ignored
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		snap, changed := sess.Watch()
		conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
		if err := conn.WriteJSON(snap); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("session socket %s: write failed: %v", sess.ClientID(), err)
			}
			return nil
		}

		select {
		case <-changed:
		case <-gone:
			return nil
		case <-c.Request().Context().Done():
			return nil
		}
	}
}

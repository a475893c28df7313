package api

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"peoplepulse/internal/auth"
	"peoplepulse/internal/database"
	"peoplepulse/internal/session"
)

// AuditLogger writes session events to the audit log
type AuditLogger struct {
	repo *database.AuditRepo
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(repo *database.AuditRepo) *AuditLogger {
	return &AuditLogger{repo: repo}
}

// Record implements session.Auditor. Failures are logged, never returned.
func (l *AuditLogger) Record(ctx context.Context, e session.Event) {
	ctx = context.WithoutCancel(ctx)
	if err := l.repo.Log(ctx, e.ClientID, e.User, e.Action, e.Details, session.ClientIP(ctx)); err != nil {
		log.Printf("audit: failed to record %s for client %s: %v", e.Action, e.ClientID, err)
	}
}

// activityHandler handles GET /api/activity: the requesting browser's own
// login history, newest first
func (l *AuditLogger) activityHandler(c echo.Context) error {
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	logs, err := l.repo.ListByClient(c.Request().Context(), auth.ClientID(c), limit)
	if err != nil {
		c.Logger().Error("list activity error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list activity",
		})
	}
	return c.JSON(http.StatusOK, logs)
}

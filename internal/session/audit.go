package session

import (
	"context"

	"peoplepulse/internal/models"
)

// Event describes a session transition worth auditing
type Event struct {
	ClientID string
	User     *models.User
	Action   string
	Details  interface{}
}

// Auditor receives session events. Implementations must not block for long.
type Auditor interface {
	Record(ctx context.Context, e Event)
}

type clientIPKey struct{}

// WithClientIP attaches the requester's address for auditing
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP returns the address attached by WithClientIP
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

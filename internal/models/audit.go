package models

import "time"

// AuditLog represents a record of session activity for a browser client
type AuditLog struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ClientID  string    `json:"client_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Details   string    `json:"details"` // JSON string
	IPAddress string    `json:"ip_address"`
}

// Session audit actions
const (
	ActionLogin              = "login"
	ActionLoginFailed        = "login.failed"
	ActionLogout             = "logout"
	ActionSessionInvalidated = "session.invalidated"
)

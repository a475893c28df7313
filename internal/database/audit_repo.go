package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"peoplepulse/internal/models"
)

// AuditRepo handles audit log database operations
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates a new audit repository
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Create creates a new audit log entry
func (r *AuditRepo) Create(ctx context.Context, log *models.AuditLog) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (timestamp, client_id, user_id, username, action, details, ip_address)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, log.Timestamp, log.ClientID, nullInt(log.UserID), log.Username, log.Action, log.Details, log.IPAddress)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	log.ID = id
	return nil
}

// Log creates an audit log entry with the current timestamp
func (r *AuditRepo) Log(ctx context.Context, clientID string, user *models.User, action string, details interface{}, ipAddress string) error {
	var detailsJSON string
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			detailsJSON = "{}"
		} else {
			detailsJSON = string(b)
		}
	}

	log := &models.AuditLog{
		Timestamp: time.Now(),
		ClientID:  clientID,
		Action:    action,
		Details:   detailsJSON,
		IPAddress: ipAddress,
	}
	if user != nil {
		log.UserID = user.ID
		log.Username = user.Username
	}
	return r.Create(ctx, log)
}

// ListByClient returns the newest entries for a browser client
func (r *AuditRepo) ListByClient(ctx context.Context, clientID string, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, timestamp, client_id, user_id, username, action, details, ip_address
		FROM audit_logs WHERE client_id = ? ORDER BY id DESC LIMIT ?
	`, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log := &models.AuditLog{}
		var userID sql.NullInt64
		var username, details, ipAddress sql.NullString

		err := rows.Scan(
			&log.ID, &log.Timestamp, &log.ClientID, &userID,
			&username, &log.Action, &details, &ipAddress,
		)
		if err != nil {
			return nil, err
		}

		if userID.Valid {
			log.UserID = userID.Int64
		}
		if username.Valid {
			log.Username = username.String
		}
		if details.Valid {
			log.Details = details.String
		}
		if ipAddress.Valid {
			log.IPAddress = ipAddress.String
		}

		logs = append(logs, log)
	}

	return logs, rows.Err()
}

// DeleteOlderThan deletes audit logs older than the specified time
func (r *AuditRepo) DeleteOlderThan(ctx context.Context, t time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM audit_logs WHERE timestamp < ?", t)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

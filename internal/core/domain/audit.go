package domain

import (
	"errors"
	"time"
)

// AuditAction represents a type-safe action identifier for the audit log.
type AuditAction string

// System Audit Actions
const (
	ActionLogin        AuditAction = "LOGIN"
	ActionLoginDenied  AuditAction = "LOGIN_DENIED"
	ActionLogout       AuditAction = "LOGOUT"
	ActionReportSubmit AuditAction = "REPORT_SUBMITTED"
	ActionReportStatus AuditAction = "REPORT_STATUS_CHANGE"
	ActionExport       AuditAction = "EXPORT_GENERATED"
	ActionConfigChange AuditAction = "CONFIG_CHANGE"
	ActionInfo         AuditAction = "INFO"
)

// Domain Errors
var (
	ErrInvalidAction = errors.New("invalid audit action")
	ErrMissingUser   = errors.New("user identification is required for auditing")
)

// AuditLog represents a record of an operator-relevant system action.
type AuditLog struct {
	ID        uint        `json:"id"`
	UserID    string      `json:"user_id"`
	Username  string      `json:"username"` // Denormalized for display/reporting
	Action    AuditAction `json:"action"`
	Target    string      `json:"target"` // The resource affected (report id, username, export format)
	Details   string      `json:"details"`
	IPAddress string      `json:"ip_address"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewAuditLog is the designated factory for creating valid AuditLog
// entities. Anonymous citizen actions are recorded under the "citizen"
// placeholder username since no account is involved.
func NewAuditLog(userID, username string, action AuditAction, target, details, ip string) (*AuditLog, error) {
	if userID == "" && username == "" {
		return nil, ErrMissingUser
	}

	if !isValidAction(action) {
		return nil, ErrInvalidAction
	}

	return &AuditLog{
		UserID:    userID,
		Username:  username,
		Action:    action,
		Target:    target,
		Details:   details,
		IPAddress: ip,
		Timestamp: time.Now().UTC(),
	}, nil
}

// isValidAction encapsulates the validation logic for audit actions.
func isValidAction(action AuditAction) bool {
	switch action {
	case ActionLogin, ActionLoginDenied, ActionLogout, ActionReportSubmit,
		ActionReportStatus, ActionExport, ActionConfigChange, ActionInfo:
		return true
	}
	return false
}

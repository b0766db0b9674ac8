package models

import "time"

// Action types recorded in the login audit trail
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionForcedLogout   = "FORCED_LOGOUT"
)

// AuditProviderLocal tags entries produced by email/password authentication
const AuditProviderLocal = "local"

// LoginAudit is an immutable compliance record of an authentication event.
// It is kept apart from LoginAttempt, which only feeds enforcement.
type LoginAudit struct {
	ID         string    `json:"id"`
	UserID     *string   `json:"userId,omitempty"`
	EmailInput *string   `json:"emailInput,omitempty"`
	Success    bool      `json:"success"`
	Reason     *string   `json:"reason,omitempty"`
	IPAddress  *string   `json:"ipAddress,omitempty"`
	UserAgent  *string   `json:"userAgent,omitempty"`
	Location   *string   `json:"location,omitempty"`
	Provider   string    `json:"provider"`
	ActionType string    `json:"actionType"`
	SessionID  *string   `json:"sessionId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// LoginAuditFilter narrows audit queries. Zero values mean "any".
type LoginAuditFilter struct {
	UserID    string
	Action    string
	Success   *bool
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// LoginAuditStats summarizes the audit trail for one user or globally
type LoginAuditStats struct {
	TotalLogins   int64   `json:"totalLogins"`
	SuccessLogins int64   `json:"successLogins"`
	FailedLogins  int64   `json:"failedLogins"`
	UniqueIPs     int64   `json:"uniqueIPs"`
	SuccessRate   float64 `json:"successRate"`
}

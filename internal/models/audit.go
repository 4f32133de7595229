package models

import "time"

// AuditLog represents a record of user actions
type AuditLog struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Details   string    `json:"details"` // JSON string
	IPAddress string    `json:"ip_address"`
}

// Common audit actions
const (
	ActionSignup        = "auth.signup"
	ActionLogin         = "auth.login"
	ActionLoginFailed   = "auth.login_failed"
	ActionLogout        = "auth.logout"
	ActionSessionRevoke = "auth.session_revoke"
	ActionProjectCreate = "project.create"
	ActionProjectDelete = "project.delete"
	ActionClubCreate    = "club.create"
	ActionProfileUpdate = "profile.update"
)

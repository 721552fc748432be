package model

import "time"

type SecurityEventType string

const (
	RefreshTokenReuseDetected  SecurityEventType = "refresh_token_reuse_detected"
	PKCEVerificationFailed     SecurityEventType = "pkce_verification_failed"
	AuthorizationStateMismatch SecurityEventType = "authorization_state_mismatch"
	SessionsRevoked            SecurityEventType = "sessions_revoked"
)

// SecurityEvent событие безопасности, отправляется во внешние системы
type SecurityEvent struct {
	Type       SecurityEventType `json:"type"`
	Subject    string            `json:"subject,omitempty"`
	ClientID   string            `json:"client_id,omitempty"`
	TokenID    string            `json:"token_id,omitempty"`
	RemoteAddr string            `json:"remote_addr,omitempty"`
	Revoked    int               `json:"revoked,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

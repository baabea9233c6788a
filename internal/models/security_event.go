package models

import "time"

// SecurityEvent is an audit record of an authentication-related action:
// logins (success and failure), logouts, token revocations, 2FA changes,
// OAuth account links.
type SecurityEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Level     string    `gorm:"size:20;index" json:"level"` // info, warning, error
	Event     string    `gorm:"size:100;index" json:"event"`
	Message   string    `gorm:"type:text" json:"message"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	IP        string    `gorm:"size:50" json:"ip"`
	UserAgent string    `gorm:"size:500" json:"user_agent"`
	Extra     string    `gorm:"type:text" json:"extra"` // JSON extra data
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (SecurityEvent) TableName() string { return "security_events" }

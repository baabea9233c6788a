package services

import (
	"encoding/json"
	"time"

	"github.com/pongarena/backend/internal/models"
	"github.com/pongarena/backend/pkg/logger"
	"gorm.io/gorm"
)

// Event names recorded in the security audit trail.
const (
	EventLoginSuccess   = "login_success"
	EventLoginFailure   = "login_failure"
	EventLogout         = "logout"
	EventTokenRevoked   = "token_revoked"
	EventTokenRefreshed = "token_refreshed"
	EventTwoFAEnabled   = "2fa_enabled"
	EventTwoFADisabled  = "2fa_disabled"
	EventOAuthLogin     = "oauth_login"
	EventOAuthLinked    = "oauth_account_created"
	EventRegistered     = "user_registered"
)

// AuditService writes security events to the database. Recording is
// best-effort: an audit write failure is logged and never fails the request
// that triggered it.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

func (a *AuditService) Info(event, message string, userID *uint, ip, userAgent string, extra interface{}) {
	a.record("info", event, message, userID, ip, userAgent, extra)
}

func (a *AuditService) Warning(event, message string, userID *uint, ip, userAgent string, extra interface{}) {
	a.record("warning", event, message, userID, ip, userAgent, extra)
}

func (a *AuditService) record(level, event, message string, userID *uint, ip, userAgent string, extra interface{}) {
	if a == nil || a.db == nil {
		return
	}

	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	rec := &models.SecurityEvent{
		Level:     level,
		Event:     event,
		Message:   message,
		UserID:    userID,
		IP:        ip,
		UserAgent: userAgent,
		Extra:     extraStr,
		CreatedAt: time.Now(),
	}
	if err := a.db.Create(rec).Error; err != nil {
		logger.Warn().Err(err).Str("event", event).Msg("failed to write security event")
	}
}

// PurgeOlderThan removes audit records created before the cutoff.
func (a *AuditService) PurgeOlderThan(cutoff time.Time) (int64, error) {
	res := a.db.Where("created_at < ?", cutoff).Delete(&models.SecurityEvent{})
	return res.RowsAffected, res.Error
}

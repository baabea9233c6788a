package services

import (
	"time"

	"github.com/pongarena/backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Audit records older than this are purged alongside the token denylist.
const auditRetention = 30 * 24 * time.Hour

// CleanupService garbage-collects the revocation store and the audit trail.
// A denylist entry is only useful until the token's natural expiry, so rows
// past their expires_at are dropped on an hourly schedule.
type CleanupService struct {
	revocation *RevocationStore
	audit      *AuditService
	scheduler  *cron.Cron
}

func NewCleanupService(revocation *RevocationStore, audit *AuditService) *CleanupService {
	return &CleanupService{
		revocation: revocation,
		audit:      audit,
	}
}

// Start runs one cleanup immediately, then every hour.
func (s *CleanupService) Start() {
	go s.run()

	s.scheduler = cron.New()
	if _, err := s.scheduler.AddFunc("@hourly", s.run); err != nil {
		logger.Errorf("[Cleanup] failed to schedule: %v", err)
		return
	}
	s.scheduler.Start()
}

// Stop halts the schedule. In-flight runs finish on their own.
func (s *CleanupService) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *CleanupService) run() {
	now := time.Now()

	purged, err := s.revocation.PurgeExpired(now)
	if err != nil {
		logger.Warn().Err(err).Msg("revocation store cleanup failed")
	} else if purged > 0 {
		logger.Info().Int64("purged", purged).Msg("expired denylist entries removed")
	}

	if s.audit != nil {
		removed, err := s.audit.PurgeOlderThan(now.Add(-auditRetention))
		if err != nil {
			logger.Warn().Err(err).Msg("audit trail cleanup failed")
		} else if removed > 0 {
			logger.Info().Int64("removed", removed).Msg("old security events removed")
		}
	}
}

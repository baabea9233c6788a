package main

import (
	"time"

	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/handlers"
	"github.com/pongarena/backend/internal/middleware"
	"github.com/pongarena/backend/internal/models"
	"github.com/pongarena/backend/internal/services"
	"github.com/pongarena/backend/internal/token"
	"github.com/pongarena/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the
// application. Everything is constructed here and injected; nothing reaches
// for a package-level connection or signing key.
type appServices struct {
	cfg              *config.Config
	sessionAuth      *middleware.SessionAuth
	authHandler      *handlers.AuthHandler
	twoFactorHandler *handlers.TwoFactorHandler
	oauthHandler     *handlers.OAuthHandler
	cleanup          *services.CleanupService
	statsQueue       services.TaskQueue
	worker           *services.Worker
}

// bootstrap initializes database, services and schedulers.
func bootstrap(cfg *config.Config) *appServices {
	db, err := models.InitDB(&cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	issuer := token.NewIssuer(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessExpireMinutes)*time.Minute,
		time.Duration(cfg.JWT.RefreshExpireHours)*time.Hour,
	)

	audit := services.NewAuditService(db)
	revocation := services.NewRevocationStore(db)
	twoFactor := services.NewTwoFactorService(db, cfg.TOTP.Issuer, audit)
	statsService := services.NewStatsService(db)

	// Stats recompute runs through the task queue: in-process by default,
	// Redis-backed when enabled.
	statsQueue := services.NewTaskQueue(cfg)
	if syncQueue, ok := statsQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(statsService.RecomputeTask)
	}

	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(statsService.RecomputeTask)
			worker.Start()
		}
	}

	authService := services.NewAuthService(db, issuer, revocation, twoFactor, audit, statsQueue, services.NoopTournamentSource{})
	oauthService := services.NewOAuthService(db, &cfg.OAuth, audit)

	cleanup := services.NewCleanupService(revocation, audit)
	cleanup.Start()

	return &appServices{
		cfg:              cfg,
		sessionAuth:      middleware.NewSessionAuth(db, issuer, revocation),
		authHandler:      handlers.NewAuthHandler(authService),
		twoFactorHandler: handlers.NewTwoFactorHandler(twoFactor),
		oauthHandler:     handlers.NewOAuthHandler(oauthService, authService, cfg.OAuth.FrontendURL),
		cleanup:          cleanup,
		statsQueue:       statsQueue,
		worker:           worker,
	}
}

// shutdown gracefully stops schedulers and queues.
func (s *appServices) shutdown() {
	s.cleanup.Stop()
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.statsQueue != nil {
		s.statsQueue.Close()
	}
	logger.Info().Msg("All schedulers stopped")
}

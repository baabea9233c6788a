package main

import (
	"github.com/gin-gonic/gin"
	"github.com/pongarena/backend/internal/middleware"
	"github.com/pongarena/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.OAuth.FrontendURL))

	// Credential-bearing routes are rate limited per IP
	authLimiter := middleware.NewRateLimiter(5, 10)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "pongarena"})
	})

	api := r.Group("/api")
	{
		// Public auth routes
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.GET("/oauth/42", svc.oauthHandler.Begin)
			auth.GET("/oauth/42/callback", svc.oauthHandler.Callback)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(svc.sessionAuth.RequireAuth())
		{
			protected.GET("/auth/me", svc.authHandler.Me)
			protected.POST("/auth/logout", svc.authHandler.Logout)

			protected.POST("/auth/2fa/setup", svc.twoFactorHandler.Setup)
			protected.POST("/auth/2fa/verify", svc.twoFactorHandler.Verify)
			protected.POST("/auth/2fa/disable", svc.twoFactorHandler.Disable)
		}
	}
}

package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pongarena/backend/internal/models"
	"github.com/pongarena/backend/internal/services"
	"github.com/pongarena/backend/internal/token"
	"github.com/pongarena/backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"

	ContextUserID      = "user_id"
	ContextUser        = "user"
	ContextAccessToken = "access_token_raw"
)

// SessionAuth authenticates requests. The token is taken from the
// access_token cookie first, falling back to the Authorization header.
// Ordering on the hot path: the denylist lookup runs before signature
// verification, so a syntactically valid, unexpired token is still rejected
// once revoked. A failing denylist store reads as revoked, never as valid.
type SessionAuth struct {
	db         *gorm.DB
	issuer     *token.Issuer
	revocation *services.RevocationStore
}

func NewSessionAuth(db *gorm.DB, issuer *token.Issuer, revocation *services.RevocationStore) *SessionAuth {
	return &SessionAuth{db: db, issuer: issuer, revocation: revocation}
}

// extractToken prefers the cookie-delivered token over the header.
func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(CookieAccessToken); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// resolve validates the token and loads the account. Failure kinds stay
// internal; every caller-visible rejection is the same 401.
func (m *SessionAuth) resolve(tokenString string) (*models.User, error) {
	revoked, err := m.revocation.IsAccessRevoked(tokenString)
	if err != nil {
		logger.Error().Err(err).Msg("revocation lookup failed, failing closed")
		return nil, services.ErrTokenInvalid
	}
	if revoked {
		logger.Debug().Msg("rejected revoked access token")
		return nil, services.ErrTokenInvalid
	}

	claims, err := m.issuer.ParseType(tokenString, token.TypeAccess)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			logger.Debug().Msg("rejected expired access token")
		} else {
			logger.Debug().Msg("rejected malformed access token")
		}
		return nil, services.ErrTokenInvalid
	}

	var user models.User
	if err := m.db.First(&user, claims.UserID).Error; err != nil {
		return nil, services.ErrTokenInvalid
	}
	if !user.IsActive {
		return nil, services.ErrTokenInvalid
	}
	return &user, nil
}

// RequireAuth rejects requests without a valid session.
func (m *SessionAuth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}

		user, err := m.resolve(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Set(ContextAccessToken, tokenString)
		c.Next()
	}
}

// OptionalAuth resolves a session when a valid token is present and treats
// everything else as anonymous. Whether anonymous access is acceptable is
// the route's decision, not this middleware's.
func (m *SessionAuth) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString != "" {
			if user, err := m.resolve(tokenString); err == nil {
				c.Set(ContextUserID, user.ID)
				c.Set(ContextUser, user)
				c.Set(ContextAccessToken, tokenString)
			}
		}
		c.Next()
	}
}

// GetUser returns the authenticated user from context, nil when anonymous.
func GetUser(c *gin.Context) *models.User {
	if v, exists := c.Get(ContextUser); exists {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// GetUserID returns the authenticated user id, 0 when anonymous.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

// GetAccessToken returns the raw token the request authenticated with.
func GetAccessToken(c *gin.Context) string {
	if v, exists := c.Get(ContextAccessToken); exists {
		return v.(string)
	}
	return ""
}

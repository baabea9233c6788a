package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pongarena/backend/internal/middleware"
	"github.com/pongarena/backend/internal/models"
	"github.com/pongarena/backend/internal/services"
	"github.com/pongarena/backend/internal/token"
	"github.com/pongarena/backend/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// userPayload is the identity-describing body attached to login/profile
// responses. The password hash never serializes (json:"-" on the model).
func userPayload(user *models.User, tournaments []services.TournamentSummary) gin.H {
	if tournaments == nil {
		tournaments = []services.TournamentSummary{}
	}
	return gin.H{
		"id":                    user.ID,
		"username":              user.Username,
		"email":                 user.Email,
		"bio":                   user.Bio,
		"profile_image":         user.ProfileImage,
		"intra_id":              user.IntraID,
		"intra_login":           user.IntraLogin,
		"is_oauth_user":         user.IsOAuthUser,
		"is_two_factor_enabled": user.IsTwoFactorEnabled,
		"tournaments":           tournaments,
	}
}

// setSessionCookies writes the pair as two HttpOnly+Secure+SameSite=Lax
// cookies with max-age matching each token's lifetime.
func setSessionCookies(c *gin.Context, pair *token.Pair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieAccessToken, pair.AccessToken, 30*60, "/", "", true, true)
	c.SetCookie(middleware.CookieRefreshToken, pair.RefreshToken, 24*60*60, "/", "", true, true)
}

func clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieAccessToken, "", -1, "/", "", true, true)
	c.SetCookie(middleware.CookieRefreshToken, "", -1, "/", "", true, true)
}

// Register handles account creation.
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "username, password, confirmPassword and email are required")
		return
	}

	user, err := h.authService.Register(&req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPasswordMismatch),
			errors.Is(err, services.ErrPasswordTooShort),
			errors.Is(err, services.ErrUsernameTaken),
			errors.Is(err, services.ErrEmailTaken):
			response.BadRequest(c, err.Error())
		default:
			response.ServerError(c, "registration failed")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":    userPayload(user, nil),
		"success": true,
	})
}

// Login handles user login, including the optional second factor.
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Unauthorized(c, "invalid credentials")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials),
			errors.Is(err, services.ErrInvalidOTP),
			errors.Is(err, services.ErrTwoFactorUnusable):
			response.Unauthorized(c, err.Error())
		default:
			response.ServerError(c, "login failed")
		}
		return
	}

	// Valid credentials but the second factor is still outstanding: a
	// non-error response asking for the code, so clients can tell "need
	// more input" from "rejected". No tokens or cookies yet.
	if result.RequireTwoFactor {
		c.JSON(http.StatusOK, gin.H{
			"require_2fa": true,
			"user_id":     result.UserID,
		})
		return
	}

	setSessionCookies(c, result.Pair)
	c.JSON(http.StatusOK, gin.H{
		"user":    userPayload(result.User, result.Tournaments),
		"success": true,
	})
}

// Logout revokes the presented tokens and clears both cookies. Succeeds
// from the client's point of view even when the revocation write fails.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	accessToken := middleware.GetAccessToken(c)
	refreshToken, _ := c.Cookie(middleware.CookieRefreshToken)

	var userID *uint
	if id := middleware.GetUserID(c); id > 0 {
		userID = &id
	}

	h.authService.Logout(accessToken, refreshToken, userID, c.ClientIP(), c.Request.UserAgent())

	clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out successfully"})
}

// Refresh exchanges the refresh cookie for a fresh token pair.
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(middleware.CookieRefreshToken)
	if err != nil || refreshToken == "" {
		response.Unauthorized(c, "no refresh token found in cookies")
		return
	}

	pair, err := h.authService.Refresh(refreshToken)
	if err != nil {
		response.Unauthorized(c, "invalid or expired token")
		return
	}

	setSessionCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "token refreshed successfully"})
}

// Me returns the current user.
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Unauthorized(c, "authentication required")
		return
	}

	tournaments := h.authService.TournamentsFor(c.Request.Context(), user.Username)
	c.JSON(http.StatusOK, gin.H{
		"user":    userPayload(user, tournaments),
		"success": true,
	})
}

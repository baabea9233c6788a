package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pongarena/backend/internal/middleware"
	"github.com/pongarena/backend/internal/services"
	"github.com/pongarena/backend/pkg/response"
)

type TwoFactorHandler struct {
	twoFactor *services.TwoFactorService
}

func NewTwoFactorHandler(twoFactor *services.TwoFactorService) *TwoFactorHandler {
	return &TwoFactorHandler{twoFactor: twoFactor}
}

type otpRequest struct {
	OTPToken string `json:"otp_token"`
}

// Setup enrolls a new TOTP device, replacing any existing one.
// POST /api/auth/2fa/setup
func (h *TwoFactorHandler) Setup(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Unauthorized(c, "authentication required")
		return
	}

	setup, err := h.twoFactor.Setup(user)
	if err != nil {
		response.ServerError(c, "failed to set up two-factor authentication")
		return
	}

	c.JSON(http.StatusOK, setup)
}

// Verify confirms the device with a first valid code and enables 2FA.
// POST /api/auth/2fa/verify
func (h *TwoFactorHandler) Verify(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OTPToken == "" {
		response.BadRequest(c, "otp token required")
		return
	}

	if err := h.twoFactor.Verify(user, req.OTPToken); err != nil {
		switch {
		case errors.Is(err, services.ErrNoDevice):
			response.BadRequest(c, "no 2fa device found, please set up 2fa first")
		case errors.Is(err, services.ErrInvalidOTP):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid otp token"})
		default:
			response.ServerError(c, "verification failed")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "2fa has been enabled successfully",
		"user":    userPayload(user, nil),
	})
}

// Disable turns 2FA off after one last valid code.
// POST /api/auth/2fa/disable
func (h *TwoFactorHandler) Disable(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OTPToken == "" {
		response.BadRequest(c, "otp token required")
		return
	}

	if err := h.twoFactor.Disable(user, req.OTPToken); err != nil {
		switch {
		case errors.Is(err, services.ErrTwoFactorDisabled):
			response.BadRequest(c, "2fa is not enabled for this user")
		case errors.Is(err, services.ErrNoDevice):
			response.BadRequest(c, "no 2fa device found")
		case errors.Is(err, services.ErrInvalidOTP):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid otp token"})
		default:
			response.ServerError(c, "failed to disable two-factor authentication")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "2fa has been disabled successfully",
		"user":    userPayload(user, nil),
	})
}

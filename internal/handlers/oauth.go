package handlers

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/pongarena/backend/internal/services"
	"github.com/pongarena/backend/pkg/response"
)

const (
	stateCookie = "oauth_state"
	stateMaxAge = 5 * 60 // seconds
)

// OAuthHandler drives the 42 authorization-code flow. The anti-CSRF state
// is bound to the caller through a short-lived HttpOnly cookie and is
// single-use: the callback clears it before doing anything else, so a
// replayed callback finds no state to match.
type OAuthHandler struct {
	oauthService *services.OAuthService
	authService  *services.AuthService
	frontendURL  string
}

func NewOAuthHandler(oauthService *services.OAuthService, authService *services.AuthService, frontendURL string) *OAuthHandler {
	return &OAuthHandler{
		oauthService: oauthService,
		authService:  authService,
		frontendURL:  frontendURL,
	}
}

// Begin hands the client the provider's authorization URL.
// GET /api/auth/oauth/42
func (h *OAuthHandler) Begin(c *gin.Context) {
	state, err := h.oauthService.NewState()
	if err != nil {
		response.ServerError(c, "failed to start oauth flow")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, stateMaxAge, "/", "", true, true)

	c.JSON(http.StatusOK, gin.H{"auth_url": h.oauthService.AuthURL(state)})
}

// Callback completes the code exchange and logs the federated identity in.
// GET /api/auth/oauth/42/callback?code=...&state=...
func (h *OAuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")

	storedState, err := c.Cookie(stateCookie)
	if err != nil || storedState == "" || state != storedState {
		response.BadRequest(c, "invalid state parameter")
		return
	}

	// Single-use: drop the state before the exchange so a replay fails.
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, "", -1, "/", "", true, true)

	if code == "" {
		response.BadRequest(c, "missing authorization code")
		return
	}

	user, err := h.oauthService.Complete(c.Request.Context(), code)
	if err != nil {
		response.Error(c, response.NewBadGateway("oauth exchange failed"))
		return
	}

	result, err := h.authService.CompleteOAuthLogin(c.Request.Context(), user, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		response.ServerError(c, "login failed")
		return
	}

	setSessionCookies(c, result.Pair)

	redirectURL := fmt.Sprintf("%s/oauth/callback.html?access_token=%s&refresh_token=%s",
		h.frontendURL,
		url.QueryEscape(result.Pair.AccessToken),
		url.QueryEscape(result.Pair.RefreshToken),
	)
	c.Redirect(http.StatusFound, redirectURL)
}

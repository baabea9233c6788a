package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pongarena/backend/internal/models"
	"github.com/pongarena/backend/internal/token"
	"github.com/pongarena/backend/internal/utils"
	"github.com/pongarena/backend/pkg/logger"
	"gorm.io/gorm"
)

// AuthService drives the credential check → second factor → token issuance
// state machine, plus logout revocation and refresh rotation. All state it
// holds is injected; there is no ambient signer or connection.
type AuthService struct {
	db          *gorm.DB
	issuer      *token.Issuer
	revocation  *RevocationStore
	twoFactor   *TwoFactorService
	audit       *AuditService
	statsQueue  TaskQueue
	tournaments TournamentSource
}

func NewAuthService(
	db *gorm.DB,
	issuer *token.Issuer,
	revocation *RevocationStore,
	twoFactor *TwoFactorService,
	audit *AuditService,
	statsQueue TaskQueue,
	tournaments TournamentSource,
) *AuthService {
	if tournaments == nil {
		tournaments = NoopTournamentSource{}
	}
	return &AuthService{
		db:          db,
		issuer:      issuer,
		revocation:  revocation,
		twoFactor:   twoFactor,
		audit:       audit,
		statsQueue:  statsQueue,
		tournaments: tournaments,
	}
}

type RegisterRequest struct {
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	OTPToken string `json:"otp_token"`
}

// LoginResult is either an issued session (User + Pair set) or a request for
// the second factor (RequireTwoFactor true, no tokens).
type LoginResult struct {
	RequireTwoFactor bool
	UserID           uint
	User             *models.User
	Pair             *token.Pair
	Tournaments      []TournamentSummary
}

// Register creates a local account. Usernames are lower-cased before the
// uniqueness check so case variants collide.
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if len(req.Password) < 8 {
		return nil, ErrPasswordTooShort
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: hashed,
		IsActive: true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	s.audit.Info(EventRegistered, "account created", &user.ID, "", "", nil)
	return &user, nil
}

// Login runs the full state machine:
// credentials → [second factor] → token issuance.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, ip, userAgent string) (*LoginResult, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))

	var user models.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.audit.Warning(EventLoginFailure, "unknown username", nil, ip, userAgent, map[string]interface{}{"username": username})
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !user.IsActive || !utils.CheckPassword(req.Password, user.Password) {
		s.audit.Warning(EventLoginFailure, "bad password or inactive account", &user.ID, ip, userAgent, nil)
		return nil, ErrInvalidCredentials
	}

	if user.IsTwoFactorEnabled {
		device, err := s.twoFactor.ConfirmedDevice(user.ID)
		if err != nil {
			if errors.Is(err, ErrNoDevice) {
				// Flag set but no confirmed device: a disable/login race
				// left the account inconsistent. Fail closed rather than
				// skip the second factor.
				s.audit.Warning(EventLoginFailure, "2fa enabled without confirmed device", &user.ID, ip, userAgent, nil)
				return nil, ErrTwoFactorUnusable
			}
			return nil, err
		}

		if req.OTPToken == "" {
			return &LoginResult{RequireTwoFactor: true, UserID: user.ID}, nil
		}

		// ConsumeCode burns the matched time step, so a replayed code is
		// rejected even inside the skew window.
		if err := s.twoFactor.ConsumeCode(device, req.OTPToken); err != nil {
			if errors.Is(err, ErrInvalidOTP) {
				s.audit.Warning(EventLoginFailure, "invalid otp code", &user.ID, ip, userAgent, nil)
				return nil, ErrInvalidOTP
			}
			return nil, err
		}
	}

	result, err := s.finishLogin(ctx, &user, "login")
	if err != nil {
		return nil, err
	}

	s.audit.Info(EventLoginSuccess, "login", &user.ID, ip, userAgent, nil)
	return result, nil
}

// CompleteOAuthLogin issues a session for an identity resolved by the OAuth
// federation handler, exactly as the success branch of Login does.
func (s *AuthService) CompleteOAuthLogin(ctx context.Context, user *models.User, ip, userAgent string) (*LoginResult, error) {
	result, err := s.finishLogin(ctx, user, "oauth_login")
	if err != nil {
		return nil, err
	}

	s.audit.Info(EventOAuthLogin, "oauth login", &user.ID, ip, userAgent, nil)
	return result, nil
}

func (s *AuthService) finishLogin(ctx context.Context, user *models.User, reason string) (*LoginResult, error) {
	pair, err := s.issuer.IssuePair(user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.Model(user).Update("last_login", now).Error; err != nil {
		logger.Warn().Err(err).Uint("user_id", user.ID).Msg("last_login update failed")
	}

	if s.statsQueue != nil {
		if err := s.statsQueue.Enqueue(&StatsTask{UserID: user.ID, Reason: reason}); err != nil {
			logger.Warn().Err(err).Uint("user_id", user.ID).Msg("stats recompute enqueue failed")
		}
	}

	tournaments, err := s.tournaments.ForUser(ctx, user.Username)
	if err != nil {
		logger.Warn().Err(err).Str("username", user.Username).Msg("tournament lookup failed")
		tournaments = nil
	}

	return &LoginResult{
		UserID:      user.ID,
		User:        user,
		Pair:        pair,
		Tournaments: tournaments,
	}, nil
}

// Logout revokes the presented tokens. Best-effort by contract: the
// user-facing promise of logout is cookie clearing, so store failures are
// logged and swallowed.
func (s *AuthService) Logout(accessToken, refreshToken string, userID *uint, ip, userAgent string) {
	if accessToken != "" {
		expiresAt := time.Now().Add(s.issuer.AccessTTL())
		if claims, err := s.issuer.Parse(accessToken); err == nil && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		if err := s.revocation.RevokeAccess(accessToken, userID, expiresAt); err != nil {
			logger.Warn().Err(err).Msg("access token revocation failed on logout")
		} else {
			s.audit.Info(EventTokenRevoked, "access token revoked", userID, ip, userAgent, nil)
		}
	}

	if refreshToken != "" {
		claims, err := s.issuer.ParseType(refreshToken, token.TypeRefresh)
		if err == nil && claims.ID != "" {
			expiresAt := time.Now().Add(s.issuer.RefreshTTL())
			if claims.ExpiresAt != nil {
				expiresAt = claims.ExpiresAt.Time
			}
			if err := s.revocation.RevokeRefresh(claims.ID, userID, expiresAt); err != nil {
				logger.Warn().Err(err).Msg("refresh token blacklisting failed on logout")
			}
		}
	}

	s.audit.Info(EventLogout, "logout", userID, ip, userAgent, nil)
}

// Refresh rotates a refresh token: verify, blacklist check by JTI, blacklist
// the old token, mint a fresh pair.
func (s *AuthService) Refresh(refreshToken string) (*token.Pair, error) {
	claims, err := s.issuer.ParseType(refreshToken, token.TypeRefresh)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	revoked, err := s.revocation.IsRefreshRevoked(claims.ID)
	if err != nil {
		// Unreachable store reads as revoked, never as valid.
		logger.Error().Err(err).Msg("refresh blacklist lookup failed")
		return nil, ErrTokenInvalid
	}
	if revoked {
		return nil, ErrTokenInvalid
	}

	var user models.User
	if err := s.db.First(&user, claims.UserID).Error; err != nil {
		return nil, ErrTokenInvalid
	}
	if !user.IsActive {
		return nil, ErrTokenInvalid
	}

	pair, err := s.issuer.IssuePair(user.ID)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.issuer.RefreshTTL())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	// If the old JTI cannot be blacklisted the rotation must not go through:
	// issuing the new pair anyway would leave two live refresh tokens.
	if err := s.revocation.RevokeRefresh(claims.ID, &user.ID, expiresAt); err != nil {
		logger.Error().Err(err).Msg("failed to blacklist rotated refresh token")
		return nil, ErrTokenInvalid
	}

	s.audit.Info(EventTokenRefreshed, "token pair rotated", &user.ID, "", "", nil)
	return pair, nil
}

// GetUserByID resolves a user id to the account record.
func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// TournamentsFor exposes the tournament collaborator for profile responses.
func (s *AuthService) TournamentsFor(ctx context.Context, username string) []TournamentSummary {
	tournaments, err := s.tournaments.ForUser(ctx, username)
	if err != nil {
		logger.Warn().Err(err).Str("username", username).Msg("tournament lookup failed")
		return nil
	}
	return tournaments
}

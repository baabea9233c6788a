package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/models"
	"github.com/pongarena/backend/internal/utils"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// intraProfile is the slice of the 42 intranet profile payload we consume.
type intraProfile struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
	Image struct {
		Link string `json:"link"`
	} `json:"image"`
}

// OAuthService handles the authorization-code exchange with the 42 intranet
// and maps the external identity onto a local account, creating one on first
// login. The provider itself is an external collaborator; everything here is
// plumbing around golang.org/x/oauth2.
type OAuthService struct {
	db         *gorm.DB
	oauth      *oauth2.Config
	profileURL string
	audit      *AuditService
}

func NewOAuthService(db *gorm.DB, cfg *config.OAuthConfig, audit *AuditService) *OAuthService {
	return &OAuthService{
		db: db,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"public"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		profileURL: cfg.ProfileURL,
		audit:      audit,
	}
}

// NewState returns a fresh high-entropy anti-CSRF state token. The handler
// binds it to the caller via a short-lived cookie; it is single-use.
func (s *OAuthService) NewState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// AuthURL builds the provider's authorization URL carrying the state.
func (s *OAuthService) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// Complete exchanges the authorization code, fetches the external profile
// and resolves it to a local user, creating a federated account on first
// login. Any provider-side failure surfaces as ErrOAuthExchange and no
// partial identity is created.
func (s *OAuthService) Complete(ctx context.Context, code string) (*models.User, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}

	profile, err := s.fetchProfile(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}

	intraID := fmt.Sprintf("%d", profile.ID)

	var user models.User
	err = s.db.Where("intra_id = ?", intraID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// First login from this external identity: create a federated account
	// with a random password nobody can use.
	randomPassword, err := utils.RandomPassword(16)
	if err != nil {
		return nil, err
	}
	hashed, err := utils.HashPassword(randomPassword)
	if err != nil {
		return nil, err
	}

	user = models.User{
		Username:     strings.ToLower(profile.Login),
		Email:        strings.ToLower(profile.Email),
		Password:     hashed,
		IntraID:      &intraID,
		IntraLogin:   profile.Login,
		IsOAuthUser:  true,
		ProfileImage: profile.Image.Link,
		IsActive:     true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	s.audit.Info(EventOAuthLinked, "federated account created", &user.ID, "", "", map[string]interface{}{"intra_login": profile.Login})
	return &user, nil
}

func (s *OAuthService) fetchProfile(ctx context.Context, tok *oauth2.Token) (*intraProfile, error) {
	client := s.oauth.Client(ctx, tok)
	resp, err := client.Get(s.profileURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile request returned %d", resp.StatusCode)
	}

	var profile intraProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	if profile.ID == 0 || profile.Login == "" {
		return nil, errors.New("profile payload missing id or login")
	}
	return &profile, nil
}

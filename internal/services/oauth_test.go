package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/models"
)

// fakeProvider stands in for the 42 intranet: a token endpoint and a
// profile endpoint.
func fakeProvider(t *testing.T, profileJSON string, tokenStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if tokenStatus != http.StatusOK {
			w.WriteHeader(tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"provider-token","token_type":"bearer","expires_in":7200}`))
	})
	mux.HandleFunc("/v2/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(profileJSON))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newOAuthService(t *testing.T, db *gorm.DB, provider *httptest.Server) *OAuthService {
	t.Helper()
	return NewOAuthService(db, &config.OAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8000/api/auth/oauth/42/callback",
		AuthURL:      provider.URL + "/oauth/authorize",
		TokenURL:     provider.URL + "/oauth/token",
		ProfileURL:   provider.URL + "/v2/me",
	}, NewAuditService(db))
}

func TestNewState(t *testing.T) {
	db := newTestDB(t)
	svc := newOAuthService(t, db, fakeProvider(t, "{}", http.StatusOK))

	s1, err := svc.NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	if len(s1) != 32 {
		t.Errorf("state length = %d, expected 32 hex chars", len(s1))
	}

	s2, _ := svc.NewState()
	if s1 == s2 {
		t.Error("states should be unique")
	}
}

func TestAuthURL(t *testing.T) {
	db := newTestDB(t)
	svc := newOAuthService(t, db, fakeProvider(t, "{}", http.StatusOK))

	u := svc.AuthURL("the-state")
	for _, want := range []string{"client_id=client-id", "state=the-state", "response_type=code"} {
		if !strings.Contains(u, want) {
			t.Errorf("AuthURL missing %q: %s", want, u)
		}
	}
}

func TestComplete_CreatesFederatedAccount(t *testing.T) {
	db := newTestDB(t)
	profile := `{"id":12345,"login":"ANovak","email":"ANovak@student.42.fr","image":{"link":"https://cdn.intra.42.fr/anovak.jpg"}}`
	svc := newOAuthService(t, db, fakeProvider(t, profile, http.StatusOK))

	user, err := svc.Complete(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if user.Username != "anovak" {
		t.Errorf("username = %q, expected lower-cased %q", user.Username, "anovak")
	}
	if user.Email != "anovak@student.42.fr" {
		t.Errorf("email = %q, expected lower-cased", user.Email)
	}
	if user.IntraID == nil || *user.IntraID != "12345" {
		t.Error("intra id not recorded")
	}
	if !user.IsOAuthUser {
		t.Error("IsOAuthUser should be set on a federated account")
	}
	if !user.IsActive {
		t.Error("federated account should be active")
	}
	if user.Password == "" {
		t.Error("federated account should carry an unguessable password hash")
	}
	if user.ProfileImage != "https://cdn.intra.42.fr/anovak.jpg" {
		t.Errorf("profile image = %q", user.ProfileImage)
	}
}

func TestComplete_ReusesExistingAccount(t *testing.T) {
	db := newTestDB(t)
	profile := `{"id":12345,"login":"anovak","email":"anovak@student.42.fr","image":{"link":""}}`
	svc := newOAuthService(t, db, fakeProvider(t, profile, http.StatusOK))

	first, err := svc.Complete(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("first Complete() error = %v", err)
	}
	second, err := svc.Complete(context.Background(), "code-2")
	if err != nil {
		t.Fatalf("second Complete() error = %v", err)
	}

	if first.ID != second.ID {
		t.Error("repeat login should resolve to the same account")
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("user count = %d, expected 1", count)
	}
}

func TestComplete_ExchangeFailure(t *testing.T) {
	db := newTestDB(t)
	svc := newOAuthService(t, db, fakeProvider(t, "{}", http.StatusBadRequest))

	_, err := svc.Complete(context.Background(), "bad-code")
	if !errors.Is(err, ErrOAuthExchange) {
		t.Errorf("Complete() error = %v, expected ErrOAuthExchange", err)
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Error("a failed exchange must not create an account")
	}
}

func TestComplete_MalformedProfile(t *testing.T) {
	db := newTestDB(t)
	svc := newOAuthService(t, db, fakeProvider(t, `{"id":0,"login":""}`, http.StatusOK))

	_, err := svc.Complete(context.Background(), "auth-code")
	if !errors.Is(err, ErrOAuthExchange) {
		t.Errorf("Complete() error = %v, expected ErrOAuthExchange", err)
	}
}

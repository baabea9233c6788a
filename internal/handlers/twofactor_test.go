package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pongarena/backend/internal/totp"
)

func TestTwoFactorEndpoints_FullFlow(t *testing.T) {
	f := newHandlerFixture(t)
	f.register(t, "alice", "password123")
	access, _ := f.login(t, "alice", "password123")

	// Enroll.
	w := f.postJSON("/api/auth/2fa/setup", nil, access)
	if w.Code != http.StatusOK {
		t.Fatalf("setup status = %d, body = %s", w.Code, w.Body.String())
	}
	var setup struct {
		SecretKey string `json:"secret_key"`
		QRCode    string `json:"qr_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &setup); err != nil {
		t.Fatalf("bad setup body: %v", err)
	}
	if setup.SecretKey == "" {
		t.Fatal("setup should return the shared secret")
	}
	if !strings.HasPrefix(setup.QRCode, "data:image/png;base64,") {
		t.Error("setup should return a PNG data URI")
	}

	// Confirm with a valid code.
	code, _ := totp.GenerateCode(setup.SecretKey, time.Now())
	w = f.postJSON("/api/auth/2fa/verify", gin.H{"otp_token": code}, access)
	if w.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body = %s", w.Code, w.Body.String())
	}

	var verified struct {
		Success bool `json:"success"`
		User    struct {
			IsTwoFactorEnabled bool `json:"is_two_factor_enabled"`
		} `json:"user"`
	}
	json.Unmarshal(w.Body.Bytes(), &verified)
	if !verified.Success || !verified.User.IsTwoFactorEnabled {
		t.Errorf("verify body = %s", w.Body.String())
	}

	// Disable with the next window's code; the verify step is burned.
	code, _ = totp.GenerateCode(setup.SecretKey, time.Now().Add(totp.Step))
	w = f.postJSON("/api/auth/2fa/disable", gin.H{"otp_token": code}, access)
	if w.Code != http.StatusOK {
		t.Fatalf("disable status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestTwoFactorVerifyEndpoint_Rejections(t *testing.T) {
	f := newHandlerFixture(t)
	f.register(t, "alice", "password123")
	access, _ := f.login(t, "alice", "password123")

	// No device enrolled yet.
	w := f.postJSON("/api/auth/2fa/verify", gin.H{"otp_token": "123456"}, access)
	if w.Code != http.StatusBadRequest {
		t.Errorf("verify without device status = %d, expected 400", w.Code)
	}

	// Missing code.
	w = f.postJSON("/api/auth/2fa/verify", gin.H{}, access)
	if w.Code != http.StatusBadRequest {
		t.Errorf("verify without code status = %d, expected 400", w.Code)
	}

	// Wrong code after enrolling.
	f.postJSON("/api/auth/2fa/setup", nil, access)
	w = f.postJSON("/api/auth/2fa/verify", gin.H{"otp_token": "000000"}, access)
	if w.Code != http.StatusBadRequest {
		t.Errorf("verify with wrong code status = %d, expected 400", w.Code)
	}
}

func TestTwoFactorDisableEndpoint_NotEnabled(t *testing.T) {
	f := newHandlerFixture(t)
	f.register(t, "alice", "password123")
	access, _ := f.login(t, "alice", "password123")

	w := f.postJSON("/api/auth/2fa/disable", gin.H{"otp_token": "123456"}, access)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", w.Code)
	}
}

func TestTwoFactorEndpoints_RequireSession(t *testing.T) {
	f := newHandlerFixture(t)

	for _, path := range []string{"/api/auth/2fa/setup", "/api/auth/2fa/verify", "/api/auth/2fa/disable"} {
		if w := f.postJSON(path, gin.H{"otp_token": "123456"}); w.Code != http.StatusUnauthorized {
			t.Errorf("%s anonymous status = %d, expected 401", path, w.Code)
		}
	}
}

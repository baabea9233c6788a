package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pongarena/backend/internal/models"
	"github.com/pongarena/backend/internal/services"
	"github.com/pongarena/backend/internal/token"
)

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:mwtestdb%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

type authTestEnv struct {
	db         *gorm.DB
	issuer     *token.Issuer
	revocation *services.RevocationStore
	auth       *SessionAuth
	user       *models.User
	pair       *token.Pair
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	issuer := token.NewIssuer("test-secret", 30*time.Minute, 24*time.Hour)
	revocation := services.NewRevocationStore(db)

	user := &models.User{Username: "alice", Email: "alice@example.com", Password: "x", IsActive: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	pair, err := issuer.IssuePair(user.ID)
	if err != nil {
		t.Fatalf("IssuePair() error = %v", err)
	}

	return &authTestEnv{
		db:         db,
		issuer:     issuer,
		revocation: revocation,
		auth:       NewSessionAuth(db, issuer, revocation),
		user:       user,
		pair:       pair,
	}
}

// router with one protected route that echoes the resolved user id.
func (e *authTestEnv) router() *gin.Engine {
	r := gin.New()
	r.GET("/protected", e.auth.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	r.GET("/optional", e.auth.OptionalAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	return r
}

func getWithCookie(r http.Handler, path, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: cookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_NoToken(t *testing.T) {
	e := newAuthTestEnv(t)

	w := getWithCookie(e.router(), "/protected", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, expected 401", w.Code)
	}
}

func TestRequireAuth_CookieToken(t *testing.T) {
	e := newAuthTestEnv(t)

	w := getWithCookie(e.router(), "/protected", e.pair.AccessToken)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, expected 200, body = %s", w.Code, w.Body.String())
	}
}

func TestRequireAuth_BearerToken(t *testing.T) {
	e := newAuthTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+e.pair.AccessToken)
	w := httptest.NewRecorder()
	e.router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, expected 200", w.Code)
	}
}

func TestRequireAuth_CookiePreferredOverHeader(t *testing.T) {
	e := newAuthTestEnv(t)

	// A bad cookie loses to nothing: the header is only a fallback when no
	// cookie is present, so a garbage cookie fails even with a valid header.
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: "garbage"})
	req.Header.Set("Authorization", "Bearer "+e.pair.AccessToken)
	w := httptest.NewRecorder()
	e.router().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, expected 401 when the cookie token is invalid", w.Code)
	}
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	e := newAuthTestEnv(t)
	r := e.router()

	for _, header := range []string{"Basic abc", "Bearer", e.pair.AccessToken} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Authorization %q: status = %d, expected 401", header, w.Code)
		}
	}
}

func TestRequireAuth_RevokedToken(t *testing.T) {
	e := newAuthTestEnv(t)
	r := e.router()

	// Sanity: the token works before revocation.
	if w := getWithCookie(r, "/protected", e.pair.AccessToken); w.Code != http.StatusOK {
		t.Fatalf("pre-revocation status = %d, expected 200", w.Code)
	}

	if err := e.revocation.RevokeAccess(e.pair.AccessToken, &e.user.ID, e.pair.AccessExpiresAt); err != nil {
		t.Fatalf("RevokeAccess() error = %v", err)
	}

	// Still unexpired and correctly signed, but denylisted.
	if w := getWithCookie(r, "/protected", e.pair.AccessToken); w.Code != http.StatusUnauthorized {
		t.Errorf("post-revocation status = %d, expected 401", w.Code)
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	e := newAuthTestEnv(t)

	expiredIssuer := token.NewIssuer("test-secret", -time.Minute, -time.Minute)
	pair, _ := expiredIssuer.IssuePair(e.user.ID)

	if w := getWithCookie(e.router(), "/protected", pair.AccessToken); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, expected 401 for an expired token", w.Code)
	}
}

func TestRequireAuth_RefreshTokenRejected(t *testing.T) {
	e := newAuthTestEnv(t)

	if w := getWithCookie(e.router(), "/protected", e.pair.RefreshToken); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, expected 401 for a refresh token in the access slot", w.Code)
	}
}

func TestRequireAuth_InactiveUser(t *testing.T) {
	e := newAuthTestEnv(t)
	e.db.Model(e.user).Update("is_active", false)

	if w := getWithCookie(e.router(), "/protected", e.pair.AccessToken); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, expected 401 for a deactivated account", w.Code)
	}
}

func TestRequireAuth_UniformRejection(t *testing.T) {
	e := newAuthTestEnv(t)
	r := e.router()

	e.revocation.RevokeAccess(e.pair.AccessToken, &e.user.ID, e.pair.AccessExpiresAt)
	expiredIssuer := token.NewIssuer("test-secret", -time.Minute, -time.Minute)
	expired, _ := expiredIssuer.IssuePair(e.user.ID)

	// Revoked, expired and malformed tokens are indistinguishable to the
	// caller.
	bodies := map[string]string{}
	for name, tok := range map[string]string{
		"revoked":   e.pair.AccessToken,
		"expired":   expired.AccessToken,
		"malformed": "not.a.token",
	} {
		w := getWithCookie(r, "/protected", tok)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, expected 401", name, w.Code)
		}
		bodies[name] = w.Body.String()
	}
	if bodies["revoked"] != bodies["expired"] || bodies["expired"] != bodies["malformed"] {
		t.Errorf("rejection bodies differ: %v", bodies)
	}
}

func TestOptionalAuth(t *testing.T) {
	e := newAuthTestEnv(t)
	r := e.router()

	// Anonymous passes through.
	w := getWithCookie(r, "/optional", "")
	if w.Code != http.StatusOK {
		t.Errorf("anonymous status = %d, expected 200", w.Code)
	}

	// Garbage token is treated as anonymous, not rejected.
	w = getWithCookie(r, "/optional", "garbage")
	if w.Code != http.StatusOK {
		t.Errorf("garbage token status = %d, expected 200", w.Code)
	}

	// Valid token resolves the user.
	w = getWithCookie(r, "/optional", e.pair.AccessToken)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", w.Code)
	}
	want := fmt.Sprintf(`{"user_id":%d}`, e.user.ID)
	if w.Body.String() != want {
		t.Errorf("body = %s, expected %s", w.Body.String(), want)
	}
}

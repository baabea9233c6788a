package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ErrExpired means the token's signature was fine but its exp has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers every other verification failure: bad signature,
	// malformed token, wrong token type.
	ErrInvalid = errors.New("token invalid")
)

// Claims are the signed contents of both access and refresh tokens.
type Claims struct {
	UserID    uint   `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Pair is a freshly minted access/refresh token pair. Neither token is
// persisted at issuance; only revoked tokens ever reach storage.
type Pair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	RefreshID        string // JTI of the refresh token, used for blacklisting
}

// Issuer mints and verifies token pairs. It is constructed once in bootstrap
// with the signing secret and passed to whoever needs it; there is no
// package-level signing state.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssuePair mints an access/refresh pair bound to the given user id.
func (i *Issuer) IssuePair(userID uint) (*Pair, error) {
	now := time.Now()

	accessExp := now.Add(i.accessTTL)
	accessToken, err := i.sign(Claims{
		UserID:    userID,
		TokenType: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	})
	if err != nil {
		return nil, err
	}

	refreshID := uuid.NewString()
	refreshExp := now.Add(i.refreshTTL)
	refreshToken, err := i.sign(Claims{
		UserID:    userID,
		TokenType: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        refreshID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	})
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
		RefreshID:        refreshID,
	}, nil
}

// AccessTTL reports the configured access token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

func (i *Issuer) sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret)
}

// Parse verifies signature and expiry and returns the claims. Expired tokens
// come back as ErrExpired, everything else as ErrInvalid, so the middleware
// can log the distinction without leaking it to clients.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	return claims, nil
}

// ParseType is Parse plus a token_type check, so a refresh token can never
// pass where an access token is expected and vice versa.
func (i *Issuer) ParseType(tokenString, tokenType string) (*Claims, error) {
	claims, err := i.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, ErrInvalid
	}
	return claims, nil
}

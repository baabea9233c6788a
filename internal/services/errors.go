package services

import "errors"

// Sentinel errors returned by the auth services. Handlers translate these to
// HTTP responses; the wire messages stay short and reveal nothing about
// revocation-list membership or which check failed.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOTP         = errors.New("invalid otp token")
	ErrOTPRequired        = errors.New("otp token required")
	// ErrTwoFactorUnusable means the user has the 2FA flag set but no
	// confirmed device exists. Login fails closed instead of silently
	// skipping the second factor.
	ErrTwoFactorUnusable  = errors.New("two-factor configuration invalid")
	ErrTwoFactorDisabled  = errors.New("two-factor is not enabled for this user")
	ErrNoDevice           = errors.New("no two-factor device found")
	ErrTokenInvalid       = errors.New("invalid or expired token")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPasswordMismatch   = errors.New("password fields didn't match")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrOAuthExchange      = errors.New("oauth exchange failed")
	ErrOAuthStateMismatch = errors.New("invalid state parameter")
)

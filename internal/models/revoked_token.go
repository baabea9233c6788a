package models

import "time"

// RevokedAccessToken is the access-token denylist. Rows are keyed by the
// sha256 of the entire token string, so the hot-path lookup is an exact match
// on a fixed-width indexed column and never requires decoding the token.
type RevokedAccessToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TokenHash string    `gorm:"uniqueIndex;size:64;not null" json:"-"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"` // nullable: revocation may happen without a resolvable user
	RevokedAt time.Time `gorm:"not null" json:"revoked_at"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"` // natural expiry of the token, drives garbage collection
}

func (RevokedAccessToken) TableName() string { return "revoked_access_tokens" }

// RevokedRefreshToken is the refresh-token blacklist, keyed by the token's
// JTI claim. Checked at refresh time; the old JTI lands here on rotation.
type RevokedRefreshToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TokenID   string    `gorm:"uniqueIndex;size:64;not null" json:"token_id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	RevokedAt time.Time `gorm:"not null" json:"revoked_at"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
}

func (RevokedRefreshToken) TableName() string { return "revoked_refresh_tokens" }

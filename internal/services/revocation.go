package services

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/pongarena/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RevocationStore is the durable denylist consulted on every authenticated
// request. Access tokens are keyed by a sha256 of the whole token string, so
// the check is an indexed exact match that does not require decoding or
// verifying the token first. Refresh tokens are tracked separately by JTI.
type RevocationStore struct {
	db *gorm.DB
}

func NewRevocationStore(db *gorm.DB) *RevocationStore {
	return &RevocationStore{db: db}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RevokeAccess adds an access token to the denylist. Idempotent: revoking
// the same token twice is a no-op. userID may be nil when the token does not
// resolve to a user.
func (s *RevocationStore) RevokeAccess(tokenString string, userID *uint, expiresAt time.Time) error {
	record := models.RevokedAccessToken{
		TokenHash: hashToken(tokenString),
		UserID:    userID,
		RevokedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_hash"}},
		DoNothing: true,
	}).Create(&record).Error
}

// IsAccessRevoked reports whether the token string is on the denylist.
// A storage error propagates so the caller can fail closed; an unreachable
// store must never read as "not revoked".
func (s *RevocationStore) IsAccessRevoked(tokenString string) (bool, error) {
	var count int64
	err := s.db.Model(&models.RevokedAccessToken{}).
		Where("token_hash = ?", hashToken(tokenString)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RevokeRefresh blacklists a refresh token by its JTI.
func (s *RevocationStore) RevokeRefresh(tokenID string, userID *uint, expiresAt time.Time) error {
	record := models.RevokedRefreshToken{
		TokenID:   tokenID,
		UserID:    userID,
		RevokedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_id"}},
		DoNothing: true,
	}).Create(&record).Error
}

// IsRefreshRevoked reports whether the refresh token's JTI is blacklisted.
func (s *RevocationStore) IsRefreshRevoked(tokenID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.RevokedRefreshToken{}).
		Where("token_id = ?", tokenID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PurgeExpired deletes denylist rows whose tokens have passed their natural
// expiry; a revoked token that could no longer verify anyway does not need a
// denylist entry. Returns the number of rows removed.
func (s *RevocationStore) PurgeExpired(now time.Time) (int64, error) {
	access := s.db.Where("expires_at < ?", now).Delete(&models.RevokedAccessToken{})
	if access.Error != nil {
		return access.RowsAffected, access.Error
	}
	refresh := s.db.Where("expires_at < ?", now).Delete(&models.RevokedRefreshToken{})
	return access.RowsAffected + refresh.RowsAffected, refresh.Error
}

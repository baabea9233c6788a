package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a platform account. Usernames are stored lower-cased so
// case variants cannot produce duplicate accounts.
type User struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Username           string         `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email              string         `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Password           string         `gorm:"size:255" json:"-"` // bcrypt hash; random unusable value for OAuth users
	Bio                string         `gorm:"type:text" json:"bio"`
	ProfileImage       string         `gorm:"size:500" json:"profile_image"`
	IntraID            *string        `gorm:"uniqueIndex;size:64" json:"intra_id,omitempty"` // external provider id, nil for local accounts
	IntraLogin         string         `gorm:"size:150" json:"intra_login,omitempty"`
	IsOAuthUser        bool           `gorm:"default:false" json:"is_oauth_user"`
	IsTwoFactorEnabled bool           `gorm:"default:false" json:"is_two_factor_enabled"`
	IsActive           bool           `gorm:"default:true" json:"is_active"`
	LastLogin          *time.Time     `json:"last_login"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

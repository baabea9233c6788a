package models

import "time"

// TOTPDevice is a user's second-factor device. The unique index on UserID
// enforces at-most-one device per user at the storage layer: the loser of a
// concurrent setup race gets a constraint violation instead of leaving two
// devices behind.
type TOTPDevice struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	Secret    string `gorm:"size:64;not null" json:"-"` // base32 shared secret
	Confirmed bool   `gorm:"default:false" json:"confirmed"`
	Name      string `gorm:"size:150" json:"name"`
	// Last accepted TOTP time step. A code computed for this step or an
	// earlier one is rejected, so an intercepted code cannot authenticate a
	// second time within the skew window.
	LastUsedStep int64     `gorm:"default:0" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (TOTPDevice) TableName() string { return "totp_devices" }

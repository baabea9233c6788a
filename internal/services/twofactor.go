package services

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/pongarena/backend/internal/models"
	"github.com/pongarena/backend/internal/totp"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

// TwoFactorService manages TOTP device enrollment and verification. A user
// has at most one device; setting up again replaces the old one. Accepted
// codes burn the time step they matched, so a code never authenticates
// twice.
type TwoFactorService struct {
	db     *gorm.DB
	issuer string
	audit  *AuditService
}

func NewTwoFactorService(db *gorm.DB, issuer string, audit *AuditService) *TwoFactorService {
	return &TwoFactorService{db: db, issuer: issuer, audit: audit}
}

type TwoFactorSetup struct {
	SecretKey string `json:"secret_key"`
	QRCode    string `json:"qr_code"` // data URI PNG
}

// Setup creates a fresh unconfirmed device for the user, replacing any
// existing device in the same transaction. Returns the base32 secret and a
// QR-encoded provisioning URI for authenticator enrollment.
func (s *TwoFactorService) Setup(user *models.User) (*TwoFactorSetup, error) {
	secret, err := totp.GenerateSecret(s.issuer, user.Email)
	if err != nil {
		return nil, err
	}

	device := models.TOTPDevice{
		UserID:    user.ID,
		Secret:    secret,
		Confirmed: false,
		Name:      fmt.Sprintf("2FA Device for %s", user.Username),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.TOTPDevice{}).Error; err != nil {
			return err
		}
		return tx.Create(&device).Error
	})
	if err != nil {
		return nil, err
	}

	uri := totp.ProvisioningURI(secret, user.Email, s.issuer)
	png, err := qrcode.Encode(uri, qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}

	return &TwoFactorSetup{
		SecretKey: secret,
		QRCode:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// Verify checks the code against the user's device and, on the first
// success, confirms the device and enables 2FA on the account atomically.
func (s *TwoFactorService) Verify(user *models.User, code string) error {
	device, err := s.deviceFor(user.ID)
	if err != nil {
		return err
	}

	step, ok := totp.Match(device.Secret, code, time.Now())
	if !ok || step <= device.LastUsedStep {
		return ErrInvalidOTP
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(device).Updates(map[string]interface{}{
			"confirmed":      true,
			"last_used_step": step,
		}).Error; err != nil {
			return err
		}
		user.IsTwoFactorEnabled = true
		return tx.Model(user).Update("is_two_factor_enabled", true).Error
	})
	if err != nil {
		return err
	}
	device.LastUsedStep = step

	s.audit.Info(EventTwoFAEnabled, "two-factor authentication enabled", &user.ID, "", "", nil)
	return nil
}

// ConsumeCode verifies a login code against an already-resolved device and
// burns the matched time step, so replaying the same code within the skew
// window fails. Used by the login state machine.
func (s *TwoFactorService) ConsumeCode(device *models.TOTPDevice, code string) error {
	step, ok := totp.Match(device.Secret, code, time.Now())
	if !ok || step <= device.LastUsedStep {
		return ErrInvalidOTP
	}

	if err := s.db.Model(device).Update("last_used_step", step).Error; err != nil {
		return err
	}
	device.LastUsedStep = step
	return nil
}

// Disable verifies the code, then deletes the device and clears the user's
// 2FA flag in one transaction so the two never drift apart.
func (s *TwoFactorService) Disable(user *models.User, code string) error {
	if !user.IsTwoFactorEnabled {
		return ErrTwoFactorDisabled
	}

	device, err := s.deviceFor(user.ID)
	if err != nil {
		return err
	}

	step, ok := totp.Match(device.Secret, code, time.Now())
	if !ok || step <= device.LastUsedStep {
		return ErrInvalidOTP
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(device).Error; err != nil {
			return err
		}
		user.IsTwoFactorEnabled = false
		return tx.Model(user).Update("is_two_factor_enabled", false).Error
	})
	if err != nil {
		return err
	}

	s.audit.Info(EventTwoFADisabled, "two-factor authentication disabled", &user.ID, "", "", nil)
	return nil
}

// ConfirmedDevice returns the user's confirmed device, or ErrNoDevice.
func (s *TwoFactorService) ConfirmedDevice(userID uint) (*models.TOTPDevice, error) {
	var device models.TOTPDevice
	err := s.db.Where("user_id = ? AND confirmed = ?", userID, true).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoDevice
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (s *TwoFactorService) deviceFor(userID uint) (*models.TOTPDevice, error) {
	var device models.TOTPDevice
	err := s.db.Where("user_id = ?", userID).First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoDevice
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	DefaultStatus    = "Hey there! I'm using Chat Friendly."
	DefaultAvatarURL = "/assets/default-avatar.png"
)

type User struct {
	gorm.Model
	Email     string    `gorm:"column:email;uniqueIndex" json:"email"`
	Name      string    `gorm:"column:name" json:"name"`
	Status    string    `gorm:"column:status" json:"status"`
	Password  string    `gorm:"column:password" json:"-"`
	LastLogin time.Time `gorm:"column:last_login" json:"lastLogin"`

	// Email verification: 6-digit code valid for 24 hours, cleared on success
	IsVerified            bool      `gorm:"column:is_verified;default:false" json:"isVerified"`
	VerificationToken     string    `gorm:"column:verification_token;index" json:"-"`
	VerificationExpiresAt time.Time `gorm:"column:verification_expires_at" json:"-"`

	// Password reset: a 40-hex link token (1 hour) or a 6-digit OTP (10 minutes)
	ResetPasswordToken     string    `gorm:"column:reset_password_token;index" json:"-"`
	ResetPasswordExpiresAt time.Time `gorm:"column:reset_password_expires_at" json:"-"`

	ProfilePic string `gorm:"column:profile_pic" json:"profilePic"`

	// Multi-Factor Authentication
	TwoFAEnabled bool   `gorm:"column:two_fa_enabled;default:false" json:"twoFAEnabled"`
	TwoFASecret  string `gorm:"column:two_fa_secret" json:"-"`

	// OAuth2 / Social Login
	GoogleID string `gorm:"column:google_id;index" json:"-"`
}

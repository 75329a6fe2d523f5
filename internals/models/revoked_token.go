package models

import (
	"time"

	"gorm.io/gorm"
)

// RevokedToken is the logout denylist. Session credentials are stateless JWTs,
// so logging out records the credential's JTI here until its natural expiry;
// the auth middleware rejects any denylisted JTI.
type RevokedToken struct {
	gorm.Model
	Jti       string    `gorm:"column:jti;uniqueIndex"`
	ExpiresAt time.Time `gorm:"column:expires_at;index"`
}

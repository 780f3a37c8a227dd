package models

import "time"

// BlacklistedToken is the database fallback for revoked refresh tokens.
type BlacklistedToken struct {
	JTI       string    `gorm:"primaryKey;size:64"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

package models

import "time"

// RefreshToken stores the hash of an issued refresh token. Tokens are single
// use and rotated on every refresh.
type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"`
	AccountID string `gorm:"index;type:varchar(36);not null"`
	TokenHash string `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Active reports whether the token can still be exchanged at now.
func (t RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

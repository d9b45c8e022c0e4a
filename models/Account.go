package models

import "time"

// Account is an authentication record. Its ID is the identity id shared with
// Profile.
type Account struct {
	ID                string `gorm:"primaryKey;type:varchar(36)"`
	Email             string `gorm:"uniqueIndex;not null"`
	PasswordHash      string `gorm:"not null"`
	ConfirmedAt       *time.Time
	ConfirmationHash  string `gorm:"index"`
	RecoveryHash      string `gorm:"index"`
	RecoveryExpiresAt *time.Time
	LastSignInAt      *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Confirmed reports whether the account's email address has been confirmed.
func (a Account) Confirmed() bool {
	return a.ConfirmedAt != nil
}

package models

import (
	"time"

	"homedeck/internal/access"
)

// Profile is the per-identity row holding display details, access level,
// preferences and the shortcut list. Its ID equals the identity id.
type Profile struct {
	ID          string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email       string       `gorm:"index" json:"email"`
	Username    string       `json:"username"`
	FullName    string       `json:"full_name"`
	AvatarURL   string       `json:"avatar_url"`
	Bio         string       `gorm:"type:text" json:"bio"`
	AccessLevel access.Level `gorm:"type:varchar(16);not null;default:user" json:"access_level"`
	Settings    Settings     `gorm:"type:text" json:"settings"`
	Apps        []UserApp    `gorm:"serializer:json;type:text" json:"apps"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewProfile returns a profile for id populated with the defaults.
func NewProfile(id, email string) Profile {
	return Profile{
		ID:          id,
		Email:       email,
		AccessLevel: access.LevelUser,
		Settings:    DefaultSettings(),
		Apps:        []UserApp{},
	}
}

// DisplayName picks the most personal name available.
func (p Profile) DisplayName() string {
	switch {
	case p.FullName != "":
		return p.FullName
	case p.Username != "":
		return p.Username
	default:
		return p.Email
	}
}

package models

import "time"

// SessionRecord persists a server-side cookie session.
type SessionRecord struct {
	Token  string    `gorm:"primaryKey;type:varchar(64)"`
	Data   []byte    `gorm:"not null"`
	Expiry time.Time `gorm:"index;not null"`
}

func (SessionRecord) TableName() string { return "sessions" }

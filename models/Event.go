package models

import "time"

// Visit records a page view. UserID is set when the visitor was signed in.
type Visit struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	PageURL   string    `json:"page_url"`
	Referrer  string    `json:"referrer,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	UserID    *string   `gorm:"type:varchar(36)" json:"user_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Contact records a submitted contact form.
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `gorm:"type:text" json:"message,omitempty"`
	UserID    *string   `gorm:"type:varchar(36)" json:"user_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// CVDownload records a download of the CV document.
type CVDownload struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	UserID       *string   `gorm:"type:varchar(36)" json:"user_id"`
	DownloadedAt time.Time `gorm:"index" json:"downloaded_at"`
}

func (Visit) TableName() string      { return "visits" }
func (Contact) TableName() string    { return "contacts" }
func (CVDownload) TableName() string { return "cv_downloads" }

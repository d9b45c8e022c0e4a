// Package analytics records page visits, contact form submissions and CV
// downloads, and summarises them for the admin dashboard.
package analytics

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	applog "homedeck/internal/log"
	"homedeck/models"
)

// RecentLimit is the number of recent events returned per table.
const RecentLimit = 10

// Stats summarises the event tables. Totals and lists are zero-valued for
// tables that could not be read.
type Stats struct {
	TotalVisits      int64               `json:"totalVisits"`
	TotalContacts    int64               `json:"totalContacts"`
	TotalCVDownloads int64               `json:"totalCVDownloads"`
	RecentVisits     []models.Visit      `json:"recentVisits"`
	RecentContacts   []models.Contact    `json:"recentContacts"`
	RecentDownloads  []models.CVDownload `json:"recentDownloads"`
}

// Tracker writes and reads events.
type Tracker struct {
	db  *gorm.DB
	now func() time.Time
}

// NewTracker returns a Tracker using db.
func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{db: db, now: time.Now}
}

func userRef(userID string) *string {
	if userID = strings.TrimSpace(userID); userID == "" {
		return nil
	}
	return &userID
}

// insert stores event and logs failures. Tracking never fails the caller.
func (t *Tracker) insert(ctx context.Context, kind string, event any) bool {
	if err := t.db.WithContext(ctx).Create(event).Error; err != nil {
		applog.Warn(ctx, "failed to track event", "kind", kind, "error", err)
		return false
	}
	return true
}

// TrackVisit records a page view. userID is empty for anonymous visitors.
func (t *Tracker) TrackVisit(ctx context.Context, pageURL, referrer, userAgent, userID string) bool {
	return t.insert(ctx, "visit", &models.Visit{
		PageURL:   pageURL,
		Referrer:  referrer,
		UserAgent: userAgent,
		UserID:    userRef(userID),
	})
}

// TrackContact records a contact form submission.
func (t *Tracker) TrackContact(ctx context.Context, name, email, message, userID string) bool {
	return t.insert(ctx, "contact", &models.Contact{
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
		Message: strings.TrimSpace(message),
		UserID:  userRef(userID),
	})
}

// TrackCVDownload records a CV download.
func (t *Tracker) TrackCVDownload(ctx context.Context, userID string) bool {
	return t.insert(ctx, "cv_download", &models.CVDownload{
		UserID:       userRef(userID),
		DownloadedAt: t.now().UTC(),
	})
}

// Stats reads the totals and the most recent events of each table
// concurrently.
func (t *Tracker) Stats(ctx context.Context) Stats {
	stats := Stats{
		RecentVisits:    []models.Visit{},
		RecentContacts:  []models.Contact{},
		RecentDownloads: []models.CVDownload{},
	}

	g, gCtx := errgroup.WithContext(ctx)
	query := func(name string, fn func(db *gorm.DB) error) {
		g.Go(func() error {
			if err := fn(t.db.WithContext(gCtx)); err != nil {
				applog.Warn(ctx, "analytics query failed", "query", name, "error", err)
			}
			return nil
		})
	}

	var (
		visits    []models.Visit
		contacts  []models.Contact
		downloads []models.CVDownload
	)
	query("count visits", func(db *gorm.DB) error {
		return db.Model(&models.Visit{}).Count(&stats.TotalVisits).Error
	})
	query("count contacts", func(db *gorm.DB) error {
		return db.Model(&models.Contact{}).Count(&stats.TotalContacts).Error
	})
	query("count cv downloads", func(db *gorm.DB) error {
		return db.Model(&models.CVDownload{}).Count(&stats.TotalCVDownloads).Error
	})
	query("recent visits", func(db *gorm.DB) error {
		return db.Order("created_at desc").Order("id desc").Limit(RecentLimit).Find(&visits).Error
	})
	query("recent contacts", func(db *gorm.DB) error {
		return db.Order("created_at desc").Order("id desc").Limit(RecentLimit).Find(&contacts).Error
	})
	query("recent cv downloads", func(db *gorm.DB) error {
		return db.Order("downloaded_at desc").Order("id desc").Limit(RecentLimit).Find(&downloads).Error
	})
	_ = g.Wait()

	if visits != nil {
		stats.RecentVisits = visits
	}
	if contacts != nil {
		stats.RecentContacts = contacts
	}
	if downloads != nil {
		stats.RecentDownloads = downloads
	}
	return stats
}

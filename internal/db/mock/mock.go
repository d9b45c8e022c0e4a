// Package mock provides an in-memory database seeded with an owner, a regular
// user and a handful of analytics events so the server can run without
// Postgres.
package mock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"homedeck/internal/access"
	"homedeck/internal/db"
	applog "homedeck/internal/log"
	"homedeck/models"
)

// Seeded credentials.
const (
	OwnerEmail    = "owner@homedeck.local"
	GuestEmail    = "guest@homedeck.local"
	SeedPassword  = "homedeck"
	defaultSQLite = "file:homedeck-mock?mode=memory&cache=shared"
)

// New returns an in-memory sqlite database seeded with representative data.
func New(ctx context.Context) (*gorm.DB, error) {
	return Open(ctx, defaultSQLite)
}

// Open is New with an explicit sqlite DSN.
func Open(ctx context.Context, dsn string) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database", "dsn", dsn)

	database, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(logger.Silent))
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(database); err != nil {
		return nil, err
	}

	if err := seed(ctx, database); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return database, nil
}

func seed(ctx context.Context, database *gorm.DB) error {
	var existing int64
	if err := database.WithContext(ctx).Model(&models.Account{}).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		applog.Debug(ctx, "mock database already seeded", "accounts", existing)
		return nil
	}

	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	confirmed := time.Now().UTC()

	owner := models.Account{ID: uuid.NewString(), Email: OwnerEmail, PasswordHash: string(password), ConfirmedAt: &confirmed}
	guest := models.Account{ID: uuid.NewString(), Email: GuestEmail, PasswordHash: string(password), ConfirmedAt: &confirmed}
	for _, account := range []*models.Account{&owner, &guest} {
		if err := database.WithContext(ctx).Create(account).Error; err != nil {
			return err
		}
	}

	ownerProfile := models.NewProfile(owner.ID, owner.Email)
	ownerProfile.Username = "owner"
	ownerProfile.FullName = "Homelab Owner"
	ownerProfile.AccessLevel = access.LevelOwner
	ownerProfile.Apps = []models.UserApp{
		{ID: uuid.NewString(), AppID: "jellyfin", URL: "http://192.168.1.10:8096", Visible: true, Order: 0},
		{ID: uuid.NewString(), AppID: "homeassistant", URL: "http://192.168.1.10:8123", Visible: true, Order: 1},
		{ID: uuid.NewString(), AppID: "proxmox", URL: "https://192.168.1.2:8006", Visible: false, Order: 2},
	}

	guestProfile := models.NewProfile(guest.ID, guest.Email)
	guestProfile.Username = "guest"
	guestProfile.Settings = models.Settings{
		Theme:      models.ThemeLight,
		ColorTheme: models.ColorOcean,
		Language:   models.LanguageEnglish,
		BlobCount:  5,
	}

	for _, profile := range []*models.Profile{&ownerProfile, &guestProfile} {
		if err := database.WithContext(ctx).Create(profile).Error; err != nil {
			return err
		}
	}

	events := []any{
		&models.Visit{PageURL: "http://localhost:8080/", Referrer: "https://github.com", UserAgent: "mock"},
		&models.Visit{PageURL: "http://localhost:8080/app", UserAgent: "mock", UserID: &owner.ID},
		&models.Contact{Name: "Guest", Email: GuestEmail, Message: "Hello from the mock database"},
		&models.CVDownload{DownloadedAt: time.Now().UTC()},
	}
	for _, event := range events {
		if err := database.WithContext(ctx).Create(event).Error; err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}

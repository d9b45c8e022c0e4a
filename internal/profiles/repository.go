// Package profiles stores the per-identity profile rows.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"homedeck/internal/access"
	"homedeck/models"
)

// ErrNotFound is returned when no profile exists for an id.
var ErrNotFound = errors.New("profiles: profile not found")

// Details are the user-editable display fields. Nil fields are left as is.
type Details struct {
	Username *string `json:"username"`
	FullName *string `json:"full_name"`
	Bio      *string `json:"bio"`
}

// Repository reads and writes profiles.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns a Repository using db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Get returns the profile with id.
func (r *Repository) Get(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if profile.Apps == nil {
		profile.Apps = []models.UserApp{}
	}
	return &profile, nil
}

// Ensure returns the profile with id, creating it with the defaults when it
// does not exist. Concurrent callers all observe the same row.
func (r *Repository) Ensure(ctx context.Context, id, email string) (*models.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	profile := models.NewProfile(id, email)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&profile).Error
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *Repository) update(ctx context.Context, id string, columns []string, values models.Profile) error {
	values.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Select(append(columns, "updated_at")).
		Updates(&values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDetails changes the display fields. The access level is never
// touched here.
func (r *Repository) UpdateDetails(ctx context.Context, id string, details Details) (*models.Profile, error) {
	var (
		columns []string
		values  models.Profile
	)
	if details.Username != nil {
		columns = append(columns, "username")
		values.Username = strings.TrimSpace(*details.Username)
	}
	if details.FullName != nil {
		columns = append(columns, "full_name")
		values.FullName = strings.TrimSpace(*details.FullName)
	}
	if details.Bio != nil {
		columns = append(columns, "bio")
		values.Bio = strings.TrimSpace(*details.Bio)
	}
	if len(columns) > 0 {
		if err := r.update(ctx, id, columns, values); err != nil {
			return nil, err
		}
	}
	return r.Get(ctx, id)
}

// SaveSettings replaces the stored settings.
func (r *Repository) SaveSettings(ctx context.Context, id string, settings models.Settings) error {
	return r.update(ctx, id, []string{"settings"}, models.Profile{Settings: settings.Sanitize()})
}

// MergeSettings reads the stored settings, overlays partial and writes the
// result back.
func (r *Repository) MergeSettings(ctx context.Context, id string, partial map[string]any) (models.Settings, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return models.Settings{}, err
	}
	next := current.Settings.Merge(partial)
	if err := r.SaveSettings(ctx, id, next); err != nil {
		return models.Settings{}, err
	}
	return next, nil
}

// LoadApps returns the stored shortcut list.
func (r *Repository) LoadApps(ctx context.Context, id string) ([]models.UserApp, error) {
	profile, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return profile.Apps, nil
}

// SaveApps replaces the stored shortcut list.
func (r *Repository) SaveApps(ctx context.Context, id string, apps []models.UserApp) error {
	if apps == nil {
		apps = []models.UserApp{}
	}
	return r.update(ctx, id, []string{"apps"}, models.Profile{Apps: apps})
}

// SetAvatarURL records the avatar location.
func (r *Repository) SetAvatarURL(ctx context.Context, id, avatarURL string) error {
	return r.update(ctx, id, []string{"avatar_url"}, models.Profile{AvatarURL: avatarURL})
}

// SetAccessLevel changes the access level. Callers authorize the change
// first.
func (r *Repository) SetAccessLevel(ctx context.Context, id string, level access.Level) error {
	if !level.Valid() {
		return access.ErrInvalidLevel
	}
	return r.update(ctx, id, []string{"access_level"}, models.Profile{AccessLevel: level})
}

// List returns every profile, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Profile, error) {
	var out []models.Profile
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the profile row.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Profile{}).Error
}

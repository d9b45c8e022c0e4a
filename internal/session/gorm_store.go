package session

import (
	"context"
	"errors"
	"time"

	"github.com/alexedwards/scs/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	applog "homedeck/internal/log"
	"homedeck/models"
)

var _ scs.Store = (*GormStore)(nil)

// GormStore persists scs sessions in the sessions table.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore returns a GormStore using db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

// Find returns the data for a session token. Expired sessions are not found.
func (s *GormStore) Find(token string) ([]byte, bool, error) {
	var record models.SessionRecord
	err := s.db.Where("token = ? AND expiry > ?", token, s.now().UTC()).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return record.Data, true, nil
}

// Commit inserts or replaces the session data for token.
func (s *GormStore) Commit(token string, b []byte, expiry time.Time) error {
	record := models.SessionRecord{Token: token, Data: b, Expiry: expiry.UTC()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "expiry"}),
	}).Create(&record).Error
}

// Delete removes the session for token.
func (s *GormStore) Delete(token string) error {
	return s.db.Where("token = ?", token).Delete(&models.SessionRecord{}).Error
}

// Cleanup deletes expired sessions and returns how many were removed.
func (s *GormStore) Cleanup(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expiry <= ?", s.now().UTC()).Delete(&models.SessionRecord{})
	return res.RowsAffected, res.Error
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *GormStore) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Cleanup(ctx)
			if err != nil {
				applog.Warn(ctx, "session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				applog.Debug(ctx, "expired sessions removed", "count", n)
			}
		}
	}
}

package profiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"homedeck/internal/access"
	"homedeck/internal/db"
	"homedeck/internal/storage"
	"homedeck/models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(logger.Silent))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database))
	return NewRepository(database)
}

func TestEnsureCreatesDefaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	profile, err := repo.Ensure(ctx, "id-1", "one@example.com")
	require.NoError(t, err)
	require.Equal(t, access.LevelUser, profile.AccessLevel)
	require.Equal(t, models.DefaultSettings(), profile.Settings)
	require.Empty(t, profile.Apps)

	require.NoError(t, repo.SetAccessLevel(ctx, "id-1", access.LevelAdmin))
	again, err := repo.Ensure(ctx, "id-1", "other@example.com")
	require.NoError(t, err)
	require.Equal(t, access.LevelAdmin, again.AccessLevel)
	require.Equal(t, "one@example.com", again.Email)
}

func TestEnsureConcurrentCallersShareOneRow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			profile, err := repo.Ensure(ctx, "race", "race@example.com")
			if err == nil && profile.ID != "race" {
				err = fmt.Errorf("unexpected profile %q", profile.ID)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var rows int64
	require.NoError(t, repo.db.Model(&models.Profile{}).Where("id = ?", "race").Count(&rows).Error)
	require.Equal(t, int64(1), rows)
}

func TestGetMissing(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.SaveSettings(context.Background(), "nope", models.DefaultSettings()), ErrNotFound)
}

func TestUpdateDetailsLeavesAccessLevel(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, err := repo.Ensure(ctx, "id-1", "one@example.com")
	require.NoError(t, err)
	require.NoError(t, repo.SetAccessLevel(ctx, "id-1", access.LevelModerator))

	name := "  Ada  "
	profile, err := repo.UpdateDetails(ctx, "id-1", Details{FullName: &name})
	require.NoError(t, err)
	require.Equal(t, "Ada", profile.FullName)
	require.Equal(t, "", profile.Username)
	require.Equal(t, access.LevelModerator, profile.AccessLevel)
}

func TestMergeSettingsKeepsStoredFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, err := repo.Ensure(ctx, "id-1", "one@example.com")
	require.NoError(t, err)

	require.NoError(t, repo.SaveSettings(ctx, "id-1", models.Settings{
		Theme: models.ThemeLight, ColorTheme: models.ColorOcean, Language: models.LanguageEnglish, BlobCount: 7,
	}))
	merged, err := repo.MergeSettings(ctx, "id-1", map[string]any{"blobCount": 2})
	require.NoError(t, err)
	require.Equal(t, models.Settings{
		Theme: models.ThemeLight, ColorTheme: models.ColorOcean, Language: models.LanguageEnglish, BlobCount: 2,
	}, merged)

	stored, err := repo.Get(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, merged, stored.Settings)
}

func TestAppsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, err := repo.Ensure(ctx, "id-1", "one@example.com")
	require.NoError(t, err)

	name := "Router"
	apps := []models.UserApp{
		{ID: "a", AppID: "custom", URL: "http://10.0.0.1", CustomName: &name, Visible: true, Order: 0},
		{ID: "b", AppID: "qr_app", URL: "/qr", Visible: false, Order: 1},
	}
	require.NoError(t, repo.SaveApps(ctx, "id-1", apps))
	loaded, err := repo.LoadApps(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, apps, loaded)
}

func TestSetAccessLevelRejectsUnknown(t *testing.T) {
	repo := newTestRepo(t)
	require.ErrorIs(t, repo.SetAccessLevel(context.Background(), "id-1", access.Level("root")), access.ErrInvalidLevel)
}

func TestListNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	for _, id := range []string{"first", "second"} {
		_, err := repo.Ensure(ctx, id, id+"@example.com")
		require.NoError(t, err)
	}
	require.NoError(t, repo.db.Model(&models.Profile{}).Where("id = ?", "first").
		Update("created_at", gorm.Expr("datetime('now', '-1 day')")).Error)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "second", all[0].ID)
}

func newAvatars(t *testing.T, maxBytes int64) (*Avatars, *Repository, *storage.LocalBucket) {
	t.Helper()
	repo := newTestRepo(t)
	bucket, err := storage.NewLocalBucket(t.TempDir(), "https://deck.example.com/avatars")
	require.NoError(t, err)
	_, err = repo.Ensure(context.Background(), "id-1", "one@example.com")
	require.NoError(t, err)
	return NewAvatars(repo, bucket, maxBytes), repo, bucket
}

func TestReplaceAvatarStoresURL(t *testing.T) {
	avatars, repo, bucket := newAvatars(t, 1024)
	ctx := context.Background()

	url, err := avatars.Replace(ctx, "id-1", "me.PNG", bytes.NewReader(pngHeader), int64(len(pngHeader)))
	require.NoError(t, err)
	require.Equal(t, "https://deck.example.com/avatars/id-1/avatar.png", url)

	data, err := os.ReadFile(filepath.Join(bucket.Dir(), "id-1", "avatar.png"))
	require.NoError(t, err)
	require.Equal(t, pngHeader, data)

	profile, err := repo.Get(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, url, profile.AvatarURL)
}

func TestReplaceAvatarRemovesPreviousExtension(t *testing.T) {
	avatars, _, bucket := newAvatars(t, 1024)
	ctx := context.Background()

	_, err := avatars.Replace(ctx, "id-1", "me.png", bytes.NewReader(pngHeader), int64(len(pngHeader)))
	require.NoError(t, err)
	gif := []byte("GIF89a\x01\x00\x01\x00")
	url, err := avatars.Replace(ctx, "id-1", "me.gif", bytes.NewReader(gif), int64(len(gif)))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(url, "/id-1/avatar.gif"))

	_, err = os.Stat(filepath.Join(bucket.Dir(), "id-1", "avatar.png"))
	require.True(t, os.IsNotExist(err))
}

func TestReplaceAvatarRejectsInput(t *testing.T) {
	avatars, repo, _ := newAvatars(t, 8)
	ctx := context.Background()

	_, err := avatars.Replace(ctx, "id-1", "me.png", bytes.NewReader(pngHeader), int64(len(pngHeader)))
	require.ErrorIs(t, err, ErrAvatarTooLarge)

	text := []byte("hello")
	_, err = avatars.Replace(ctx, "id-1", "me.png", bytes.NewReader(text), int64(len(text)))
	require.ErrorIs(t, err, ErrAvatarType)

	profile, err := repo.Get(ctx, "id-1")
	require.NoError(t, err)
	require.Empty(t, profile.AvatarURL)
}

type failingBucket struct {
	storage.Bucket
	deleted []string
}

func (b *failingBucket) Delete(ctx context.Context, key string) error {
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *failingBucket) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	return errors.New("bucket offline")
}

func (b *failingBucket) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func TestReplaceAvatarUploadFailureKeepsOldURL(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, err := repo.Ensure(ctx, "id-1", "one@example.com")
	require.NoError(t, err)
	require.NoError(t, repo.SetAvatarURL(ctx, "id-1", "https://cdn.example.com/id-1/avatar.jpg"))

	bucket := &failingBucket{}
	_, err = NewAvatars(repo, bucket, 0).Replace(ctx, "id-1", "me.png", bytes.NewReader(pngHeader), int64(len(pngHeader)))
	require.Error(t, err)
	require.Equal(t, []string{"id-1/avatar.png", "id-1/avatar.jpg"}, bucket.deleted)

	profile, err := repo.Get(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/id-1/avatar.jpg", profile.AvatarURL)
}

func TestPurgeRemovesProfileAndAvatar(t *testing.T) {
	avatars, repo, bucket := newAvatars(t, 1024)
	ctx := context.Background()
	_, err := avatars.Replace(ctx, "id-1", "me.png", bytes.NewReader(pngHeader), int64(len(pngHeader)))
	require.NoError(t, err)

	require.NoError(t, Purge(repo, avatars)(ctx, "id-1"))
	_, err = repo.Get(ctx, "id-1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = os.Stat(filepath.Join(bucket.Dir(), "id-1", "avatar.png"))
	require.True(t, os.IsNotExist(err))
}

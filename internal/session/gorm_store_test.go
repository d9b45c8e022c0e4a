package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"homedeck/internal/auth"
	"homedeck/internal/db"
)

func newGormStore(t *testing.T, name string) *GormStore {
	t.Helper()
	database, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), db.GormConfig(logger.Silent))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database))
	return NewGormStore(database)
}

func TestGormStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := newGormStore(t, "gormstore-lifecycle")
	now := time.Now()

	require.NoError(t, store.Commit("tok", []byte("one"), now.Add(time.Hour)))
	data, found, err := store.Find("tok")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("one"), data)

	require.NoError(t, store.Commit("tok", []byte("two"), now.Add(time.Hour)))
	data, _, err = store.Find("tok")
	require.NoError(t, err)
	require.Equal(t, []byte("two"), data)

	require.NoError(t, store.Delete("tok"))
	_, found, err = store.Find("tok")
	require.NoError(t, err)
	require.False(t, found)
}

func TestGormStoreCleanup(t *testing.T) {
	t.Parallel()

	store := newGormStore(t, "gormstore-cleanup")
	now := time.Now()
	require.NoError(t, store.Commit("stale", []byte("x"), now.Add(-time.Minute)))
	require.NoError(t, store.Commit("fresh", []byte("y"), now.Add(time.Hour)))

	_, found, err := store.Find("stale")
	require.NoError(t, err)
	require.False(t, found)

	removed, err := store.Cleanup(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	_, found, err = store.Find("fresh")
	require.NoError(t, err)
	require.True(t, found)
}

func TestGormStoreBacksSessionManager(t *testing.T) {
	t.Parallel()

	sm := scs.New()
	sm.Store = newGormStore(t, "gormstore-manager")
	store := New(sm, Options{})

	login := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, store.Set(r.Context(), auth.Credential{AccessToken: "a", RefreshToken: "r"}))
	}))
	rec := httptest.NewRecorder()
	login.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	var seen *auth.Credential
	read := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = store.Get(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	read.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, seen)
	require.Equal(t, "r", seen.RefreshToken)
}

package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"homedeck/internal/access"
	"homedeck/internal/analytics"
	"homedeck/internal/auth"
	"homedeck/internal/cv"
	"homedeck/internal/db"
	"homedeck/internal/identity"
	"homedeck/internal/prefs"
	"homedeck/internal/profiles"
	"homedeck/internal/session"
	"homedeck/internal/shortcuts"
	"homedeck/internal/storage"
	"homedeck/models"
)

const testPassword = "correct-horse"

type recordingMailer struct {
	resets        []string
	confirmations []string
}

func (m *recordingMailer) SendConfirmation(ctx context.Context, email, link string) error {
	m.confirmations = append(m.confirmations, link)
	return nil
}

func (m *recordingMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	m.resets = append(m.resets, link)
	return nil
}

type testEnv struct {
	t        *testing.T
	db       *gorm.DB
	auth     *auth.Service
	profiles *profiles.Repository
	mailer   *recordingMailer
	handler  http.Handler
	cookies  map[string]*http.Cookie
	saved    chan string
}

// newTestEnv wires every handler dependency against an in-memory database
// and restores the previous configuration when the test ends.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	if err := db.AutoMigrate(database); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	mailer := &recordingMailer{}
	authSvc := auth.NewService(database, auth.NewTokenIssuer("test-secret", time.Hour), mailer, auth.Options{PublicURL: "http://deck.test"})
	repo := profiles.NewRepository(database)
	bucket, err := storage.NewLocalBucket(t.TempDir(), "/avatars")
	if err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}
	avatarStore := profiles.NewAvatars(repo, bucket, 1<<20)
	authSvc.OnAccountDelete(profiles.Purge(repo, avatarStore))

	sm := scs.New()
	store := session.New(sm, session.Options{LegacyCookieName: "homedeck-auth-token"})
	resolver := identity.NewResolver(store, authSvc, repo, nil)

	env := &testEnv{
		t:        t,
		db:       database,
		auth:     authSvc,
		profiles: repo,
		mailer:   mailer,
		cookies:  map[string]*http.Cookie{},
		saved:    make(chan string, 8),
	}
	reconciler := prefs.NewReconciler(func(ctx context.Context, id string, s models.Settings) error {
		err := repo.SaveSettings(ctx, id, s)
		env.saved <- id
		return err
	}, prefs.Options{Debounce: time.Millisecond})
	resolver.OnIdentityChange(func(ctx context.Context, c identity.Change) {
		reconciler.Reset(c.Key)
	})

	deps := Dependencies{
		Database:   database,
		Sessions:   store,
		Auth:       authSvc,
		Identity:   resolver,
		Profiles:   repo,
		Avatars:    avatarStore,
		Shortcuts:  shortcuts.NewManager(repo, shortcuts.DefaultCatalog()),
		Reconciler: reconciler,
		Analytics:  analytics.NewTracker(database),
		CV:         cv.NewLibrary(t.TempDir()),
		PublicURL:  "http://deck.test/",
	}
	Configure(deps)
	t.Cleanup(func() {
		Configure(Dependencies{})
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})

	r := chi.NewRouter()
	r.Get("/", Home)
	r.Post("/contact", Contact)
	r.Get("/cv", DownloadCV)
	r.HandleFunc("/login", Login)
	r.HandleFunc("/signup", Signup)
	r.HandleFunc("/logout", Logout)
	r.HandleFunc("/forgot-password", ForgotPassword)
	r.HandleFunc("/reset-password", ResetPassword)
	r.Get("/auth/callback", AuthCallback)
	r.With(RequireAuthentication).Get("/app", Dashboard)
	r.HandleFunc("/functions/v1/delete-user", DeleteUser)
	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", Catalog)
		r.Post("/preferences", UpdatePreferences)
		r.Post("/track/visit", TrackVisit)
		r.Post("/track/contact", TrackContact)
		r.Group(func(r chi.Router) {
			r.Use(RequireAPIAuthentication)
			r.Get("/profile", GetProfile)
			r.Put("/profile", UpdateProfile)
			r.Delete("/profile", DeleteProfile)
			r.Post("/profile/avatar", UploadAvatar)
			r.Get("/apps", ListApps)
			r.Post("/apps", AddApp)
			r.Put("/apps/order", ReorderApps)
			r.Put("/apps/{appID}", UpdateApp)
			r.Delete("/apps/{appID}", RemoveApp)
			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAccess(access.LevelAdmin))
				r.Get("/profiles", ListProfiles)
				r.Put("/profiles/{profileID}/access-level", SetAccessLevel)
				r.Get("/profiles/{profileID}/apps", ListApps)
				r.Post("/profiles/{profileID}/apps", AddApp)
				r.Get("/analytics", Analytics)
			})
		})
	})

	cookies := prefs.Cookies{}
	env.handler = sm.LoadAndSave(store.Middleware(cookies.Middleware(resolver.Middleware(ReconcilePreferences(r)))))
	return env
}

// do sends req through the middleware chain carrying the cookies collected
// so far, like a browser would.
func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	e.t.Helper()
	for _, c := range e.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(e.cookies, c.Name)
			continue
		}
		e.cookies[c.Name] = c
	}
	return w
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) postForm(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *testEnv) sendJSON(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return e.do(req)
}

func (e *testEnv) createAccount(email string) string {
	e.t.Helper()
	account, err := e.auth.CreateAccount(context.Background(), email, testPassword, true)
	if err != nil {
		e.t.Fatalf("failed to create account: %v", err)
	}
	return account.ID
}

// signIn creates a confirmed account and logs the browser in.
func (e *testEnv) signIn(email string) string {
	e.t.Helper()
	id := e.createAccount(email)
	w := e.postForm("/login", url.Values{"email": {email}, "password": {testPassword}})
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/app" {
		e.t.Fatalf("expected login redirect to /app, got %d %q", w.Code, w.Header().Get("Location"))
	}
	if w := e.get("/app"); w.Code != http.StatusOK {
		e.t.Fatalf("expected dashboard after login, got %d", w.Code)
	}
	return id
}

func (e *testEnv) setLevel(id string, level access.Level) {
	e.t.Helper()
	if err := e.profiles.SetAccessLevel(context.Background(), id, level); err != nil {
		e.t.Fatalf("failed to set access level: %v", err)
	}
}

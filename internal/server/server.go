package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"gorm.io/gorm"

	"homedeck/internal/analytics"
	"homedeck/internal/auth"
	"homedeck/internal/config"
	"homedeck/internal/cv"
	"homedeck/internal/handlers"
	"homedeck/internal/identity"
	applog "homedeck/internal/log"
	"homedeck/internal/prefs"
	"homedeck/internal/profiles"
	"homedeck/internal/session"
	"homedeck/internal/shortcuts"
	"homedeck/internal/storage"
)

const (
	defaultSessionLifetime = 365 * 24 * time.Hour
	defaultCookieName      = "homedeck_session"
	defaultAvatarMaxBytes  = 5 << 20
	sessionCleanupInterval = 5 * time.Minute
)

// Config captures the runtime configuration for the HTTP server.
type Config struct {
	Addr            string
	PublicURL       string
	CORSOrigins     []string
	ShutdownTimeout time.Duration

	Auth        config.AuthConfig
	Preferences config.PreferencesConfig

	Database       *gorm.DB
	Bucket         storage.Bucket
	AvatarMaxBytes int64
	Catalog        *shortcuts.Catalog
	Mailer         auth.Mailer
	CVDir          string
	StaticDir      string
}

// Server wraps an http.Server together with the background loops the
// services need while it runs.
type Server struct {
	config     Config
	httpServer *http.Server
	sessions   *session.GormStore
	reconciler *prefs.Reconciler
	identities *identity.Bus
	limiter    *rateLimiterMap

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a new Server using the provided configuration. Without a
// database the server only answers health checks, static assets and the
// public pages.
func New(cfg Config) (*Server, error) {
	ctx := context.Background()
	applog.Debug(ctx, "initializing server",
		"addr", cfg.Addr,
		"sessionLifetime", cfg.Auth.Session.Lifetime.String(),
		"sessionCookie", cfg.Auth.Session.CookieName,
	)

	sessionCfg := cfg.Auth.Session
	if sessionCfg.Lifetime <= 0 {
		applog.Debug(ctx, "session lifetime not provided, using default")
		sessionCfg.Lifetime = defaultSessionLifetime
	}
	if strings.TrimSpace(sessionCfg.CookieName) == "" {
		applog.Debug(ctx, "session cookie name not provided, using default")
		sessionCfg.CookieName = defaultCookieName
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = sessionCfg.Lifetime
	sessionManager.Cookie.Name = sessionCfg.CookieName
	sessionManager.Cookie.Domain = sessionCfg.CookieDomain
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	sessionManager.Cookie.Secure = sessionCfg.CookieSecure

	srv := &Server{config: cfg}
	if cfg.Database != nil {
		srv.sessions = session.NewGormStore(cfg.Database)
		sessionManager.Store = srv.sessions
	}

	applog.Debug(ctx, "session manager configured",
		"cookieName", sessionCfg.CookieName,
		"cookieDomain", sessionCfg.CookieDomain,
		"cookieSecure", sessionCfg.CookieSecure,
	)

	store := session.New(sessionManager, session.Options{
		LegacyCookieName: sessionCfg.LegacyCookieName,
		CookieDomain:     sessionCfg.CookieDomain,
		CookieSecure:     sessionCfg.CookieSecure,
	})
	cookies := prefs.Cookies{
		Domain: sessionCfg.CookieDomain,
		Secure: sessionCfg.CookieSecure,
		MaxAge: sessionCfg.Lifetime,
	}
	deps := handlers.Dependencies{
		Database:  cfg.Database,
		Sessions:  store,
		Cookies:   cookies,
		CV:        cv.NewLibrary(firstNonEmpty(cfg.CVDir, "content")),
		PublicURL: cfg.PublicURL,
	}

	var avatarDir string
	if cfg.Database != nil {
		dir, err := srv.wireServices(cfg, store, &deps)
		if err != nil {
			return nil, err
		}
		avatarDir = dir
	}
	handlers.Configure(deps)

	applog.Debug(ctx, "handler dependencies configured", "database", cfg.Database != nil)

	if cfg.Auth.RateLimitPerMinute > 0 {
		srv.limiter = newRateLimiterMap(cfg.Auth.RateLimitPerMinute)
	}

	chain := []func(http.Handler) http.Handler{
		sessionManager.LoadAndSave,
		store.Middleware,
		cookies.Middleware,
	}
	if deps.Identity != nil {
		chain = append(chain, deps.Identity.Middleware)
	}
	chain = append(chain, handlers.ReconcilePreferences)

	handler := newRouter(routerOptions{
		session:     chain,
		limiter:     srv.limiter,
		corsOrigins: cfg.CORSOrigins,
		staticDir:   cfg.StaticDir,
		avatarDir:   avatarDir,
	})

	applog.Debug(ctx, "http handler chain prepared")

	srv.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv, nil
}

// wireServices fills deps with the database backed services. The returned
// directory is where a local avatar bucket keeps its files.
func (s *Server) wireServices(cfg Config, store *session.Store, deps *handlers.Dependencies) (string, error) {
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return "", errors.New("server: auth JWT secret must be set")
	}

	bucket := cfg.Bucket
	if bucket == nil {
		local, err := storage.NewLocalBucket("data/avatars", "/avatars")
		if err != nil {
			return "", err
		}
		bucket = local
	}
	var avatarDir string
	if local, ok := bucket.(*storage.LocalBucket); ok {
		avatarDir = local.Dir()
	}

	maxBytes := cfg.AvatarMaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultAvatarMaxBytes
	}

	authSvc := auth.NewService(cfg.Database, auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL), cfg.Mailer, auth.Options{
		RefreshTTL:               cfg.Auth.RefreshTokenTTL,
		RecoveryTTL:              cfg.Auth.RecoveryTTL,
		RequireEmailConfirmation: cfg.Auth.RequireEmailConfirmation,
		PublicURL:                cfg.PublicURL,
	})
	repo := profiles.NewRepository(cfg.Database)
	avatars := profiles.NewAvatars(repo, bucket, maxBytes)
	authSvc.OnAccountDelete(profiles.Purge(repo, avatars))

	resolver := identity.NewResolver(store, authSvc, repo, nil)
	s.identities = resolver.Bus()
	s.reconciler = prefs.NewReconciler(repo.SaveSettings, prefs.Options{
		Debounce:   cfg.Preferences.SaveDebounce,
		ApplyGuard: cfg.Preferences.ApplyGuard,
		StateTTL:   cfg.Preferences.StateTTL,
	})
	reconciler := s.reconciler
	resolver.OnIdentityChange(func(ctx context.Context, c identity.Change) {
		reconciler.Reset(c.Key)
	})

	deps.Auth = authSvc
	deps.Identity = resolver
	deps.Profiles = repo
	deps.Avatars = avatars
	deps.Shortcuts = shortcuts.NewManager(repo, cfg.Catalog)
	deps.Reconciler = reconciler
	deps.Analytics = analytics.NewTracker(cfg.Database)
	return avatarDir, nil
}

// Start launches the background loops and begins serving HTTP traffic
// using the underlying http.Server.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	if s.sessions != nil {
		s.goBackground(func() { s.sessions.RunCleanup(ctx, sessionCleanupInterval) })
	}
	if s.reconciler != nil {
		s.goBackground(func() { s.reconciler.Run(ctx, time.Hour) })
	}
	if s.identities != nil {
		ttl := s.config.Preferences.StateTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		s.goBackground(func() { s.identities.Run(ctx, time.Hour, ttl) })
	}
	if s.limiter != nil {
		s.goBackground(func() { s.limiter.run(ctx) })
	}

	applog.Debug(ctx, "server starting listener", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) goBackground(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Stop gracefully shuts down the HTTP server with a timeout and waits for
// the background loops to exit.
func (s *Server) Stop() error {
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	applog.Debug(ctx, "server initiating graceful shutdown")

	err := s.httpServer.Shutdown(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

// Handler exposes the configured HTTP handler, enabling integration tests.
func (s *Server) Handler() http.Handler {
	applog.Debug(context.Background(), "server handler requested")
	return s.httpServer.Handler
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

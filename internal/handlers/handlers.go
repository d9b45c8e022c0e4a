// Package handlers implements the HTML pages and the JSON API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"gorm.io/gorm"

	"homedeck/internal/access"
	"homedeck/internal/analytics"
	"homedeck/internal/auth"
	"homedeck/internal/cv"
	"homedeck/internal/identity"
	applog "homedeck/internal/log"
	"homedeck/internal/prefs"
	"homedeck/internal/profiles"
	"homedeck/internal/session"
	"homedeck/internal/shortcuts"
	"homedeck/internal/views/layout"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// Dependencies are the services the handlers use. Nil services disable the
// routes that need them.
type Dependencies struct {
	Database   *gorm.DB
	Sessions   *session.Store
	Auth       *auth.Service
	Identity   *identity.Resolver
	Profiles   *profiles.Repository
	Avatars    *profiles.Avatars
	Shortcuts  *shortcuts.Manager
	Reconciler *prefs.Reconciler
	Cookies    prefs.Cookies
	Analytics  *analytics.Tracker
	CV         *cv.Library
	PublicURL  string
}

var (
	database        *gorm.DB
	sessions        *session.Store
	authService     *auth.Service
	resolver        *identity.Resolver
	profileRepo     *profiles.Repository
	avatars         *profiles.Avatars
	shortcutManager *shortcuts.Manager
	reconciler      *prefs.Reconciler
	prefCookies     prefs.Cookies
	tracker         *analytics.Tracker
	cvLibrary       *cv.Library
	publicURL       string
)

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(deps Dependencies) {
	database = deps.Database
	sessions = deps.Sessions
	authService = deps.Auth
	resolver = deps.Identity
	profileRepo = deps.Profiles
	avatars = deps.Avatars
	shortcutManager = deps.Shortcuts
	reconciler = deps.Reconciler
	prefCookies = deps.Cookies
	tracker = deps.Analytics
	cvLibrary = deps.CV
	publicURL = strings.TrimRight(deps.PublicURL, "/")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		applog.Debug(r.Context(), "invalid json body", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, "/login")
}

func redirectToApp(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, "/app")
}

// pageFor builds the layout state of r.
func pageFor(r *http.Request) layout.Page {
	return layout.Page{
		Settings: prefs.FromContext(r.Context()),
		URL:      r.URL,
		SignedIn: identity.FromContext(r.Context()).SignedIn(),
	}
}

func render(w http.ResponseWriter, r *http.Request, status int, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := component.Render(r.Context(), w); err != nil {
		applog.Error(r.Context(), "failed to render component", "path", r.URL.Path, "error", err)
	}
}

func viewerOf(r *http.Request) identity.Viewer {
	return identity.FromContext(r.Context())
}

// ActiveSession returns true when the current request resolved an identity.
func ActiveSession(r *http.Request) bool {
	return viewerOf(r).SignedIn()
}

// RequireAuthentication sends anonymous callers to the login page.
func RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ActiveSession(r) {
			redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAPIAuthentication rejects anonymous API callers and callers whose
// profile could not be loaded.
func RequireAPIAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer := viewerOf(r)
		if !viewer.SignedIn() {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if viewer.Profile == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "profile unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAccess rejects API callers below level.
func RequireAccess(level access.Level) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := viewerOf(r).Principal()
			if !access.HasAccess(principal.Level, level) {
				applog.Debug(r.Context(), "access denied", "identity", principal.ID, "required", level.String())
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, access.ErrForbidden), errors.Is(err, access.ErrSelfChange):
		return http.StatusForbidden
	case errors.Is(err, shortcuts.ErrNotFound), errors.Is(err, profiles.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, access.ErrInvalidLevel), errors.Is(err, access.ErrNoTarget),
		errors.Is(err, shortcuts.ErrInvalidURL), errors.Is(err, shortcuts.ErrUnknownApp),
		errors.Is(err, shortcuts.ErrOrderMismatch), errors.Is(err, profiles.ErrAvatarType):
		return http.StatusBadRequest
	case errors.Is(err, profiles.ErrAvatarTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		applog.Error(r.Context(), "request failed", "op", op, "error", err)
		writeJSONError(w, status, "unable to "+op)
		return
	}
	applog.Debug(r.Context(), "request rejected", "op", op, "error", err)
	writeJSONError(w, status, err.Error())
}

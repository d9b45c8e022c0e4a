// Package session keeps the auth credential of a browser in its cookie
// session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"

	"homedeck/internal/auth"
	applog "homedeck/internal/log"
)

// Session keys.
const (
	keyAccessToken  = "auth:access_token"
	keyRefreshToken = "auth:refresh_token"
	keyExpiresAt    = "auth:expires_at"
	keyContextID    = "auth:context_id"
)

// ErrUnavailable is returned when the request carries no session.
var ErrUnavailable = errors.New("session: no session in context")

// Options configures a Store.
type Options struct {
	LegacyCookieName string
	CookieDomain     string
	CookieSecure     bool
}

// Store reads and writes the credential held in the scs session.
type Store struct {
	sm   *scs.SessionManager
	opts Options
	now  func() time.Time
}

// New returns a Store backed by sm.
func New(sm *scs.SessionManager, opts Options) *Store {
	return &Store{sm: sm, opts: opts, now: time.Now}
}

// Manager exposes the underlying session manager.
func (s *Store) Manager() *scs.SessionManager {
	return s.sm
}

// guard turns the scs panic for a missing session into ErrUnavailable.
func guard(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrUnavailable, r)
	}
}

func (s *Store) read(ctx context.Context) (cred *auth.Credential, err error) {
	defer guard(&err)
	access := s.sm.GetString(ctx, keyAccessToken)
	refresh := s.sm.GetString(ctx, keyRefreshToken)
	if access == "" || refresh == "" {
		return nil, nil
	}
	cred = &auth.Credential{AccessToken: access, RefreshToken: refresh}
	if unix := s.sm.GetInt64(ctx, keyExpiresAt); unix > 0 {
		cred.ExpiresAt = time.Unix(unix, 0).UTC()
	}
	return cred, nil
}

// Get returns the stored credential or nil. A missing session reads as no
// credential.
func (s *Store) Get(ctx context.Context) *auth.Credential {
	cred, err := s.read(ctx)
	if err != nil {
		applog.Debug(ctx, "credential unavailable", "error", err)
		return nil
	}
	return cred
}

// Set stores cred, replacing any previous credential.
func (s *Store) Set(ctx context.Context, cred auth.Credential) (err error) {
	defer guard(&err)
	if !cred.Valid() {
		return fmt.Errorf("session: incomplete credential")
	}
	s.sm.Put(ctx, keyAccessToken, cred.AccessToken)
	s.sm.Put(ctx, keyRefreshToken, cred.RefreshToken)
	if cred.ExpiresAt.IsZero() {
		s.sm.Remove(ctx, keyExpiresAt)
	} else {
		s.sm.Put(ctx, keyExpiresAt, cred.ExpiresAt.Unix())
	}
	return nil
}

// Clear removes the credential.
func (s *Store) Clear(ctx context.Context) (err error) {
	defer guard(&err)
	s.sm.Remove(ctx, keyAccessToken)
	s.sm.Remove(ctx, keyRefreshToken)
	s.sm.Remove(ctx, keyExpiresAt)
	return nil
}

// ContextID returns the stable id of the browser session, creating it on
// first use. It is empty when the request carries no session.
func (s *Store) ContextID(ctx context.Context) (id string) {
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	if id = s.sm.GetString(ctx, keyContextID); id != "" {
		return id
	}
	id = uuid.NewString()
	s.sm.Put(ctx, keyContextID, id)
	return id
}

// Renew rotates the session token. It is called whenever the privilege level
// of the session changes.
func (s *Store) Renew(ctx context.Context) (err error) {
	defer guard(&err)
	return s.sm.RenewToken(ctx)
}

// Destroy ends the session, including its context id.
func (s *Store) Destroy(ctx context.Context) (err error) {
	defer guard(&err)
	return s.sm.Destroy(ctx)
}

type legacyCredential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

func parseLegacy(value string) (*auth.Credential, bool) {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return nil, false
	}
	var legacy legacyCredential
	if err := json.Unmarshal([]byte(decoded), &legacy); err != nil {
		return nil, false
	}
	cred := auth.Credential{AccessToken: legacy.AccessToken, RefreshToken: legacy.RefreshToken}
	if legacy.ExpiresAt > 0 {
		cred.ExpiresAt = time.Unix(legacy.ExpiresAt, 0).UTC()
	}
	if !cred.Valid() {
		return nil, false
	}
	return &cred, true
}

// MigrateLegacy copies a credential from the legacy cookie into the session
// when the session holds none, then expires the legacy cookie. It reports
// whether a credential was copied. Running it again is a no-op.
func (s *Store) MigrateLegacy(w http.ResponseWriter, r *http.Request) bool {
	if s.opts.LegacyCookieName == "" {
		return false
	}
	legacy, err := r.Cookie(s.opts.LegacyCookieName)
	if err != nil {
		return false
	}

	ctx := r.Context()
	migrated := false
	if current, readErr := s.read(ctx); readErr == nil && current == nil {
		if cred, ok := parseLegacy(legacy.Value); ok {
			if err := s.Set(ctx, *cred); err != nil {
				applog.Warn(ctx, "legacy credential migration failed", "error", err)
			} else {
				migrated = true
				applog.Info(ctx, "migrated legacy credential")
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.LegacyCookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.opts.CookieDomain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return migrated
}

// Middleware runs MigrateLegacy on every request. It must be mounted inside
// the session manager's LoadAndSave.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.MigrateLegacy(w, r)
		next.ServeHTTP(w, r)
	})
}

// Package prefs resolves the display preferences for a request and keeps them
// in step with the signed-in profile.
package prefs

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"homedeck/models"
)

// Query parameter names.
const (
	QueryTheme = "theme"
	QueryColor = "color"
	QueryLang  = "lang"
	QueryBlobs = "blobs"
)

// Cookie names.
const (
	CookieTheme = "theme"
	CookieColor = "colorTheme"
	CookieLang  = "language"
	CookieBlobs = "blobCount"
)

// ColorSchemeHint is the client hint carrying the platform light/dark preference.
const ColorSchemeHint = "Sec-CH-Prefers-Color-Scheme"

type ctxKey struct{}

// Cookies writes preference cookies with shared attributes.
type Cookies struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

// PlatformDefault returns the settings used when neither the URL nor a cookie
// supplies a value.
func PlatformDefault(r *http.Request) models.Settings {
	s := models.DefaultSettings()
	if r != nil && strings.EqualFold(strings.TrimSpace(r.Header.Get(ColorSchemeHint)), models.ThemeLight) {
		s.Theme = models.ThemeLight
	}
	return s
}

// Resolve applies the boot precedence for each preference independently:
// a valid query parameter, then a valid cookie, then the platform default.
func Resolve(r *http.Request) models.Settings {
	s := PlatformDefault(r)
	query := r.URL.Query()

	s.Theme = pick(s.Theme, models.ValidTheme, query.Get(QueryTheme), cookieValue(r, CookieTheme))
	s.ColorTheme = pick(s.ColorTheme, models.ValidColorTheme, query.Get(QueryColor), cookieValue(r, CookieColor))
	s.Language = pick(s.Language, models.ValidLanguage,
		models.NormalizeLanguage(query.Get(QueryLang)), models.NormalizeLanguage(cookieValue(r, CookieLang)))

	validBlobs := func(v string) bool {
		n, err := strconv.Atoi(v)
		return err == nil && models.ValidBlobCount(n)
	}
	if v := pick("", validBlobs, strings.TrimSpace(query.Get(QueryBlobs)), strings.TrimSpace(cookieValue(r, CookieBlobs))); v != "" {
		s.BlobCount, _ = strconv.Atoi(v)
	}
	return s
}

func pick(fallback string, valid func(string) bool, candidates ...string) string {
	for _, candidate := range candidates {
		if candidate != "" && valid(candidate) {
			return candidate
		}
	}
	return fallback
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

var queryToCookie = map[string]string{
	QueryTheme: CookieTheme,
	QueryColor: CookieColor,
	QueryLang:  CookieLang,
	QueryBlobs: CookieBlobs,
}

func cookieValues(s models.Settings) map[string]string {
	return map[string]string{
		CookieTheme: s.Theme,
		CookieColor: s.ColorTheme,
		CookieLang:  s.Language,
		CookieBlobs: strconv.Itoa(s.BlobCount),
	}
}

// Commit mirrors s into the preference cookies and returns the request URL
// with its query string updated to reproduce the same state.
func (c Cookies) Commit(w http.ResponseWriter, r *http.Request, s models.Settings) string {
	s = s.Sanitize()
	for name, value := range cookieValues(s) {
		http.SetCookie(w, c.cookie(name, value))
	}
	return ShareURL(r.URL, s)
}

func (c Cookies) cookie(name, value string) *http.Cookie {
	maxAge := c.MaxAge
	if maxAge <= 0 {
		maxAge = 365 * 24 * time.Hour
	}
	return &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(maxAge / time.Second),
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ShareURL returns the path and query of u with the four preference
// parameters set to s. Other query parameters are kept.
func ShareURL(u *url.URL, s models.Settings) string {
	query := u.Query()
	query.Set(QueryTheme, s.Theme)
	query.Set(QueryColor, s.ColorTheme)
	query.Set(QueryLang, s.Language)
	query.Set(QueryBlobs, strconv.Itoa(s.BlobCount))
	out := url.URL{Path: u.Path, RawQuery: query.Encode(), Fragment: u.Fragment}
	return out.String()
}

// Middleware resolves the request's preferences into its context. Values that
// arrived through the query string are persisted as cookies so later visits
// keep them.
func (c Cookies) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		settings := Resolve(r)
		query := r.URL.Query()
		values := cookieValues(settings)
		for param, name := range queryToCookie {
			if query.Get(param) != "" {
				http.SetCookie(w, c.cookie(name, values[name]))
			}
		}
		next.ServeHTTP(w, r.WithContext(WithSettings(r.Context(), settings)))
	})
}

// WithSettings stores s in ctx.
func WithSettings(ctx context.Context, s models.Settings) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the settings resolved for the request, or the defaults.
func FromContext(ctx context.Context) models.Settings {
	if s, ok := ctx.Value(ctxKey{}).(models.Settings); ok {
		return s
	}
	return models.DefaultSettings()
}

// Package layout renders the document shell shared by every page.
package layout

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"homedeck/internal/prefs"
	"homedeck/internal/views/theme"
	"homedeck/models"
)

// Page carries what the shell needs to render around the content.
type Page struct {
	Title    string
	Settings models.Settings
	URL      *url.URL
	SignedIn bool
	Notice   string
}

// Lang is the page language.
func (p Page) Lang() string {
	return p.Settings.Language
}

// T translates key into the page language.
func (p Page) T(key string) string {
	return T(p.Settings.Language, key)
}

// LinkWith returns the current URL with the preferences changed by fn, so a
// plain link can switch a preference.
func (p Page) LinkWith(fn func(*models.Settings)) string {
	u := p.URL
	if u == nil {
		u = &url.URL{Path: "/"}
	}
	next := p.Settings
	fn(&next)
	return prefs.ShareURL(u, next)
}

func bodyWrapperClass(signedIn bool) string {
	if signedIn {
		return "page page-app"
	}
	return "page page-public"
}

func mainClass(hasNotice bool) string {
	if hasNotice {
		return "container main with-notice"
	}
	return "container main"
}

// Blobs renders the decorative background blobs.
func Blobs(count int, palette theme.Palette) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if count <= 0 {
			return nil
		}
		if _, err := io.WriteString(w, `<div class="blobs" aria-hidden="true">`); err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			color := palette.Blobs[i%len(palette.Blobs)]
			if _, err := fmt.Fprintf(w, `<div class="blob blob-dynamic blob-color-%d" style="--blob-color: %s"></div>`, i%4+1, templ.EscapeString(color)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

// Layout wraps content in the document shell.
func Layout(p Page, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		e := templ.EscapeString[string]
		mode := ThemeByID(p.Settings.Theme)
		palette := theme.Resolve(p.Settings.ColorTheme)
		title := p.T("metaTitle")
		if p.Title != "" {
			title = p.Title + " · " + title
		}

		toggleTheme := p.LinkWith(func(s *models.Settings) { s.Theme = Toggled(s.Theme) })
		toggleLang := p.LinkWith(func(s *models.Settings) {
			if s.Language == models.LanguageNorwegian {
				s.Language = models.LanguageEnglish
			} else {
				s.Language = models.LanguageNorwegian
			}
		})

		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="%s" data-theme="%s" data-color-theme="%s"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>%s</title><link rel="stylesheet" href="/assets/css/app.css"><style>:root{--brand:%s;--accent:%s}</style></head>`,
			e(p.Lang()), e(mode.ID), e(palette.Key), e(title), e(palette.Brand), e(palette.Accent)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<body class="%s" data-blob-count="%s"><div class="%s">`,
			e(mode.BodyClass), strconv.Itoa(p.Settings.BlobCount), bodyWrapperClass(p.SignedIn)); err != nil {
			return err
		}
		if err := Blobs(p.Settings.BlobCount, palette).Render(ctx, w); err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w, `<nav aria-label="Primary"><div class="container nav-inner"><a class="brand" href="/">Homedeck</a><div class="nav-links"><a class="theme-toggle" href="%s" title="%s"><i class="%s"></i></a><a class="theme-toggle" href="%s" title="%s"><i class="fa-solid fa-globe"></i></a>`,
			e(toggleTheme), e(p.T("theme")), e(mode.Icon), e(toggleLang), e(p.T("language"))); err != nil {
			return err
		}
		if p.SignedIn {
			_, err := fmt.Fprintf(w, `<a href="/app">%s</a><form method="post" action="/logout" class="inline"><button type="submit">%s</button></form>`, e(p.T("profile")), e(p.T("logout")))
			if err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprintf(w, `<a href="/login">%s</a>`, e(p.T("login"))); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, `</div></div></nav><main class="%s">`, mainClass(p.Notice != "")); err != nil {
			return err
		}
		if p.Notice != "" {
			if _, err := fmt.Fprintf(w, `<div class="notice" role="status">%s</div>`, e(p.Notice)); err != nil {
				return err
			}
		}
		if content != nil {
			if err := content.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</main></div><script src="/assets/js/app.js" defer></script></body></html>`)
		return err
	})
}

// Package components holds small reusable page fragments.
package components

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"homedeck/internal/shortcuts"
	"homedeck/models"
)

func linkState(section, active string) string {
	if section == active {
		return "active"
	}
	return "inactive"
}

// NavLink renders a section link marked active when it matches active.
func NavLink(label, href, section, active string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		e := templ.EscapeString[string]
		_, err := fmt.Fprintf(w, `<a href="%s" data-nav-section="%s" data-state="%s">%s</a>`,
			e(string(templ.URL(href))), e(section), linkState(section, active), e(label))
		return err
	})
}

// StatCard renders a labelled number.
func StatCard(label, value, icon string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		e := templ.EscapeString[string]
		_, err := fmt.Fprintf(w, `<div class="stat-card"><i class="%s"></i><span class="stat-value">%s</span><span class="stat-label">%s</span></div>`,
			e(icon), e(value), e(label))
		return err
	})
}

// Message renders an inline form message. kind is "error" or "success".
func Message(kind, text string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if text == "" {
			return nil
		}
		icon := "fa-solid fa-circle-check"
		if kind == "error" {
			icon = "fa-solid fa-circle-exclamation"
		}
		e := templ.EscapeString[string]
		_, err := fmt.Fprintf(w, `<div class="%s-message" role="alert"><i class="%s"></i> %s</div>`, e(kind), icon, e(text))
		return err
	})
}

// Field renders a labelled input.
func Field(id, inputType, label, value string, required bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		e := templ.EscapeString[string]
		req := ""
		if required {
			req = " required"
		}
		_, err := fmt.Fprintf(w, `<div class="form-group"><label for="%s">%s</label><input type="%s" id="%s" name="%s" value="%s" placeholder="%s"%s></div>`,
			e(id), e(label), e(inputType), e(id), e(id), e(value), e(label), req)
		return err
	})
}

// AppTile renders one shortcut.
func AppTile(info shortcuts.DisplayInfo, app models.UserApp, hiddenLabel string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		e := templ.EscapeString[string]
		icon := fmt.Sprintf(`<i class="%s"></i>`, e(info.Icon))
		if info.IsImage {
			icon = fmt.Sprintf(`<img src="%s" alt="" loading="lazy">`, e(info.Icon))
		}
		class := "app-tile"
		badge := ""
		if !app.Visible {
			class += " app-tile-hidden"
			badge = fmt.Sprintf(`<span class="badge">%s</span>`, e(hiddenLabel))
		}
		href := string(templ.URL(info.Href))
		if info.Href == "" {
			href = "#"
		}
		_, err := fmt.Fprintf(w, `<a class="%s" href="%s" target="_blank" rel="noopener" data-app-id="%s" data-order="%d" style="--app-color: %s"><div class="app-tile-icon">%s</div><span class="app-tile-name">%s</span><span class="app-tile-url">%s</span>%s</a>`,
			class, e(href), e(app.ID), app.Order, e(info.Color), icon, e(info.Name), e(info.Label), badge)
		return err
	})
}

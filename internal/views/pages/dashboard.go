package pages

import (
	"strconv"

	"github.com/a-h/templ"

	"homedeck/internal/access"
	"homedeck/internal/analytics"
	"homedeck/internal/shortcuts"
	"homedeck/internal/views/components"
	"homedeck/internal/views/layout"
	"homedeck/models"
)

// Tile pairs a stored shortcut with its resolved display details.
type Tile struct {
	Info shortcuts.DisplayInfo
	App  models.UserApp
}

// Admin is the admin section of the dashboard. Nil hides it.
type Admin struct {
	Viewer   access.Principal
	Profiles []models.Profile
	Stats    analytics.Stats
}

// DashboardData is everything the signed-in dashboard renders.
type DashboardData struct {
	Hour    int
	Profile *models.Profile
	Tiles   []Tile
	Admin   *Admin
}

// Dashboard renders the signed-in home. A nil profile renders the
// unavailable notice instead of the profile and tiles.
func Dashboard(p layout.Page, d DashboardData) templ.Component {
	p.Title = p.T("yourApps")
	if d.Profile == nil {
		p.Notice = p.T("profileUnavailable")
		return layout.Layout(p, html(`<section class="dashboard"><h1>`, e(p.T(GreetingKey(d.Hour))), `</h1></section>`))
	}
	return layout.Layout(p, html(
		`<section class="dashboard"><header class="dashboard-header"><h1>`,
		e(p.T(GreetingKey(d.Hour))), `, `, e(d.Profile.DisplayName()),
		`</h1><p>`, e(p.T("dashboardSubtitle")), `</p></header>`,
		tiles(p, d.Tiles),
		profileCard(p, *d.Profile),
		adminSection(p, d.Admin),
		`</section>`,
	))
}

func tiles(p layout.Page, list []Tile) templ.Component {
	if len(list) == 0 {
		return html(`<div class="apps-empty"><p>`, e(p.T("noApps")), `</p><a href="#add-app" class="btn btn-primary"><i class="fa-solid fa-plus"></i> `, e(p.T("addApp")), `</a></div>`)
	}
	parts := []any{`<div class="apps-grid" id="apps">`}
	for _, t := range list {
		parts = append(parts, components.AppTile(t.Info, t.App, p.T("hidden")))
	}
	parts = append(parts, `</div>`)
	return html(parts...)
}

func profileCard(p layout.Page, profile models.Profile) templ.Component {
	avatar := `<i class="fa-solid fa-circle-user profile-avatar"></i>`
	if profile.AvatarURL != "" {
		avatar = `<img class="profile-avatar" src="` + e(profile.AvatarURL) + `" alt="">`
	}
	return html(
		`<section class="profile-card" id="profile"><h2>`, e(p.T("profile")), `</h2>`, avatar,
		`<dl><dt>`, e(p.T("email")), `</dt><dd>`, e(DefaultDash(profile.Email)), `</dd>`,
		`<dt>Username</dt><dd>`, e(DefaultDash(profile.Username)), `</dd>`,
		`<dt>`, e(p.T("accessLevel")), `</dt><dd>`, e(profile.AccessLevel.String()), `</dd></dl></section>`,
	)
}

func adminSection(p layout.Page, admin *Admin) templ.Component {
	if admin == nil {
		return nil
	}
	parts := []any{
		`<section class="admin" id="admin"><h2>`, e(p.T("admin")), `</h2><div class="stats-grid">`,
		components.StatCard(p.T("visits"), strconv.FormatInt(admin.Stats.TotalVisits, 10), "fa-solid fa-eye"),
		components.StatCard(p.T("contacts"), strconv.FormatInt(admin.Stats.TotalContacts, 10), "fa-solid fa-envelope"),
		components.StatCard(p.T("downloads"), strconv.FormatInt(admin.Stats.TotalCVDownloads, 10), "fa-solid fa-file-arrow-down"),
		`</div><h3>`, e(p.T("users")), `</h3><table class="users-table"><thead><tr><th>`, e(p.T("email")),
		`</th><th>`, e(p.T("accessLevel")), `</th><th></th></tr></thead><tbody>`,
	}
	for _, profile := range admin.Profiles {
		parts = append(parts, `<tr data-profile-id="`, e(profile.ID), `"><td>`, e(DefaultDash(profile.Email)), `</td><td>`,
			levelCell(admin.Viewer, profile), `</td><td>`, e(formatDate(profile.CreatedAt)), `</td></tr>`)
	}
	parts = append(parts, `</tbody></table></section>`)
	return html(parts...)
}

// levelCell offers the level picker only on rows the viewer may change.
func levelCell(viewer access.Principal, profile models.Profile) string {
	if access.AuthorizeAccessChange(viewer, profile.ID, access.LevelUser) != nil {
		return `<span class="access-level">` + e(profile.AccessLevel.String()) + `</span>`
	}
	return levelSelect(profile)
}

func levelSelect(profile models.Profile) string {
	out := `<select name="access_level" hx-put="/api/admin/profiles/` + e(profile.ID) + `/access-level" hx-trigger="change">`
	for _, level := range access.Levels() {
		selected := ""
		if level == profile.AccessLevel {
			selected = " selected"
		}
		out += `<option value="` + e(level.String()) + `"` + selected + `>` + e(level.String()) + `</option>`
	}
	return out + `</select>`
}

package pages

import (
	"github.com/a-h/templ"

	"homedeck/internal/views/components"
	"homedeck/internal/views/layout"
)

// Home renders the public landing page with the CV link and contact form.
func Home(p layout.Page, f Form) templ.Component {
	p.Title = p.T("metaTitle")
	cta := `<a href="/login" class="btn btn-primary"><i class="fa-solid fa-right-to-bracket"></i> ` + e(p.T("login")) + `</a>`
	if p.SignedIn {
		cta = `<a href="/app" class="btn btn-primary"><i class="fa-solid fa-table-cells"></i> ` + e(p.T("yourApps")) + `</a>`
	}
	return layout.Layout(p, html(
		`<section class="hero"><h1>`, e(p.T("metaTitle")), `</h1><p>`, e(p.T("dashboardSubtitle")), `</p><div class="hero-actions">`,
		cta,
		`<a href="/cv?lang=`, e(p.Lang()), `" class="btn btn-secondary"><i class="fa-solid fa-file-arrow-down"></i> `, e(p.T("downloadCV")), `</a>`,
		`</div></section>`,
		`<section class="contact" id="contact"><h2>`, e(p.T("contacts")), `</h2>`,
		components.Message("error", f.Error),
		components.Message("success", f.Success),
		`<form method="post" action="/contact">`,
		components.Field("name", "text", p.T("name"), "", true),
		components.Field("email", "email", p.T("email"), f.Email, true),
		`<div class="form-group"><label for="message">`, e(p.T("message")), `</label><textarea id="message" name="message" rows="4" required></textarea></div>`,
		`<button type="submit" class="btn btn-primary"><i class="fa-solid fa-paper-plane"></i> `, e(p.T("send")), `</button></form></section>`,
	))
}

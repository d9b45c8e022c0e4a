package pages

import (
	"github.com/a-h/templ"

	"homedeck/internal/views/components"
	"homedeck/internal/views/layout"
)

// Form carries the state of an auth form.
type Form struct {
	Error   string
	Success string
	Email   string
}

func authCard(p layout.Page, icon, title string, f Form, body ...any) templ.Component {
	parts := []any{
		`<div class="login-container"><div class="login-card"><h1><i class="`, e(icon), `"></i> `, e(title), `</h1>`,
		components.Message("error", f.Error),
		components.Message("success", f.Success),
	}
	parts = append(parts, body...)
	parts = append(parts, `<a href="/" class="back-link"><i class="fa-solid fa-arrow-left"></i> `, e(p.T("backToHome")), `</a></div></div>`)
	return html(parts...)
}

// Login renders the sign-in form.
func Login(p layout.Page, f Form) templ.Component {
	p.Title = p.T("login")
	return layout.Layout(p, authCard(p, "fa-solid fa-lock", p.T("login"), f,
		`<form method="post" action="/login">`,
		components.Field("email", "email", p.T("email"), f.Email, true),
		components.Field("password", "password", p.T("password"), "", true),
		`<button type="submit" class="btn btn-primary"><i class="fa-solid fa-right-to-bracket"></i> `, e(p.T("login")), `</button></form>`,
		`<p class="auth-links"><a href="/forgot-password">`, e(p.T("forgotPassword")), `</a> · `,
		e(p.T("noAccount")), ` <a href="/signup">`, e(p.T("register")), `</a></p>`,
	))
}

// Signup renders the registration form.
func Signup(p layout.Page, f Form) templ.Component {
	p.Title = p.T("register")
	return layout.Layout(p, authCard(p, "fa-solid fa-user-plus", p.T("register"), f,
		`<form method="post" action="/signup">`,
		components.Field("email", "email", p.T("email"), f.Email, true),
		components.Field("password", "password", p.T("password"), "", true),
		components.Field("confirm_password", "password", p.T("confirmPassword"), "", true),
		`<button type="submit" class="btn btn-primary"><i class="fa-solid fa-user-plus"></i> `, e(p.T("register")), `</button></form>`,
		`<p class="auth-links">`, e(p.T("haveAccount")), ` <a href="/login">`, e(p.T("login")), `</a></p>`,
	))
}

// ForgotPassword renders the reset request form.
func ForgotPassword(p layout.Page, f Form) templ.Component {
	p.Title = p.T("resetPassword")
	return layout.Layout(p, authCard(p, "fa-solid fa-key", p.T("resetPassword"), f,
		`<form method="post" action="/forgot-password">`,
		components.Field("email", "email", p.T("email"), f.Email, true),
		`<button type="submit" class="btn btn-primary"><i class="fa-solid fa-paper-plane"></i> `, e(p.T("sendResetLink")), `</button></form>`,
	))
}

// ResetPassword renders the new password form of a recovery session.
func ResetPassword(p layout.Page, f Form) templ.Component {
	p.Title = p.T("resetPassword")
	return layout.Layout(p, authCard(p, "fa-solid fa-key", p.T("resetPassword"), f,
		`<form method="post" action="/reset-password">`,
		components.Field("password", "password", p.T("newPassword"), "", true),
		components.Field("confirm_password", "password", p.T("confirmPassword"), "", true),
		`<button type="submit" class="btn btn-primary"><i class="fa-solid fa-check"></i> `, e(p.T("updatePassword")), `</button></form>`,
	))
}

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"homedeck/internal/auth"
	"homedeck/internal/identity"
	applog "homedeck/internal/log"
	"homedeck/internal/views/layout"
	"homedeck/internal/views/pages"
)

const authFailedPath = "/login?error=auth_failed"

var errNoCredential = errors.New("handlers: auth result carries no credential")

// startSession stores the credential of res in the browser session and
// announces the new identity.
func startSession(r *http.Request, res *auth.Result) error {
	if res == nil || res.Credential == nil {
		return errNoCredential
	}
	if sessions == nil {
		return errors.New("handlers: session store not configured")
	}
	ctx := r.Context()
	if err := sessions.Renew(ctx); err != nil {
		return err
	}
	if err := sessions.Set(ctx, *res.Credential); err != nil {
		return err
	}
	if resolver != nil {
		resolver.Notify(ctx, sessions.ContextID(ctx), &identity.Identity{ID: res.User.ID, Email: res.User.Email})
	}
	applog.Info(ctx, "session started", "identity", res.User.ID)
	return nil
}

func authMessage(p layout.Page, err error) string {
	return auth.Classify(err).Message(p.Lang())
}

func authAvailable(w http.ResponseWriter, r *http.Request) bool {
	if authService == nil || sessions == nil {
		applog.Debug(r.Context(), "authentication dependencies unavailable", "hasAuth", authService != nil, "hasSession", sessions != nil)
		http.Error(w, "authentication not available", http.StatusServiceUnavailable)
		return false
	}
	if err := r.ParseForm(); err != nil {
		applog.Debug(r.Context(), "failed to parse form", "error", err)
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return false
	}
	return true
}

// Login renders the sign-in form and processes sign-in submissions.
func Login(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "handling login request", "method", r.Method, "htmx", isHTMX(r))
	p := pageFor(r)

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		if ActiveSession(r) {
			redirectToApp(w, r)
			return
		}
		form := pages.Form{}
		if r.URL.Query().Get("error") == "auth_failed" {
			form.Error = p.T("authFailed")
		}
		render(w, r, http.StatusOK, pages.Login(p, form))
	case http.MethodPost:
		if !authAvailable(w, r) {
			return
		}
		email := strings.TrimSpace(r.PostFormValue("email"))
		password := r.PostFormValue("password")
		if email == "" || password == "" {
			render(w, r, http.StatusOK, pages.Login(p, pages.Form{Error: authMessage(p, auth.ErrInvalidCredentials), Email: email}))
			return
		}

		res, err := authService.SignIn(r.Context(), email, password)
		if err != nil {
			applog.Debug(r.Context(), "sign in failed", "category", string(auth.Classify(err)), "error", err)
			render(w, r, http.StatusOK, pages.Login(p, pages.Form{Error: authMessage(p, err), Email: email}))
			return
		}
		if err := startSession(r, res); err != nil {
			applog.Error(r.Context(), "failed to establish session", "error", err)
			render(w, r, http.StatusOK, pages.Login(p, pages.Form{Error: authMessage(p, err), Email: email}))
			return
		}
		redirectToApp(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Signup renders the registration form and processes new registrations.
func Signup(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "handling signup request", "method", r.Method, "htmx", isHTMX(r))
	p := pageFor(r)

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		if ActiveSession(r) {
			redirectToApp(w, r)
			return
		}
		render(w, r, http.StatusOK, pages.Signup(p, pages.Form{}))
	case http.MethodPost:
		if !authAvailable(w, r) {
			return
		}
		email := strings.TrimSpace(r.PostFormValue("email"))
		password := r.PostFormValue("password")
		if password != r.PostFormValue("confirm_password") {
			render(w, r, http.StatusOK, pages.Signup(p, pages.Form{Error: p.T("passwordMismatch"), Email: email}))
			return
		}

		res, err := authService.SignUp(r.Context(), email, password)
		if err != nil {
			applog.Debug(r.Context(), "sign up failed", "category", string(auth.Classify(err)), "error", err)
			render(w, r, http.StatusOK, pages.Signup(p, pages.Form{Error: authMessage(p, err), Email: email}))
			return
		}
		if res.ConfirmationRequired {
			render(w, r, http.StatusOK, pages.Signup(p, pages.Form{Success: p.T("confirmEmailSent")}))
			return
		}
		if err := startSession(r, res); err != nil {
			applog.Error(r.Context(), "failed to establish session after signup", "error", err)
			render(w, r, http.StatusOK, pages.Signup(p, pages.Form{Error: authMessage(p, err), Email: email}))
			return
		}
		redirectToApp(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Logout revokes the refresh token, announces the sign-out and destroys the
// session.
func Logout(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodPost:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if sessions != nil {
		key := sessions.ContextID(ctx)
		if cred := sessions.Get(ctx); cred != nil && authService != nil {
			if err := authService.SignOut(ctx, cred.RefreshToken); err != nil {
				applog.Warn(ctx, "failed to revoke refresh token", "error", err)
			}
		}
		if resolver != nil {
			resolver.Notify(ctx, key, nil)
		}
		if err := sessions.Destroy(ctx); err != nil {
			applog.Error(ctx, "failed to destroy session", "error", err)
		}
	}
	redirectToLogin(w, r)
}

// ForgotPassword mails a password reset link.
func ForgotPassword(w http.ResponseWriter, r *http.Request) {
	p := pageFor(r)
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		render(w, r, http.StatusOK, pages.ForgotPassword(p, pages.Form{}))
	case http.MethodPost:
		if !authAvailable(w, r) {
			return
		}
		email := strings.TrimSpace(r.PostFormValue("email"))
		if err := authService.RequestPasswordReset(r.Context(), email, publicURL+"/auth/callback"); err != nil {
			applog.Debug(r.Context(), "password reset request failed", "category", string(auth.Classify(err)), "error", err)
			render(w, r, http.StatusOK, pages.ForgotPassword(p, pages.Form{Error: authMessage(p, err), Email: email}))
			return
		}
		render(w, r, http.StatusOK, pages.ForgotPassword(p, pages.Form{Success: p.T("resetEmailSent")}))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ResetPassword sets a new password for the signed-in identity. It is reached
// through a recovery link.
func ResetPassword(w http.ResponseWriter, r *http.Request) {
	p := pageFor(r)
	viewer := viewerOf(r)
	if !viewer.SignedIn() {
		redirect(w, r, authFailedPath)
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		render(w, r, http.StatusOK, pages.ResetPassword(p, pages.Form{}))
	case http.MethodPost:
		if !authAvailable(w, r) {
			return
		}
		password := r.PostFormValue("password")
		if password != r.PostFormValue("confirm_password") {
			render(w, r, http.StatusOK, pages.ResetPassword(p, pages.Form{Error: p.T("passwordMismatch")}))
			return
		}
		if err := authService.UpdatePassword(r.Context(), viewer.Identity.ID, password); err != nil {
			applog.Debug(r.Context(), "password update failed", "category", string(auth.Classify(err)), "error", err)
			render(w, r, http.StatusOK, pages.ResetPassword(p, pages.Form{Error: authMessage(p, err)}))
			return
		}
		applog.Info(r.Context(), "password updated", "identity", viewer.Identity.ID)
		render(w, r, http.StatusOK, pages.ResetPassword(p, pages.Form{Success: p.T("passwordUpdated")}))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// AuthCallback completes email confirmation and recovery links.
func AuthCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if authService == nil {
		redirect(w, r, authFailedPath)
		return
	}

	query := r.URL.Query()
	token := query.Get("token")
	var (
		res    *auth.Result
		err    error
		target string
	)
	switch query.Get("type") {
	case "signup":
		res, err = authService.ConfirmEmail(r.Context(), token)
		target = "/app"
	case "recovery":
		res, err = authService.VerifyRecovery(r.Context(), token)
		target = "/reset-password"
	default:
		err = auth.ErrInvalidToken
	}
	if err == nil {
		err = startSession(r, res)
	}
	if err != nil {
		applog.Warn(r.Context(), "auth callback failed", "type", query.Get("type"), "error", err)
		redirect(w, r, authFailedPath)
		return
	}
	redirect(w, r, target)
}

// RateLimited answers a request rejected by the auth rate limiter.
func RateLimited(w http.ResponseWriter, r *http.Request) {
	p := pageFor(r)
	message := auth.CategoryRateLimited.Message(p.Lang())
	w.Header().Set("Retry-After", "60")
	if wantsJSON(r) {
		writeJSONError(w, http.StatusTooManyRequests, message)
		return
	}
	form := pages.Form{Error: message, Email: strings.TrimSpace(r.PostFormValue("email"))}
	switch r.URL.Path {
	case "/signup":
		render(w, r, http.StatusTooManyRequests, pages.Signup(p, form))
	case "/forgot-password":
		render(w, r, http.StatusTooManyRequests, pages.ForgotPassword(p, form))
	default:
		render(w, r, http.StatusTooManyRequests, pages.Login(p, form))
	}
}

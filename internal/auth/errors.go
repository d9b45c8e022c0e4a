package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Error is a failure reported by the auth backend.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("auth: %s (status %d)", e.Message, e.Status)
}

// Errors returned by Service.
var (
	ErrInvalidCredentials = &Error{Status: http.StatusBadRequest, Message: "Invalid login credentials"}
	ErrEmailNotConfirmed  = &Error{Status: http.StatusBadRequest, Message: "Email not confirmed"}
	ErrInvalidEmail       = &Error{Status: http.StatusBadRequest, Message: "Unable to validate email address: invalid format"}
	ErrWeakPassword       = &Error{Status: http.StatusUnprocessableEntity, Message: fmt.Sprintf("Password should be at least %d characters", MinPasswordLength)}
	ErrEmailTaken         = &Error{Status: http.StatusUnprocessableEntity, Message: "User already registered"}
	ErrRateLimited        = &Error{Status: http.StatusTooManyRequests, Message: "Too many requests"}
	ErrUserNotFound       = &Error{Status: http.StatusNotFound, Message: "User not found"}
	ErrInvalidToken       = &Error{Status: http.StatusUnauthorized, Message: "Invalid token"}
	ErrTokenExpired       = &Error{Status: http.StatusUnauthorized, Message: "Token has expired"}
	ErrInvalidRefresh     = &Error{Status: http.StatusUnauthorized, Message: "Invalid Refresh Token"}
	ErrRecoveryExpired    = &Error{Status: http.StatusUnauthorized, Message: "Email link has expired or was already used"}
	ErrUnavailable        = &Error{Status: http.StatusServiceUnavailable, Message: "Auth backend connection failed"}
)

// Category groups auth failures for user-facing feedback.
type Category string

const (
	CategoryInvalidCredentials Category = "invalid-credentials"
	CategoryEmailNotConfirmed  Category = "email-not-confirmed"
	CategoryInvalidEmail       Category = "invalid-email"
	CategoryWeakPassword       Category = "weak-password"
	CategoryEmailTaken         Category = "email-taken"
	CategoryRateLimited        Category = "rate-limited"
	CategoryUserNotFound       Category = "user-not-found"
	CategoryNetwork            Category = "network-error"
	CategoryGeneric            Category = "generic"
)

// Classify maps err onto a Category. It inspects the message text and status
// of *Error values and falls back to CategoryGeneric.
func Classify(err error) Category {
	if err == nil {
		return CategoryGeneric
	}

	var authErr *Error
	if errors.As(err, &authErr) {
		if category := classifyMessage(strings.ToLower(authErr.Message), authErr.Status); category != "" {
			return category
		}
		return CategoryGeneric
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryNetwork
	}
	if category := classifyMessage(strings.ToLower(err.Error()), 0); category != "" {
		return category
	}
	return CategoryGeneric
}

func classifyMessage(message string, status int) Category {
	switch {
	case strings.Contains(message, "invalid login credentials"), strings.Contains(message, "invalid credentials"):
		return CategoryInvalidCredentials
	case strings.Contains(message, "email not confirmed"):
		return CategoryEmailNotConfirmed
	case strings.Contains(message, "invalid email"), strings.Contains(message, "unable to validate email"), strings.Contains(message, "is invalid"):
		return CategoryInvalidEmail
	case strings.Contains(message, "password") &&
		(strings.Contains(message, "weak") || strings.Contains(message, "short") || strings.Contains(message, "at least")):
		return CategoryWeakPassword
	case strings.Contains(message, "already registered"), strings.Contains(message, "already been registered"), strings.Contains(message, "user already exists"):
		return CategoryEmailTaken
	case strings.Contains(message, "rate limit"), strings.Contains(message, "too many requests"), status == http.StatusTooManyRequests:
		return CategoryRateLimited
	case strings.Contains(message, "user not found"), strings.Contains(message, "no user"):
		return CategoryUserNotFound
	case strings.Contains(message, "network"), strings.Contains(message, "fetch"), strings.Contains(message, "connection"):
		return CategoryNetwork
	}
	return ""
}

var messages = map[Category][2]string{
	CategoryInvalidCredentials: {"Feil e-post eller passord.", "Invalid email or password."},
	CategoryEmailNotConfirmed:  {"E-postadressen er ikke bekreftet. Sjekk innboksen din.", "Email not confirmed. Check your inbox."},
	CategoryInvalidEmail:       {"Ugyldig e-postadresse.", "Invalid email address."},
	CategoryWeakPassword:       {"Passordet må være minst 8 tegn.", "Password must be at least 8 characters."},
	CategoryEmailTaken:         {"E-postadressen er allerede registrert.", "This email is already registered."},
	CategoryRateLimited:        {"For mange forsøk. Vent litt og prøv igjen.", "Too many attempts. Please wait and try again."},
	CategoryUserNotFound:       {"Fant ingen bruker med denne e-postadressen.", "No user found with this email."},
	CategoryNetwork:            {"Nettverksfeil. Sjekk tilkoblingen og prøv igjen.", "Network error. Check your connection and try again."},
	CategoryGeneric:            {"Noe gikk galt. Prøv igjen.", "Something went wrong. Please try again."},
}

// Message returns the user-facing text for c in lang ("no" or "en").
func (c Category) Message(lang string) string {
	pair, ok := messages[c]
	if !ok {
		pair = messages[CategoryGeneric]
	}
	if lang == "en" {
		return pair[1]
	}
	return pair[0]
}

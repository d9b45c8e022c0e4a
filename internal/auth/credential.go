// Package auth implements account sign-up and sign-in, token issuance and the
// classification of authentication failures.
package auth

import "time"

// Credential is the bearer token pair held by a browser session.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token has expired at now.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Valid reports whether both tokens are present.
func (c Credential) Valid() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// User is the authenticated principal behind a credential.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Result is the outcome of an operation that may start a session.
type Result struct {
	User                 User
	Credential           *Credential
	ConfirmationRequired bool
}

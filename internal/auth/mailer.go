package auth

import (
	"context"

	applog "homedeck/internal/log"
)

// Mailer delivers account emails.
type Mailer interface {
	SendConfirmation(ctx context.Context, email, link string) error
	SendPasswordReset(ctx context.Context, email, link string) error
}

// LogMailer writes links to the log instead of sending email.
type LogMailer struct{}

func (LogMailer) SendConfirmation(ctx context.Context, email, link string) error {
	applog.Info(ctx, "confirmation email", "email", email, "link", link)
	return nil
}

func (LogMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	applog.Info(ctx, "password reset email", "email", email, "link", link)
	return nil
}

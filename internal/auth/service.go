package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	applog "homedeck/internal/log"
	"homedeck/models"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// AccountCleanup removes data owned by an account before the account row is
// deleted.
type AccountCleanup func(ctx context.Context, accountID string) error

// Options tunes a Service.
type Options struct {
	RefreshTTL               time.Duration
	RecoveryTTL              time.Duration
	RequireEmailConfirmation bool
	PublicURL                string
}

// Service is the auth backend: accounts, sessions and recovery.
type Service struct {
	db      *gorm.DB
	tokens  *TokenIssuer
	mailer  Mailer
	opts    Options
	cleanup AccountCleanup
	now     func() time.Time
}

// NewService wires a Service. A nil mailer logs links instead.
func NewService(db *gorm.DB, tokens *TokenIssuer, mailer Mailer, opts Options) *Service {
	if mailer == nil {
		mailer = LogMailer{}
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 365 * 24 * time.Hour
	}
	if opts.RecoveryTTL <= 0 {
		opts.RecoveryTTL = time.Hour
	}
	return &Service{db: db, tokens: tokens, mailer: mailer, opts: opts, now: time.Now}
}

// OnAccountDelete registers the cleanup run by DeleteAccount.
func (s *Service) OnAccountDelete(cleanup AccountCleanup) {
	s.cleanup = cleanup
}

// NormalizeEmail validates and lower-cases an email address.
func NormalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed || !strings.Contains(addr.Address, "@") {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

// ValidatePassword checks the password policy.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

func backendErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

// CreateAccount stores a new account. Confirmed accounts can sign in
// immediately.
func (s *Service) CreateAccount(ctx context.Context, email, password string, confirmed bool) (*models.Account, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, backendErr("lookup account", err)
	}
	if existing > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account := &models.Account{ID: uuid.NewString(), Email: email, PasswordHash: string(hash)}
	if confirmed {
		now := s.now().UTC()
		account.ConfirmedAt = &now
	}
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, backendErr("create account", err)
	}
	return account, nil
}

// SignUp registers an account. When email confirmation is required the
// result carries no credential and a confirmation link is mailed.
func (s *Service) SignUp(ctx context.Context, email, password string) (*Result, error) {
	account, err := s.CreateAccount(ctx, email, password, !s.opts.RequireEmailConfirmation)
	if err != nil {
		return nil, err
	}
	user := User{ID: account.ID, Email: account.Email}
	applog.Info(ctx, "account created", "identity", account.ID)

	if !s.opts.RequireEmailConfirmation {
		cred, err := s.issue(ctx, s.db, user)
		if err != nil {
			return nil, err
		}
		return &Result{User: user, Credential: cred}, nil
	}

	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(account).Update("confirmation_hash", hashToken(token)).Error; err != nil {
		return nil, backendErr("store confirmation", err)
	}
	link := s.callbackLink("signup", token)
	if err := s.mailer.SendConfirmation(ctx, account.Email, link); err != nil {
		applog.Error(ctx, "failed to send confirmation email", "identity", account.ID, "error", err)
	}
	return &Result{User: user, ConfirmationRequired: true}, nil
}

func (s *Service) callbackLink(kind, token string) string {
	q := url.Values{}
	q.Set("type", kind)
	q.Set("token", token)
	return strings.TrimRight(s.opts.PublicURL, "/") + "/auth/callback?" + q.Encode()
}

// SignIn exchanges an email and password for a credential.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Result, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	var account models.Account
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, backendErr("lookup account", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !account.Confirmed() {
		return nil, ErrEmailNotConfirmed
	}

	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&account).Update("last_sign_in_at", &now).Error; err != nil {
		applog.Warn(ctx, "failed to record sign in", "identity", account.ID, "error", err)
	}

	user := User{ID: account.ID, Email: account.Email}
	cred, err := s.issue(ctx, s.db, user)
	if err != nil {
		return nil, err
	}
	return &Result{User: user, Credential: cred}, nil
}

// issue mints a credential and stores the refresh token hash through tx.
func (s *Service) issue(ctx context.Context, tx *gorm.DB, user User) (*Credential, error) {
	access, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	refresh, err := randomToken()
	if err != nil {
		return nil, err
	}
	record := &models.RefreshToken{
		AccountID: user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: s.now().Add(s.opts.RefreshTTL).UTC(),
	}
	if err := tx.WithContext(ctx).Create(record).Error; err != nil {
		return nil, backendErr("store refresh token", err)
	}
	return &Credential{AccessToken: access, RefreshToken: refresh, ExpiresAt: expires}, nil
}

// Verify checks an access token.
func (s *Service) Verify(accessToken string) (User, error) {
	return s.tokens.Verify(accessToken)
}

// Refresh rotates a refresh token and returns a new credential. The old
// refresh token can not be used again.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Credential, User, error) {
	if refreshToken == "" {
		return nil, User{}, ErrInvalidRefresh
	}

	var (
		cred *Credential
		user User
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.RefreshToken
		if err := tx.Where("token_hash = ?", hashToken(refreshToken)).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidRefresh
			}
			return backendErr("lookup refresh token", err)
		}
		now := s.now().UTC()
		if !record.Active(now) {
			return ErrInvalidRefresh
		}

		var account models.Account
		if err := tx.First(&account, "id = ?", record.AccountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidRefresh
			}
			return backendErr("lookup account", err)
		}

		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", record.ID).
			Update("revoked_at", &now)
		if res.Error != nil {
			return backendErr("revoke refresh token", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInvalidRefresh
		}

		user = User{ID: account.ID, Email: account.Email}
		var err error
		cred, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, User{}, err
	}
	return cred, user, nil
}

// SetSession adopts an externally supplied token pair. A valid access token
// is kept as is; an expired one is exchanged through the refresh token.
func (s *Service) SetSession(ctx context.Context, accessToken, refreshToken string) (*Credential, User, error) {
	user, err := s.tokens.Verify(accessToken)
	switch {
	case err == nil:
		var record models.RefreshToken
		if err := s.db.WithContext(ctx).Where("token_hash = ?", hashToken(refreshToken)).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, User{}, ErrInvalidRefresh
			}
			return nil, User{}, backendErr("lookup refresh token", err)
		}
		if record.AccountID != user.ID || !record.Active(s.now()) {
			return nil, User{}, ErrInvalidRefresh
		}
		cred := &Credential{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresAt: s.tokens.ExpiresAt(accessToken)}
		return cred, user, nil
	case errors.Is(err, ErrTokenExpired):
		return s.Refresh(ctx, refreshToken)
	default:
		return nil, User{}, err
	}
}

// SignOut revokes refreshToken. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	now := s.now().UTC()
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hashToken(refreshToken)).
		Update("revoked_at", &now).Error
	if err != nil {
		return backendErr("revoke refresh token", err)
	}
	return nil
}

// UpdatePassword replaces the password of accountID.
func (s *Service) UpdatePassword(ctx context.Context, accountID, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", accountID).Updates(map[string]any{
		"password_hash":       string(hash),
		"recovery_hash":       "",
		"recovery_expires_at": nil,
	})
	if res.Error != nil {
		return backendErr("update password", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RequestPasswordReset mails a recovery link pointing at redirectURL. Unknown
// addresses succeed silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email, redirectURL string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	var account models.Account
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Debug(ctx, "password reset for unknown email")
			return nil
		}
		return backendErr("lookup account", err)
	}

	token, err := randomToken()
	if err != nil {
		return err
	}
	expires := s.now().Add(s.opts.RecoveryTTL).UTC()
	if err := s.db.WithContext(ctx).Model(&account).Updates(map[string]any{
		"recovery_hash":       hashToken(token),
		"recovery_expires_at": &expires,
	}).Error; err != nil {
		return backendErr("store recovery token", err)
	}

	link := s.callbackLink("recovery", token)
	if redirectURL != "" {
		if target, err := url.Parse(redirectURL); err == nil {
			q := target.Query()
			q.Set("token", token)
			q.Set("type", "recovery")
			target.RawQuery = q.Encode()
			link = target.String()
		}
	}
	return s.mailer.SendPasswordReset(ctx, account.Email, link)
}

// VerifyRecovery consumes a recovery token and signs the account in so the
// password can be changed.
func (s *Service) VerifyRecovery(ctx context.Context, token string) (*Result, error) {
	var account models.Account
	if token == "" {
		return nil, ErrRecoveryExpired
	}
	if err := s.db.WithContext(ctx).Where("recovery_hash = ?", hashToken(token)).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecoveryExpired
		}
		return nil, backendErr("lookup recovery token", err)
	}
	if account.RecoveryExpiresAt == nil || !s.now().Before(*account.RecoveryExpiresAt) {
		return nil, ErrRecoveryExpired
	}
	if err := s.db.WithContext(ctx).Model(&account).Updates(map[string]any{
		"recovery_hash":       "",
		"recovery_expires_at": nil,
	}).Error; err != nil {
		return nil, backendErr("clear recovery token", err)
	}
	return s.startSession(ctx, account)
}

// ConfirmEmail consumes a confirmation token and signs the account in.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (*Result, error) {
	var account models.Account
	if token == "" {
		return nil, ErrRecoveryExpired
	}
	if err := s.db.WithContext(ctx).Where("confirmation_hash = ?", hashToken(token)).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecoveryExpired
		}
		return nil, backendErr("lookup confirmation token", err)
	}
	now := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&account).Updates(map[string]any{
		"confirmation_hash": "",
		"confirmed_at":      &now,
	}).Error; err != nil {
		return nil, backendErr("confirm account", err)
	}
	return s.startSession(ctx, account)
}

func (s *Service) startSession(ctx context.Context, account models.Account) (*Result, error) {
	user := User{ID: account.ID, Email: account.Email}
	cred, err := s.issue(ctx, s.db, user)
	if err != nil {
		return nil, err
	}
	return &Result{User: user, Credential: cred}, nil
}

// FindAccount looks an account up by email.
func (s *Service) FindAccount(ctx context.Context, email string) (*models.Account, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	var account models.Account
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, backendErr("lookup account", err)
	}
	return &account, nil
}

// DeleteAccount runs the registered cleanup and then removes the account and
// its refresh tokens.
func (s *Service) DeleteAccount(ctx context.Context, accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return ErrUserNotFound
	}
	if s.cleanup != nil {
		if err := s.cleanup(ctx, accountID); err != nil {
			return fmt.Errorf("delete account data: %w", err)
		}
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", accountID).Delete(&models.RefreshToken{}).Error; err != nil {
			return backendErr("delete refresh tokens", err)
		}
		res := tx.Where("id = ?", accountID).Delete(&models.Account{})
		if res.Error != nil {
			return backendErr("delete account", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	applog.Info(ctx, "account deleted", "identity", accountID)
	return nil
}

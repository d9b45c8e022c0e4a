package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are carried by access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer whose tokens live for ttl.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs an access token for user.
func (t *TokenIssuer) Issue(user User) (string, time.Time, error) {
	now := t.now()
	expires := jwt.NewNumericDate(now.Add(t.ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: expires,
		},
		Email: user.Email,
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expires.Time, nil
}

// Verify parses an access token and returns its user. Expired tokens yield
// ErrTokenExpired; anything else unparsable yields ErrInvalidToken.
func (t *TokenIssuer) Verify(token string) (User, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return User{ID: claims.Subject, Email: claims.Email}, ErrTokenExpired
		}
		return User{}, ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject == "" {
		return User{}, ErrInvalidToken
	}
	return User{ID: claims.Subject, Email: claims.Email}, nil
}

// ExpiresAt reads the expiry of token without verifying it.
func (t *TokenIssuer) ExpiresAt(token string) time.Time {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

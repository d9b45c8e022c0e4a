package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
)

// Config captures the runtime configuration for the application.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Logging     LoggingConfig
	Auth        AuthConfig
	Storage     StorageConfig
	Preferences PreferencesConfig
	Catalog     CatalogConfig
	CV          CVConfig
}

// ServerConfig configures the HTTP server runtime behavior.
type ServerConfig struct {
	Addr            string
	PublicURL       string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// DatabaseConfig contains the database connection settings.
type DatabaseConfig struct {
	URL             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	UseMock         bool
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level string
}

// SessionConfig controls the cookie session that carries the credential.
type SessionConfig struct {
	Lifetime         time.Duration
	CookieName       string
	CookieDomain     string
	CookieSecure     bool
	LegacyCookieName string
}

// AuthConfig controls token issuance and the auth endpoints.
type AuthConfig struct {
	Session                  SessionConfig
	JWTSecret                string
	JWTSecretGenerated       bool
	AccessTokenTTL           time.Duration
	RefreshTokenTTL          time.Duration
	RecoveryTTL              time.Duration
	RequireEmailConfirmation bool
	RateLimitPerMinute       int
}

// S3Config addresses an S3-compatible bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// StorageConfig selects where avatars are stored.
type StorageConfig struct {
	Backend        string
	LocalDir       string
	PublicBaseURL  string
	S3             S3Config
	AvatarMaxBytes int64
}

// PreferencesConfig tunes the preference reconciler.
type PreferencesConfig struct {
	SaveDebounce time.Duration
	ApplyGuard   time.Duration
	StateTTL     time.Duration
}

// CatalogConfig points at an optional catalog extension file.
type CatalogConfig struct {
	File string
}

// CVConfig points at the directory holding CV_<lang>.pdf documents.
type CVConfig struct {
	Dir string
}

const defaultAvatarMaxSize = "5MB"

// Load inspects the environment and builds a Config value.
func Load() (Config, error) {
	cfg := Config{}

	publicURL := strings.TrimRight(firstNonEmpty(os.Getenv("PUBLIC_URL"), "http://localhost:8080"), "/")
	cfg.Server = ServerConfig{
		Addr: firstNonEmpty(
			os.Getenv("SERVER_ADDR"),
			os.Getenv("ADDR"),
			":8080",
		),
		PublicURL:       publicURL,
		CORSOrigins:     splitList(firstNonEmpty(os.Getenv("CORS_ALLOWED_ORIGINS"), publicURL)),
		ShutdownTimeout: parseDurationWithDefault(os.Getenv("SERVER_SHUTDOWN_TIMEOUT"), 10*time.Second),
	}

	cfg.Database = DatabaseConfig{
		URL: firstNonEmpty(
			os.Getenv("DATABASE_URL"),
			os.Getenv("DB_URL"),
			"",
		),
		MaxIdleConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_IDLE_CONNS"), 5),
		MaxOpenConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_OPEN_CONNS"), 25),
		ConnMaxLifetime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_LIFETIME"), time.Hour),
		ConnMaxIdleTime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_IDLE_TIME"), 15*time.Minute),
		UseMock:         parseBoolWithDefault(os.Getenv("DATABASE_USE_MOCK"), false),
	}

	cfg.Logging = LoggingConfig{
		Level: firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
	}

	cfg.Auth = AuthConfig{
		Session: SessionConfig{
			Lifetime:         parseDurationWithDefault(os.Getenv("SESSION_LIFETIME"), 365*24*time.Hour),
			CookieName:       firstNonEmpty(os.Getenv("SESSION_COOKIE_NAME"), "homedeck_session"),
			CookieDomain:     strings.TrimSpace(os.Getenv("SESSION_COOKIE_DOMAIN")),
			CookieSecure:     parseBoolWithDefault(os.Getenv("SESSION_COOKIE_SECURE"), strings.HasPrefix(publicURL, "https://")),
			LegacyCookieName: firstNonEmpty(os.Getenv("SESSION_LEGACY_COOKIE_NAME"), "homedeck-auth-token"),
		},
		JWTSecret:                strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET")),
		AccessTokenTTL:           parseDurationWithDefault(os.Getenv("AUTH_ACCESS_TOKEN_TTL"), time.Hour),
		RefreshTokenTTL:          parseDurationWithDefault(os.Getenv("AUTH_REFRESH_TOKEN_TTL"), 365*24*time.Hour),
		RecoveryTTL:              parseDurationWithDefault(os.Getenv("AUTH_RECOVERY_TTL"), time.Hour),
		RequireEmailConfirmation: parseBoolWithDefault(os.Getenv("AUTH_REQUIRE_EMAIL_CONFIRMATION"), false),
		RateLimitPerMinute:       parseIntWithDefault(os.Getenv("AUTH_RATE_LIMIT_PER_MINUTE"), 10),
	}
	if cfg.Auth.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return Config{}, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWTSecret = secret
		cfg.Auth.JWTSecretGenerated = true
	}

	avatarMax, err := units.RAMInBytes(firstNonEmpty(os.Getenv("STORAGE_AVATAR_MAX_SIZE"), defaultAvatarMaxSize))
	if err != nil {
		return Config{}, fmt.Errorf("parse STORAGE_AVATAR_MAX_SIZE: %w", err)
	}
	cfg.Storage = StorageConfig{
		Backend:       strings.ToLower(strings.TrimSpace(firstNonEmpty(os.Getenv("STORAGE_BACKEND"), "local"))),
		LocalDir:      firstNonEmpty(os.Getenv("STORAGE_LOCAL_DIR"), "data/avatars"),
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_PUBLIC_BASE_URL")), "/"),
		S3: S3Config{
			Bucket:          strings.TrimSpace(os.Getenv("S3_BUCKET")),
			Region:          firstNonEmpty(os.Getenv("S3_REGION"), "us-east-1"),
			Endpoint:        strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			AccessKeyID:     strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
			SecretAccessKey: strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
			UsePathStyle:    parseBoolWithDefault(os.Getenv("S3_USE_PATH_STYLE"), false),
		},
		AvatarMaxBytes: avatarMax,
	}

	cfg.Preferences = PreferencesConfig{
		SaveDebounce: parseDurationWithDefault(os.Getenv("PREFERENCES_SAVE_DEBOUNCE"), 500*time.Millisecond),
		ApplyGuard:   parseDurationWithDefault(os.Getenv("PREFERENCES_APPLY_GUARD"), 100*time.Millisecond),
		StateTTL:     parseDurationWithDefault(os.Getenv("PREFERENCES_STATE_TTL"), 24*time.Hour),
	}

	cfg.Catalog = CatalogConfig{File: strings.TrimSpace(os.Getenv("CATALOG_FILE"))}
	cfg.CV = CVConfig{Dir: firstNonEmpty(os.Getenv("CV_DIR"), "content")}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return Config{}, fmt.Errorf("server address must not be empty")
	}
	switch cfg.Storage.Backend {
	case "local":
		if cfg.Storage.PublicBaseURL == "" {
			cfg.Storage.PublicBaseURL = publicURL + "/avatars"
		}
	case "s3":
		if cfg.Storage.S3.Bucket == "" {
			return Config{}, fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return Config{}, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func parseIntWithDefault(value string, def int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func parseDurationWithDefault(value string, def time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func parseBoolWithDefault(value string, def bool) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

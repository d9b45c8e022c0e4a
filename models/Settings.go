package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Supported light/dark modes.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Supported accent palettes.
const (
	ColorAurora   = "aurora"
	ColorSunset   = "sunset"
	ColorOcean    = "ocean"
	ColorForest   = "forest"
	ColorEmber    = "ember"
	ColorLavender = "lavender"
	ColorMidnight = "midnight"
	ColorRose     = "rose"
)

// Supported interface languages.
const (
	LanguageNorwegian = "no"
	LanguageEnglish   = "en"
)

// Decorative blob bounds.
const (
	MinBlobCount = 0
	MaxBlobCount = 10
)

var (
	themes      = []string{ThemeDark, ThemeLight}
	colorThemes = []string{ColorAurora, ColorSunset, ColorOcean, ColorForest, ColorEmber, ColorLavender, ColorMidnight, ColorRose}
	languages   = []string{LanguageNorwegian, LanguageEnglish}
)

// Settings are the four display preferences stored on a profile and mirrored
// in the browser. Every Settings value handed out by this package is total and
// valid.
type Settings struct {
	Theme      string `json:"theme" mapstructure:"theme"`
	ColorTheme string `json:"colorTheme" mapstructure:"colorTheme"`
	Language   string `json:"language" mapstructure:"language"`
	BlobCount  int    `json:"blobCount" mapstructure:"blobCount"`
}

// DefaultSettings returns the preferences assigned to new profiles.
func DefaultSettings() Settings {
	return Settings{
		Theme:      ThemeDark,
		ColorTheme: ColorAurora,
		Language:   LanguageNorwegian,
		BlobCount:  3,
	}
}

// ColorThemes lists the accent palettes in display order.
func ColorThemes() []string {
	out := make([]string, len(colorThemes))
	copy(out, colorThemes)
	return out
}

// ValidTheme reports whether value is a supported light/dark mode.
func ValidTheme(value string) bool { return contains(themes, value) }

// ValidColorTheme reports whether value is a supported palette.
func ValidColorTheme(value string) bool { return contains(colorThemes, value) }

// ValidLanguage reports whether value is a supported language.
func ValidLanguage(value string) bool { return contains(languages, value) }

// ValidBlobCount reports whether n is within the decorative blob bounds.
func ValidBlobCount(n int) bool { return n >= MinBlobCount && n <= MaxBlobCount }

// NormalizeLanguage maps user input onto a supported language code. "nb" is
// accepted as Norwegian. The empty string is returned for unsupported input.
func NormalizeLanguage(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "nb" {
		return LanguageNorwegian
	}
	if ValidLanguage(v) {
		return v
	}
	return ""
}

// Valid reports whether every field holds a supported value.
func (s Settings) Valid() bool {
	return ValidTheme(s.Theme) && ValidColorTheme(s.ColorTheme) && ValidLanguage(s.Language) && ValidBlobCount(s.BlobCount)
}

// Merge overlays the valid fields of partial onto s. Each key is decoded on
// its own so one malformed field does not discard the others.
func (s Settings) Merge(partial map[string]any) Settings {
	out := s
	if v, ok := decodeField(partial, "theme"); ok && ValidTheme(v) {
		out.Theme = v
	}
	if v, ok := decodeField(partial, "colorTheme"); ok && ValidColorTheme(v) {
		out.ColorTheme = v
	}
	if v, ok := decodeField(partial, "language"); ok {
		if lang := NormalizeLanguage(v); lang != "" {
			out.Language = lang
		}
	}
	if v, ok := decodeField(partial, "blobCount"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && ValidBlobCount(n) {
			out.BlobCount = n
		}
	}
	return out
}

func decodeField(partial map[string]any, key string) (string, bool) {
	raw, ok := partial[key]
	if !ok || raw == nil {
		return "", false
	}
	var value string
	if err := mapstructure.WeakDecode(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

// MergeSettings decodes a loosely typed settings document over the defaults.
// Missing, mistyped and out-of-range fields fall back to their default.
func MergeSettings(raw map[string]any) Settings {
	return DefaultSettings().Merge(raw)
}

// Sanitize replaces invalid fields with their defaults.
func (s Settings) Sanitize() Settings {
	def := DefaultSettings()
	if !ValidTheme(s.Theme) {
		s.Theme = def.Theme
	}
	if !ValidColorTheme(s.ColorTheme) {
		s.ColorTheme = def.ColorTheme
	}
	if lang := NormalizeLanguage(s.Language); lang != "" {
		s.Language = lang
	} else {
		s.Language = def.Language
	}
	if !ValidBlobCount(s.BlobCount) {
		s.BlobCount = def.BlobCount
	}
	return s
}

// Scan implements sql.Scanner. Unreadable documents yield the defaults.
func (s *Settings) Scan(value any) error {
	var payload []byte
	switch v := value.(type) {
	case nil:
		*s = DefaultSettings()
		return nil
	case []byte:
		payload = v
	case string:
		payload = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan %T into Settings", value)
	}

	raw := map[string]any{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &raw); err != nil {
			raw = map[string]any{}
		}
	}
	*s = MergeSettings(raw)
	return nil
}

// Value implements driver.Valuer.
func (s Settings) Value() (driver.Value, error) {
	payload, err := json.Marshal(s.Sanitize())
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

func contains(values []string, candidate string) bool {
	for _, v := range values {
		if v == candidate {
			return true
		}
	}
	return false
}

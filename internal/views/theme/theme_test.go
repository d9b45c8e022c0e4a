package theme

import (
	"testing"

	"homedeck/models"
)

func TestEveryColorThemeHasPalette(t *testing.T) {
	for _, key := range models.ColorThemes() {
		if Resolve(key).Key != key {
			t.Fatalf("missing palette for %q", key)
		}
	}
	if got := len(Options()); got != len(models.ColorThemes()) {
		t.Fatalf("expected %d options, got %d", len(models.ColorThemes()), got)
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	if got := Resolve(" unknown ").Key; got != DefaultKey {
		t.Fatalf("expected fallback %q, got %q", DefaultKey, got)
	}
	if got := Resolve(" OCEAN ").Key; got != models.ColorOcean {
		t.Fatalf("expected case-insensitive lookup, got %q", got)
	}
}

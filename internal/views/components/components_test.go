package components

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"homedeck/internal/shortcuts"
	"homedeck/models"
)

func TestLinkState(t *testing.T) {
	if got := linkState("apps", "apps"); got != "active" {
		t.Fatalf("expected active state when sections match, got %q", got)
	}
	if got := linkState("admin", "apps"); got != "inactive" {
		t.Fatalf("expected inactive state when sections differ, got %q", got)
	}
}

func TestStatCardRendersValues(t *testing.T) {
	var buf bytes.Buffer
	if err := StatCard("Visits", "12", "fa-solid fa-eye").Render(context.Background(), &buf); err != nil {
		t.Fatalf("render stat card: %v", err)
	}
	for _, token := range []string{"Visits", "12", "fa-eye"} {
		if !strings.Contains(buf.String(), token) {
			t.Fatalf("expected output to contain %q: %s", token, buf.String())
		}
	}
}

func TestMessageEscapesAndSkipsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Message("error", "").Render(context.Background(), &buf); err != nil {
		t.Fatalf("render empty message: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output for empty message, got %q", buf.String())
	}
	if err := Message("error", "<b>bad</b>").Render(context.Background(), &buf); err != nil {
		t.Fatalf("render message: %v", err)
	}
	if strings.Contains(buf.String(), "<b>") || !strings.Contains(buf.String(), "error-message") {
		t.Fatalf("expected escaped error message: %s", buf.String())
	}
}

func TestNavLinkRendersActiveSection(t *testing.T) {
	var buf bytes.Buffer
	if err := NavLink("Apps", "/app", "apps", "apps").Render(context.Background(), &buf); err != nil {
		t.Fatalf("render nav link: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `data-state="active"`) || !strings.Contains(out, `data-nav-section="apps"`) {
		t.Fatalf("expected active nav attributes: %s", out)
	}
}

func TestAppTileMarksHiddenEntries(t *testing.T) {
	cat := shortcuts.DefaultCatalog()
	app := models.UserApp{ID: "a1", AppID: "jellyfin", URL: "jellyfin.local:8096", Visible: false, Order: 3}

	var buf bytes.Buffer
	if err := AppTile(cat.Display(app), app, "Hidden").Render(context.Background(), &buf); err != nil {
		t.Fatalf("render tile: %v", err)
	}
	out := buf.String()
	for _, token := range []string{"app-tile-hidden", "Hidden", "http://jellyfin.local:8096", "Jellyfin", `data-order="3"`, "<img"} {
		if !strings.Contains(out, token) {
			t.Fatalf("expected %q in tile: %s", token, out)
		}
	}
}

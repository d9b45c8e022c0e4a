package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"homedeck/internal/access"
	"homedeck/internal/analytics"
	"homedeck/internal/prefs"
	"homedeck/models"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestAPIRequiresSignIn(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/profile", "/api/apps", "/api/admin/profiles"} {
		if w := env.get(path); w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, w.Code)
		}
	}
}

func TestShortcutLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.signIn("ola@example.com")

	w := env.sendJSON(http.MethodPost, "/api/apps", `{"appId":"custom","url":"wiki.lan","customName":"Wiki"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var first appResponse
	decodeBody(t, w, &first)
	if first.ID == "" || first.Order != 0 || !first.Visible || first.Display.Name != "Wiki" {
		t.Fatalf("unexpected created entry %+v", first)
	}

	w = env.sendJSON(http.MethodPost, "/api/apps", `{"appId":"custom","url":"grafana.lan:3000"}`)
	var second appResponse
	decodeBody(t, w, &second)
	if second.Order != 1 || second.CustomName == nil || *second.CustomName != "Custom Link" {
		t.Fatalf("unexpected second entry %+v", second)
	}

	if w := env.sendJSON(http.MethodPost, "/api/apps", `{"appId":"custom","url":"not a url"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected invalid url to be rejected, got %d", w.Code)
	}

	w = env.sendJSON(http.MethodPut, "/api/apps/"+first.ID, `{"visible":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected update to succeed, got %d: %s", w.Code, w.Body.String())
	}
	var updated appResponse
	decodeBody(t, w, &updated)
	if updated.Visible || updated.URL != "wiki.lan" || *updated.CustomName != "Wiki" {
		t.Fatalf("update must keep unspecified fields: %+v", updated)
	}

	if w := env.sendJSON(http.MethodPut, "/api/apps/missing", `{"visible":true}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown entry, got %d", w.Code)
	}

	w = env.sendJSON(http.MethodPut, "/api/apps/order", `{"ids":["`+second.ID+`","`+first.ID+`"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected reorder to succeed, got %d: %s", w.Code, w.Body.String())
	}
	var reordered []appResponse
	decodeBody(t, w, &reordered)
	if reordered[0].ID != second.ID || reordered[0].Order != 0 || reordered[1].Order != 1 {
		t.Fatalf("unexpected order %+v", reordered)
	}

	if w := env.sendJSON(http.MethodPut, "/api/apps/order", `{"ids":["`+first.ID+`"]}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected partial reorder to be rejected, got %d", w.Code)
	}

	if w := env.sendJSON(http.MethodDelete, "/api/apps/"+second.ID, ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	var remaining []appResponse
	decodeBody(t, env.get("/api/apps"), &remaining)
	if len(remaining) != 1 || remaining[0].ID != first.ID || remaining[0].Order != 0 {
		t.Fatalf("expected dense order after removal, got %+v", remaining)
	}

	dashboard := env.get("/app").Body.String()
	if !strings.Contains(dashboard, `data-app-id="`+first.ID+`"`) {
		t.Fatal("expected tile on the dashboard")
	}
}

func TestCatalogExcludesAppsAlreadyAdded(t *testing.T) {
	env := newTestEnv(t)
	env.signIn("ola@example.com")

	var before catalogResponse
	decodeBody(t, env.get("/api/catalog"), &before)
	if len(before.Apps) == 0 || len(before.Available) != len(before.Apps) {
		t.Fatalf("expected every app to be available, got %d of %d", len(before.Available), len(before.Apps))
	}

	var target string
	for _, app := range before.Apps {
		if !app.IsCustom {
			target = app.ID
			break
		}
	}
	if w := env.sendJSON(http.MethodPost, "/api/apps", `{"appId":"`+target+`","url":"http://host.lan:8080"}`); w.Code != http.StatusCreated {
		t.Fatalf("expected add to succeed, got %d: %s", w.Code, w.Body.String())
	}

	var after catalogResponse
	decodeBody(t, env.get("/api/catalog"), &after)
	if len(after.Available) != len(before.Available)-1 {
		t.Fatalf("expected %s to be unavailable", target)
	}
	var editing catalogResponse
	decodeBody(t, env.get("/api/catalog?editing="+target), &editing)
	if len(editing.Available) != len(before.Available) {
		t.Fatal("expected the edited app to stay available")
	}
}

func TestUpdateProfileIgnoresAccessLevel(t *testing.T) {
	env := newTestEnv(t)
	id := env.signIn("ola@example.com")

	w := env.sendJSON(http.MethodPut, "/api/profile", `{"full_name":"Ola Nordmann","access_level":"owner"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	profile, err := env.profiles.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to load profile: %v", err)
	}
	if profile.FullName != "Ola Nordmann" || profile.AccessLevel != access.LevelUser {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestUploadAvatar(t *testing.T) {
	env := newTestEnv(t)
	id := env.signIn("ola@example.com")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("avatar", "me.png")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	part.Write(append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	profile, _ := env.profiles.Get(context.Background(), id)
	if profile.AvatarURL != "/avatars/"+id+"/avatar.png" {
		t.Fatalf("unexpected avatar url %q", profile.AvatarURL)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	id := env.signIn("ola@example.com")

	if w := env.get("/api/admin/profiles"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for users, got %d", w.Code)
	}

	env.setLevel(id, access.LevelAdmin)
	w := env.get("/api/admin/profiles")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admins, got %d", w.Code)
	}
	var list []models.Profile
	decodeBody(t, w, &list)
	if len(list) != 1 {
		t.Fatalf("expected one profile, got %d", len(list))
	}

	var stats analytics.Stats
	decodeBody(t, env.get("/api/admin/analytics"), &stats)
	if stats.RecentVisits == nil {
		t.Fatal("expected empty recent visits rather than null")
	}
	if !strings.Contains(env.get("/app").Body.String(), `id="admin"`) {
		t.Fatal("expected admin section on the dashboard")
	}
}

func TestAdminEditsAnotherProfilesShortcuts(t *testing.T) {
	env := newTestEnv(t)
	other := env.createAccount("kari@example.com")
	if _, err := env.profiles.Ensure(context.Background(), other, "kari@example.com"); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	admin := env.signIn("ola@example.com")
	env.setLevel(admin, access.LevelAdmin)

	w := env.sendJSON(http.MethodPost, "/api/admin/profiles/"+other+"/apps", `{"appId":"custom","url":"nas.lan"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	apps, _ := env.profiles.LoadApps(context.Background(), other)
	if len(apps) != 1 {
		t.Fatalf("expected entry on the target profile, got %d", len(apps))
	}
	own, _ := env.profiles.LoadApps(context.Background(), admin)
	if len(own) != 0 {
		t.Fatal("admin's own list must not change")
	}
}

func TestSetAccessLevelOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	other := env.createAccount("kari@example.com")
	if _, err := env.profiles.Ensure(context.Background(), other, "kari@example.com"); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	caller := env.signIn("ola@example.com")
	env.setLevel(caller, access.LevelAdmin)

	path := "/api/admin/profiles/" + other + "/access-level"
	if w := env.sendJSON(http.MethodPut, path, `{"access_level":"moderator"}`); w.Code != http.StatusForbidden {
		t.Fatalf("expected admins to be refused, got %d", w.Code)
	}

	env.setLevel(caller, access.LevelOwner)
	if w := env.sendJSON(http.MethodPut, path, `{"access_level":"moderator"}`); w.Code != http.StatusOK {
		t.Fatalf("expected owner change to succeed, got %d: %s", w.Code, w.Body.String())
	}
	profile, _ := env.profiles.Get(context.Background(), other)
	if profile.AccessLevel != access.LevelModerator {
		t.Fatalf("expected moderator, got %s", profile.AccessLevel)
	}

	if w := env.sendJSON(http.MethodPut, "/api/admin/profiles/"+caller+"/access-level", `{"access_level":"user"}`); w.Code != http.StatusForbidden {
		t.Fatalf("expected self change to be refused, got %d", w.Code)
	}
	if w := env.sendJSON(http.MethodPut, path, `{"access_level":"superuser"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected unknown level to be rejected, got %d", w.Code)
	}
}

func TestDeleteUserFunction(t *testing.T) {
	env := newTestEnv(t)

	preflight := httptest.NewRequest(http.MethodOptions, "/functions/v1/delete-user", nil)
	preflight.Header.Set("Origin", "https://app.example.com")
	w := env.do(preflight)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("expected origin echo, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "POST, OPTIONS" {
		t.Fatalf("unexpected allowed methods %q", got)
	}

	if w := env.get("/functions/v1/delete-user"); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}

	w = env.do(httptest.NewRequest(http.MethodPost, "/functions/v1/delete-user", nil))
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "Missing token") {
		t.Fatalf("expected missing token, got %d %q", w.Code, w.Body.String())
	}

	bad := httptest.NewRequest(http.MethodPost, "/functions/v1/delete-user", nil)
	bad.Header.Set("Authorization", "Bearer nope")
	w = env.do(bad)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "Invalid token") {
		t.Fatalf("expected invalid token, got %d %q", w.Code, w.Body.String())
	}

	id := env.createAccount("ola@example.com")
	if _, err := env.profiles.Ensure(context.Background(), id, "ola@example.com"); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	res, err := env.auth.SignIn(context.Background(), "ola@example.com", testPassword)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/delete-user", nil)
	req.Header.Set("Authorization", "Bearer "+res.Credential.AccessToken)
	if w := env.do(req); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d %q", w.Code, w.Body.String())
	}
	if _, err := env.auth.FindAccount(context.Background(), "ola@example.com"); err == nil {
		t.Fatal("expected account to be deleted")
	}
	if _, err := env.profiles.Get(context.Background(), id); err == nil {
		t.Fatal("expected profile to be deleted")
	}
}

func TestDeleteProfileEndsSession(t *testing.T) {
	env := newTestEnv(t)
	env.signIn("ola@example.com")

	if w := env.sendJSON(http.MethodDelete, "/api/profile", ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	if w := env.get("/app"); w.Code != http.StatusSeeOther {
		t.Fatalf("expected session to end, got %d", w.Code)
	}
}

func TestUpdatePreferencesAnonymous(t *testing.T) {
	env := newTestEnv(t)

	w := env.sendJSON(http.MethodPost, "/api/preferences", `{"theme":"light","blobCount":7,"colorTheme":"nope"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp preferencesResponse
	decodeBody(t, w, &resp)
	if resp.Settings.Theme != models.ThemeLight || resp.Settings.BlobCount != 7 || resp.Settings.ColorTheme != models.ColorAurora {
		t.Fatalf("unexpected settings %+v", resp.Settings)
	}
	if c := env.cookies[prefs.CookieTheme]; c == nil || c.Value != models.ThemeLight {
		t.Fatal("expected theme cookie to be committed")
	}
	if !strings.Contains(resp.URL, "theme=light") {
		t.Fatalf("expected share url with theme, got %q", resp.URL)
	}
}

func TestProfileSettingsAppliedOnceAfterLogin(t *testing.T) {
	env := newTestEnv(t)
	id := env.createAccount("ola@example.com")
	if _, err := env.profiles.Ensure(context.Background(), id, "ola@example.com"); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	stored := models.DefaultSettings()
	stored.Theme = models.ThemeLight
	stored.Language = models.LanguageEnglish
	if err := env.profiles.SaveSettings(context.Background(), id, stored); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}

	env.postForm("/login", url.Values{"email": {"ola@example.com"}, "password": {testPassword}})
	body := env.get("/app").Body.String()
	if !strings.Contains(body, `data-theme="light"`) || !strings.Contains(body, `lang="en"`) {
		t.Fatal("expected profile settings to be applied")
	}
	if c := env.cookies[prefs.CookieTheme]; c == nil || c.Value != models.ThemeLight {
		t.Fatal("expected applied settings to be committed to cookies")
	}

	w := env.sendJSON(http.MethodPost, "/api/preferences", `{"theme":"dark"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	select {
	case <-env.saved:
	case <-time.After(2 * time.Second):
		t.Fatal("expected local change to be saved to the profile")
	}
	profile, _ := env.profiles.Get(context.Background(), id)
	if profile.Settings.Theme != models.ThemeDark || profile.Settings.Language != models.LanguageEnglish {
		t.Fatalf("unexpected saved settings %+v", profile.Settings)
	}

	if body := env.get("/app").Body.String(); !strings.Contains(body, `data-theme="dark"`) {
		t.Fatal("local change must not be overwritten by the profile")
	}
}

func TestContactFormAndTracking(t *testing.T) {
	env := newTestEnv(t)

	if w := env.get("/"); w.Code != http.StatusOK {
		t.Fatalf("expected home page, got %d", w.Code)
	}
	w := env.postForm("/contact", url.Values{"name": {"Kari"}, "email": {"kari@example.com"}, "message": {"Hei"}})
	if !strings.Contains(w.Body.String(), "success-message") {
		t.Fatal("expected confirmation")
	}
	if w := env.postForm("/contact", url.Values{"name": {"Kari"}}); !strings.Contains(w.Body.String(), "error-message") {
		t.Fatal("expected validation error")
	}
	if w := env.sendJSON(http.MethodPost, "/api/track/visit", `{"page_url":"/app"}`); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w := env.sendJSON(http.MethodPost, "/api/track/contact", `{"name":"A"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var visits, contacts int64
	env.db.Model(&models.Visit{}).Count(&visits)
	env.db.Model(&models.Contact{}).Count(&contacts)
	if visits != 2 || contacts != 1 {
		t.Fatalf("expected 2 visits and 1 contact, got %d and %d", visits, contacts)
	}
}

func TestDownloadCVMissing(t *testing.T) {
	env := newTestEnv(t)

	if w := env.get("/cv?lang=en"); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var downloads int64
	env.db.Model(&models.CVDownload{}).Count(&downloads)
	if downloads != 0 {
		t.Fatal("missing documents must not count as downloads")
	}
}

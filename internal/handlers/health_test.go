package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"homedeck/internal/db"
)

func TestHealthWithoutDatabase(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	Health(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", ct)
	}

	var resp healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected status ok, got %q", resp.Status)
	}
	if resp.Time.IsZero() {
		t.Fatal("expected response time to be populated")
	}
	if resp.Database != "" {
		t.Fatalf("expected no database status without a database, got %q", resp.Database)
	}
}

func TestHealthReportsUnavailableDatabase(t *testing.T) {
	database, err := gorm.Open(sqlite.Open("file:health_closed?mode=memory"), db.GormConfig(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.Close()

	Configure(Dependencies{Database: database})
	t.Cleanup(func() { Configure(Dependencies{}) })

	w := httptest.NewRecorder()
	Health(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", w.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "degraded" || resp.Database != "unavailable" {
		t.Fatalf("expected degraded response, got %+v", resp)
	}
}

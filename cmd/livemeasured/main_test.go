package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/livemeasure/livemeasure/internal/platform"
	"github.com/livemeasure/livemeasure/pkg/config"
)

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("LIVEMEASURE_TEST_SET", "value")
	if got := envOrDefault("LIVEMEASURE_TEST_SET", "fallback"); got != "value" {
		t.Errorf("envOrDefault(set) = %q, want value", got)
	}
	if got := envOrDefault("LIVEMEASURE_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("envOrDefault(unset) = %q, want fallback", got)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://db/livemeasure")
	t.Setenv("STORAGE_BACKEND", "gcs")
	t.Setenv("GCS_BUCKET", "measures")
	t.Setenv("GITHUB_APP_ID", "77")

	cfg := config.DefaultConfig()
	if err := applyEnv(cfg); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Database.Driver != config.DriverPostgres || cfg.Database.URL != "postgres://db/livemeasure" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Storage.Backend != config.BackendGCS || cfg.Storage.Bucket != "measures" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.GitHub.AppID != 77 {
		t.Errorf("github app = %d", cfg.GitHub.AppID)
	}
	// An app ID without a key is rejected.
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for github app without key")
	}
}

func TestApplyEnvInvalidAppID(t *testing.T) {
	t.Setenv("GITHUB_APP_ID", "not-a-number")
	if err := applyEnv(config.DefaultConfig()); err == nil {
		t.Error("expected error for invalid GITHUB_APP_ID")
	}
}

func TestHealthHandler(t *testing.T) {
	db, err := platform.Open(platform.DriverSQLite, filepath.Join(t.TempDir(), "health.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	rec := httptest.NewRecorder()
	healthHandler(db)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	db.Close()
	rec = httptest.NewRecorder()
	healthHandler(db)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status after close = %d, want 503", rec.Code)
	}
}

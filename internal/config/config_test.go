package config

import "testing"

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("IMPORT_MAX_FILE_MB", "")
	t.Setenv("FREE_PLAN_ENTRY_LIMIT", "not-a-number")
	t.Setenv("APP_ENV", "dev")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ImportMaxFileMB != 10 || cfg.ImportMaxBytes() != 10<<20 {
		t.Fatalf("unexpected import limit %d", cfg.ImportMaxFileMB)
	}
	if cfg.FreePlanEntryLimit != 10 {
		t.Fatalf("expected fallback entry limit, got %d", cfg.FreePlanEntryLimit)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("expected development env, got %q", cfg.AppEnv)
	}
}

func TestFeatureToggles(t *testing.T) {
	cfg := &Config{EmailAPIURL: "https://mail.example", EmailAPIKey: "key"}
	if cfg.EmailEnabled() {
		t.Fatalf("email needs a sender address")
	}
	cfg.EmailFrom = "noreply@example.com"
	if !cfg.EmailEnabled() {
		t.Fatalf("expected email enabled")
	}
	if cfg.StorageEnabled() || cfg.PushEnabled() || cfg.CalendlyEnabled() {
		t.Fatalf("unconfigured features must be disabled")
	}
}

package config

import (
	"testing"
	"time"
)

func TestNewConfig(t *testing.T) {
	t.Run("ok, defaults", func(t *testing.T) {
		t.Setenv("PORT", "")
		t.Setenv("SESSION_TTL", "")
		t.Setenv("REQUIRE_LISTING_PHOTO", "")
		t.Setenv("APP_ENV", "")

		cfg := NewConfig()
		if cfg.Port != "8000" || cfg.SessionTTL != 7*24*time.Hour || !cfg.RequireListingPhoto {
			t.Fatalf("unexpected defaults %+v", cfg)
		}
		if !cfg.Local() || cfg.SecureCookies() {
			t.Error("expected a local deployment without secure cookies by default")
		}
		if cfg.SessionSecret == "" || cfg.RulesLinkSecret == "" || cfg.Validate() != nil {
			t.Error("expected local signing secrets")
		}
	})

	t.Run("ok, environment overrides", func(t *testing.T) {
		t.Setenv("PORT", "9000")
		t.Setenv("APP_ENV", "production")
		t.Setenv("SESSION_TTL", "1h")
		t.Setenv("BCRYPT_COST", "10")
		t.Setenv("REQUIRE_LISTING_PHOTO", "false")

		cfg := NewConfig()
		if cfg.Port != "9000" || cfg.SessionTTL != time.Hour || cfg.BcryptCost != 10 || cfg.RequireListingPhoto {
			t.Fatalf("overrides not applied %+v", cfg)
		}
		if !cfg.SecureCookies() {
			t.Error("expected secure cookies in production")
		}
	})

	t.Run("ok, malformed values fall back", func(t *testing.T) {
		t.Setenv("SESSION_TTL", "soon")
		t.Setenv("BCRYPT_COST", "many")

		cfg := NewConfig()
		if cfg.SessionTTL != 7*24*time.Hour || cfg.BcryptCost != 12 {
			t.Fatalf("expected fallbacks, got %v / %d", cfg.SessionTTL, cfg.BcryptCost)
		}
	})

	t.Run("ok, any non-local environment gets secure cookies", func(t *testing.T) {
		t.Setenv("APP_ENV", "staging")

		if cfg := NewConfig(); !cfg.SecureCookies() {
			t.Fatal("staging served insecure cookies")
		}
	})

	t.Run("fail, non-local deployment without secrets", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		t.Setenv("SESSION_SECRET", "")
		t.Setenv("SECRET_KEY", "")

		cfg := NewConfig()
		if cfg.SessionSecret != "" || cfg.RulesLinkSecret != "" {
			t.Fatal("production fell back to built-in secrets")
		}
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected a missing secret error")
		}

		t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
		t.Setenv("SECRET_KEY", "link-secret")
		if err := NewConfig().Validate(); err != nil {
			t.Fatalf("expected a valid config, got %v", err)
		}
	})
}

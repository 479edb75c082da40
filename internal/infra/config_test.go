package infra

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresReplicateToken(t *testing.T) {
	t.Setenv("REPLICATE_API_TOKEN", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without REPLICATE_API_TOKEN")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("REPLICATE_API_TOKEN", "r8_test")
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.StorageBaseURL != "http://localhost:8080/static" {
		t.Fatalf("StorageBaseURL = %q", cfg.StorageBaseURL)
	}
	if cfg.PollTimeout != 60*time.Second {
		t.Fatalf("PollTimeout = %v, want 60s", cfg.PollTimeout)
	}
	if cfg.PollInterval != 1200*time.Millisecond {
		t.Fatalf("PollInterval = %v, want 1.2s", cfg.PollInterval)
	}
	if cfg.FluxKontextModel != "black-forest-labs/flux-kontext-pro" {
		t.Fatalf("FluxKontextModel = %q", cfg.FluxKontextModel)
	}
}

func TestLoadConfigInheritsPortInStorageBaseURL(t *testing.T) {
	t.Setenv("REPLICATE_API_TOKEN", "r8_test")
	t.Setenv("PORT", "1919")
	t.Setenv("STORAGE_BASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageBaseURL != "http://localhost:1919/static" {
		t.Fatalf("StorageBaseURL = %q", cfg.StorageBaseURL)
	}
}

func TestLoadConfigPriceTablesDropEmptyKeys(t *testing.T) {
	t.Setenv("REPLICATE_API_TOKEN", "r8_test")
	t.Setenv("STRIPE_PRICE_PACK_STARTER", "price_starter")
	t.Setenv("STRIPE_PRICE_PACK_VALUE", "")
	t.Setenv("STRIPE_PRICE_PACK_MEGA", "")
	t.Setenv("STRIPE_PRICE_SUB_STARTER", "")
	t.Setenv("STRIPE_PRICE_SUB_PRO", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got := cfg.PackCreditPrices["price_starter"]; got != 10 {
		t.Fatalf("starter pack credits = %d, want 10", got)
	}
	if _, ok := cfg.PackCreditPrices[""]; ok {
		t.Fatalf("empty price key should be dropped")
	}
	if _, ok := cfg.SubscriptionGrants[""]; ok {
		t.Fatalf("empty subscription key should be dropped")
	}
}

func TestLoadConfigCORSDefaultsToWildcard(t *testing.T) {
	t.Setenv("REPLICATE_API_TOKEN", "r8_test")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("CORSAllowedOrigins = %#v, want [*]", cfg.CORSAllowedOrigins)
	}
}

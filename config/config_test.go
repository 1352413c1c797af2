package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	unsetEnv(t, "MYSQL_DSN")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing MYSQL_DSN")
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "user:pass@tcp(localhost:3306)/orders")
	unsetEnv(t, "ORDERS_PLATFORM_FEE_PERCENT")
	unsetEnv(t, "RECONCILE_BATCH_SIZE")
	unsetEnv(t, "STRIPE_API_BASE_URL")
	unsetEnv(t, "LOG_LEVEL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Orders.PlatformFeePercent != 5 {
		t.Fatalf("expected default platform fee percent 5, got %d", cfg.Orders.PlatformFeePercent)
	}
	if cfg.Reconcile.BatchSize != 100 {
		t.Fatalf("expected default reconcile batch size 100, got %d", cfg.Reconcile.BatchSize)
	}
	if cfg.Stripe.APIBaseURL != "https://api.stripe.com" {
		t.Fatalf("unexpected stripe base url: %s", cfg.Stripe.APIBaseURL)
	}
	if cfg.Stripe.HTTPTimeout != 10*time.Second {
		t.Fatalf("unexpected stripe http timeout: %s", cfg.Stripe.HTTPTimeout)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("unexpected log level: %s", cfg.Log.Level)
	}
}

func TestLoadOverrides(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "user:pass@tcp(localhost:3306)/orders")
	setEnv(t, "ORDERS_PLATFORM_FEE_PERCENT", "10")
	setEnv(t, "RECONCILE_BATCH_SIZE", "250")
	setEnv(t, "RECONCILE_INTERVAL_MINUTES", "15")
	setEnv(t, "STRIPE_HTTP_TIMEOUT_SECONDS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Orders.PlatformFeePercent != 10 {
		t.Fatalf("expected platform fee percent 10, got %d", cfg.Orders.PlatformFeePercent)
	}
	if cfg.Reconcile.BatchSize != 250 {
		t.Fatalf("expected reconcile batch size 250, got %d", cfg.Reconcile.BatchSize)
	}
	if cfg.Reconcile.Interval != 15*time.Minute {
		t.Fatalf("unexpected reconcile interval: %s", cfg.Reconcile.Interval)
	}
	if cfg.Stripe.HTTPTimeout != 30*time.Second {
		t.Fatalf("unexpected stripe http timeout: %s", cfg.Stripe.HTTPTimeout)
	}
}

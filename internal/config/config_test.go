package config

import (
	"testing"
	"time"
)

var allKeys = []string{
	"HTTP_ADDR", "SHUTDOWN_TIMEOUT", "LOG_LEVEL",
	"CATALOG_BASE_URL", "PRICING_BASE_URL", "UPSTREAM_TIMEOUT_MS", "REQUEST_TIMEOUT",
	"RETRY_MAX_ATTEMPTS", "RETRY_BASE_DELAY_MS", "PRICE_LOOKUP_CONCURRENCY",
	"BREAKER_MAX_FAILURES", "BREAKER_OPEN_TIMEOUT",
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
	c := Load()
	if c.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr default")
	}
	if c.ShutdownTimeout != 15*time.Second {
		t.Fatalf("ShutdownTimeout default")
	}
	if c.LogLevel != "info" {
		t.Fatalf("LogLevel default")
	}
	if c.CatalogBaseURL != "http://makeup-api.herokuapp.com/api/v1" {
		t.Fatalf("CatalogBaseURL default: %s", c.CatalogBaseURL)
	}
	if c.PricingBaseURL != "https://vxc1lmoi82.execute-api.ap-southeast-2.amazonaws.com/Prod/api/v1" {
		t.Fatalf("PricingBaseURL default: %s", c.PricingBaseURL)
	}
	if c.UpstreamTimeout != 10*time.Second || c.RequestTimeout != 60*time.Second {
		t.Fatalf("timeouts default")
	}
	if c.RetryMaxAttempts != 3 || c.RetryBaseDelay != time.Second {
		t.Fatalf("retry default")
	}
	if c.PriceLookupConcurrency != 20 {
		t.Fatalf("concurrency default")
	}
	if c.BreakerMaxFailures != 20 || c.BreakerOpenTimeout != 30*time.Second {
		t.Fatalf("breaker default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CATALOG_BASE_URL", "http://catalog.local/api/")
	t.Setenv("PRICING_BASE_URL", "http://pricing.local")
	t.Setenv("UPSTREAM_TIMEOUT_MS", "250")
	t.Setenv("REQUEST_TIMEOUT", "5")
	t.Setenv("RETRY_MAX_ATTEMPTS", "1")
	t.Setenv("RETRY_BASE_DELAY_MS", "10")
	t.Setenv("PRICE_LOOKUP_CONCURRENCY", "4")
	t.Setenv("BREAKER_MAX_FAILURES", "7")
	t.Setenv("BREAKER_OPEN_TIMEOUT", "3")
	c := Load()
	if c.HTTPAddr != ":9090" || c.ShutdownTimeout != 2*time.Second || c.LogLevel != "debug" {
		t.Fatalf("server env: %+v", c)
	}
	if c.CatalogBaseURL != "http://catalog.local/api" {
		t.Fatalf("trailing slash not trimmed: %s", c.CatalogBaseURL)
	}
	if c.PricingBaseURL != "http://pricing.local" {
		t.Fatalf("PricingBaseURL env")
	}
	if c.UpstreamTimeout != 250*time.Millisecond || c.RequestTimeout != 5*time.Second {
		t.Fatalf("timeouts env")
	}
	if c.RetryMaxAttempts != 1 || c.RetryBaseDelay != 10*time.Millisecond {
		t.Fatalf("retry env")
	}
	if c.PriceLookupConcurrency != 4 {
		t.Fatalf("concurrency env")
	}
	if c.BreakerMaxFailures != 7 || c.BreakerOpenTimeout != 3*time.Second {
		t.Fatalf("breaker env")
	}
}

func TestLoadIgnoresGarbage(t *testing.T) {
	t.Setenv("RETRY_MAX_ATTEMPTS", "three")
	t.Setenv("UPSTREAM_TIMEOUT_MS", "fast")
	c := Load()
	if c.RetryMaxAttempts != 3 {
		t.Fatalf("expected fallback to default, got %d", c.RetryMaxAttempts)
	}
	if c.UpstreamTimeout != 10*time.Second {
		t.Fatalf("expected fallback to default, got %v", c.UpstreamTimeout)
	}
}

// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds configuration knobs for the HTTP server and upstream calls.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string

	CatalogBaseURL  string
	PricingBaseURL  string
	UpstreamTimeout time.Duration
	RequestTimeout  time.Duration

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	// PriceLookupConcurrency caps in-flight price lookups per request.
	// Zero or less launches one lookup per product.
	PriceLookupConcurrency int

	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		HTTPAddr:               getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout:        durenvs("SHUTDOWN_TIMEOUT", 15),
		LogLevel:               getenv("LOG_LEVEL", "info"),
		CatalogBaseURL:         strings.TrimRight(getenv("CATALOG_BASE_URL", "http://makeup-api.herokuapp.com/api/v1"), "/"),
		PricingBaseURL:         strings.TrimRight(getenv("PRICING_BASE_URL", "https://vxc1lmoi82.execute-api.ap-southeast-2.amazonaws.com/Prod/api/v1"), "/"),
		UpstreamTimeout:        durenvms("UPSTREAM_TIMEOUT_MS", 10000),
		RequestTimeout:         durenvs("REQUEST_TIMEOUT", 60),
		RetryMaxAttempts:       atoienv("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:         durenvms("RETRY_BASE_DELAY_MS", 1000),
		PriceLookupConcurrency: atoienv("PRICE_LOOKUP_CONCURRENCY", 20),
		BreakerMaxFailures:     atoienv("BREAKER_MAX_FAILURES", 20),
		BreakerOpenTimeout:     durenvs("BREAKER_OPEN_TIMEOUT", 30),
	}
}

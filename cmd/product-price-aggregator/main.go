// Package main boots the Product Price Aggregator HTTP server.
//
// @title Product Price Aggregator API
// @version 1.0
// @description Lists a brand's cosmetic products from the catalog API with prices refreshed from the pricing API.
// @BasePath /
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fairyhunter13/product-price-aggregator/internal/config"
	httpapi "github.com/fairyhunter13/product-price-aggregator/internal/http"
	"github.com/fairyhunter13/product-price-aggregator/internal/obs"
	"github.com/fairyhunter13/product-price-aggregator/internal/pricing"
	"github.com/fairyhunter13/product-price-aggregator/internal/retry"
	"github.com/fairyhunter13/product-price-aggregator/internal/upstream"
)

func main() {
	// A missing .env is fine; the process environment still applies.
	envErr := godotenv.Load()
	cfg := config.Load()
	obs.InitLogger(cfg.LogLevel)
	defer obs.Sync()
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		obs.Logger.Warnw("dotenv_load_failed", "error", envErr)
	}
	obs.Logger.Infow("service_starting",
		"catalog_base_url", cfg.CatalogBaseURL,
		"pricing_base_url", cfg.PricingBaseURL,
		"price_lookup_concurrency", cfg.PriceLookupConcurrency,
		"retry_max_attempts", cfg.RetryMaxAttempts,
	)

	hc := upstream.NewHTTPClient(
		upstream.WithTimeout(cfg.UpstreamTimeout),
		upstream.WithMaxIdleConnsPerHost(max(cfg.PriceLookupConcurrency, 2)),
	)
	opts := upstream.EndpointOptions{
		Retry: retry.Config{
			MaxRetries: cfg.RetryMaxAttempts,
			Backoff:    retry.Exponential(cfg.RetryBaseDelay),
		},
		BreakerMaxFailures:      cfg.BreakerMaxFailures,
		BreakerOpenTimeout:      cfg.BreakerOpenTimeout,
		BreakerHalfOpenRequests: cfg.PriceLookupConcurrency,
	}
	catalog := upstream.NewCatalog(cfg.CatalogBaseURL, hc, opts)
	prices := upstream.NewPricing(cfg.PricingBaseURL, hc, opts)
	enricher := pricing.NewEnricher(prices, cfg.PriceLookupConcurrency)

	app := httpapi.NewApp(cfg, catalog, enricher)
	mux := httpapi.NewRouter(app)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Infow("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Errorw("http_server_error", "error", err)
			obs.Sync()
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Infow("shutdown_signal", "signal", s.String())

	app.StartShutdown()

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Errorw("http_shutdown_error", "error", err)
	}
	obs.Logger.Infow("service_stopped")
}

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/product-price-aggregator/internal/config"
	httpapi "github.com/fairyhunter13/product-price-aggregator/internal/http"
	"github.com/fairyhunter13/product-price-aggregator/internal/model"
	"github.com/fairyhunter13/product-price-aggregator/internal/pricing"
	"github.com/fairyhunter13/product-price-aggregator/internal/retry"
	"github.com/fairyhunter13/product-price-aggregator/internal/upstream"
)

// newServer assembles the service the way main does, from environment config.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.Load()
	hc := upstream.NewHTTPClient(upstream.WithTimeout(cfg.UpstreamTimeout))
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
	app := httpapi.NewApp(cfg, catalog, pricing.NewEnricher(prices, cfg.PriceLookupConcurrency))
	srv := httptest.NewServer(httpapi.NewRouter(app))
	t.Cleanup(srv.Close)
	return srv
}

func TestIntegration_BrandPricedEndToEnd(t *testing.T) {
	const n = 60
	var flaky atomic.Int32

	catalogSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/products.json" || r.URL.Query().Get("brand") != "nyx" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		items := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			items = append(items, fmt.Sprintf(`{"id":%d,"brand":"nyx","name":"item-%d","price":"1.0"}`, i, i))
		}
		_, _ = w.Write([]byte("[" + strings.Join(items, ",") + "]"))
	}))
	defer catalogSrv.Close()

	var inFlight, peak atomic.Int32
	pricingSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		var id int
		if _, err := fmt.Sscanf(r.URL.Path, "/Prod/api/v1/products/%d/price", &id); err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if id == 7 && flaky.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		time.Sleep(5 * time.Millisecond)
		_, _ = fmt.Fprintf(w, `{"id":%d,"price":%d.25}`, id, id*2)
	}))
	defer pricingSrv.Close()

	t.Setenv("CATALOG_BASE_URL", catalogSrv.URL+"/api/v1/")
	t.Setenv("PRICING_BASE_URL", pricingSrv.URL+"/Prod/api/v1")
	t.Setenv("RETRY_BASE_DELAY_MS", "1")
	t.Setenv("PRICE_LOOKUP_CONCURRENCY", "8")
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/api/product?brand=nyx")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var products []model.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	require.Len(t, products, n)
	for i, p := range products {
		assert.Equal(t, i+1, p.ID)
		assert.Equal(t, fmt.Sprintf("%d.25", p.ID*2), p.Price.String())
	}
	assert.EqualValues(t, 2, flaky.Load())
	assert.LessOrEqual(t, peak.Load(), int32(8))
}

func TestIntegration_UnknownBrand(t *testing.T) {
	catalogSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer catalogSrv.Close()
	t.Setenv("CATALOG_BASE_URL", catalogSrv.URL)
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/api/product?brand=nobody")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// Every lookup fails once before succeeding. With the default breaker
// threshold below the product count, the retries must still carry the request.
func TestIntegration_TransientBurstDefaultBreaker(t *testing.T) {
	const n = 30
	catalogSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		items := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			items = append(items, fmt.Sprintf(`{"id":%d,"brand":"nyx","name":"item-%d","price":0}`, i, i))
		}
		_, _ = w.Write([]byte("[" + strings.Join(items, ",") + "]"))
	}))
	defer catalogSrv.Close()

	var mu sync.Mutex
	seen := map[int]bool{}
	pricingSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id int
		if _, err := fmt.Sscanf(r.URL.Path, "/products/%d/price", &id); err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		mu.Lock()
		first := !seen[id]
		seen[id] = true
		mu.Unlock()
		if first {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprintf(w, `{"id":%d,"price":3}`, id)
	}))
	defer pricingSrv.Close()

	t.Setenv("CATALOG_BASE_URL", catalogSrv.URL)
	t.Setenv("PRICING_BASE_URL", pricingSrv.URL)
	t.Setenv("RETRY_BASE_DELAY_MS", "1")
	t.Setenv("BREAKER_MAX_FAILURES", "20")
	srv := newServer(t)

	for round := 0; round < 2; round++ {
		resp, err := http.Get(srv.URL + "/api/product?brand=nyx")
		require.NoError(t, err)
		var products []model.Product
		require.Equal(t, http.StatusOK, resp.StatusCode, "round %d", round)
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
		_ = resp.Body.Close()
		require.Len(t, products, n)
	}
}

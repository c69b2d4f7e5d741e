package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/product-price-aggregator/internal/config"
	"github.com/fairyhunter13/product-price-aggregator/internal/model"
	"github.com/fairyhunter13/product-price-aggregator/internal/obs"
	"github.com/fairyhunter13/product-price-aggregator/internal/upstream"
)

const (
	msgBrandRequired = "Brand parameter is required."
	msgNoProducts    = "No products found for the specified brand."
	msgFetchFailed   = "An error occurred while fetching products."
)

// ProductCatalog lists the products of a brand.
type ProductCatalog interface {
	ProductsByBrand(ctx context.Context, brand string) ([]model.Product, error)
}

// PriceEnricher returns products carrying current prices, or fails as a whole.
type PriceEnricher interface {
	Enrich(ctx context.Context, products []model.Product) ([]model.Product, error)
}

type App struct {
	Cfg      config.Config
	Catalog  ProductCatalog
	Enricher PriceEnricher
	closing  atomic.Bool
	started  time.Time
}

func NewApp(cfg config.Config, catalog ProductCatalog, enricher PriceEnricher) *App {
	return &App{Cfg: cfg, Catalog: catalog, Enricher: enricher, started: time.Now()}
}

// StartShutdown flips health reporting so load balancers drain this instance.
func (a *App) StartShutdown() {
	a.closing.Store(true)
}

// getProductsHandler lists a brand's products with refreshed prices.
//
// @Summary List brand products with current prices
// @Description Fetches the brand's products from the catalog API, then refreshes every price from the pricing API. Any failed price lookup fails the whole request.
// @Tags products
// @Produce json
// @Param brand query string true "Brand name, exact match"
// @Success 200 {array} model.Product
// @Failure 400 {string} string "Brand parameter is required."
// @Failure 404 {string} string "No products found for the specified brand."
// @Failure 500 {string} string "An error occurred while fetching products."
// @Router /api/product [get]
func (a *App) getProductsHandler(w http.ResponseWriter, r *http.Request) {
	brand := r.URL.Query().Get("brand")
	reqID := RequestIDFromContext(r.Context())
	if brand == "" {
		respondText(w, http.StatusBadRequest, msgBrandRequired)
		return
	}

	ctx := r.Context()
	if a.Cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Cfg.RequestTimeout)
		defer cancel()
	}

	products, err := a.Catalog.ProductsByBrand(ctx, brand)
	switch {
	case errors.Is(err, upstream.ErrMalformedBody):
		obs.Logger.Infow("catalog_unparseable", "brand", brand, "request_id", reqID, "error", err)
		respondText(w, http.StatusNotFound, msgNoProducts)
		return
	case err != nil:
		obs.Logger.Errorw("catalog_fetch_failed", "brand", brand, "request_id", reqID, "error", err)
		respondText(w, http.StatusInternalServerError, msgFetchFailed)
		return
	case len(products) == 0:
		respondText(w, http.StatusNotFound, msgNoProducts)
		return
	}

	priced, err := a.Enricher.Enrich(ctx, products)
	if err != nil {
		obs.Logger.Errorw("price_enrichment_failed",
			"brand", brand,
			"request_id", reqID,
			"product_count", len(products),
			"error", err,
		)
		respondText(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}

	obs.ProductRequests.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	WriteJSON(w, http.StatusOK, priced)
	obs.Logger.Infow("products_priced", "brand", brand, "request_id", reqID, "product_count", len(priced))
}

func respondText(w http.ResponseWriter, status int, msg string) {
	obs.ProductRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	WriteText(w, status, msg)
}

// healthHandler reports liveness, or 503 once shutdown has started.
//
// @Summary Health check
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"uptime_sec": time.Since(a.started).Seconds(),
	})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSONError(w, http.StatusNotFound, "not_found", "")
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
}

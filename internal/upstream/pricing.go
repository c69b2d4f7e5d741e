package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fairyhunter13/product-price-aggregator/internal/model"
)

// PricingName labels the pricing API in logs and metrics.
const PricingName = "pricing"

// Pricing looks up current prices from the pricing API.
type Pricing struct {
	ep *endpoint
}

// NewPricing builds a Pricing client rooted at baseURL.
func NewPricing(baseURL string, hc *http.Client, opts EndpointOptions) *Pricing {
	return &Pricing{ep: newEndpoint(PricingName, baseURL, hc, opts)}
}

// Price returns the current quote for productID. A body without a usable
// price yields ErrMalformedBody or model.ErrNoQuote.
func (p *Pricing) Price(ctx context.Context, productID int) (model.PriceQuote, error) {
	u := p.ep.base + "/products/" + strconv.Itoa(productID) + "/price"
	var q model.PriceQuote
	if err := p.ep.getJSON(ctx, u, &q); err != nil {
		return model.PriceQuote{}, err
	}
	if !q.Usable(productID) {
		return model.PriceQuote{}, fmt.Errorf("%s: product %d: %w", PricingName, productID, model.ErrNoQuote)
	}
	return q, nil
}

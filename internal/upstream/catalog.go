package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/product-price-aggregator/internal/model"
)

// CatalogName labels the catalog API in logs and metrics.
const CatalogName = "catalog"

// Catalog lists products of a brand from the catalog API.
type Catalog struct {
	ep *endpoint
}

// NewCatalog builds a Catalog client rooted at baseURL.
func NewCatalog(baseURL string, hc *http.Client, opts EndpointOptions) *Catalog {
	return &Catalog{ep: newEndpoint(CatalogName, baseURL, hc, opts)}
}

// catalogItem mirrors one catalog entry. The catalog's price is stale and
// arrives in mixed shapes (number, quoted number, null, empty string), so it
// is decoded leniently.
type catalogItem struct {
	ID    int             `json:"id"`
	Brand string          `json:"brand"`
	Name  string          `json:"name"`
	Price json.RawMessage `json:"price"`
}

// ProductsByBrand fetches the products of brand. A body that is not a JSON
// array yields ErrMalformedBody; a JSON null yields an empty list.
func (c *Catalog) ProductsByBrand(ctx context.Context, brand string) ([]model.Product, error) {
	u := c.ep.base + "/products.json?" + url.Values{"brand": []string{brand}}.Encode()
	var items []catalogItem
	if err := c.ep.getJSON(ctx, u, &items); err != nil {
		return nil, err
	}
	products := make([]model.Product, 0, len(items))
	for _, it := range items {
		products = append(products, model.Product{
			ID:    it.ID,
			Brand: it.Brand,
			Name:  it.Name,
			Price: lenientDecimal(it.Price),
		})
	}
	return products, nil
}

func lenientDecimal(raw json.RawMessage) decimal.Decimal {
	s := string(bytes.Trim(bytes.TrimSpace(raw), `"`))
	if s == "" || s == "null" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

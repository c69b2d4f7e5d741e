// Package model defines domain types used by the service.
package model

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNoQuote reports a pricing response that decoded but carried no usable price.
var ErrNoQuote = errors.New("no usable price quote")

func init() {
	// Prices go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is a catalog entry. Price is stale until the pricing API overwrites it.
type Product struct {
	ID    int             `json:"id"`
	Brand string          `json:"brand"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// PriceQuote is one pricing API response.
type PriceQuote struct {
	ID    int              `json:"id,omitempty"`
	Price *decimal.Decimal `json:"price"`
}

// Usable reports whether the quote carries a price for the given product.
func (q PriceQuote) Usable(productID int) bool {
	if q.Price == nil {
		return false
	}
	return q.ID == 0 || q.ID == productID
}

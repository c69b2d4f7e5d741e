// Package pricing refreshes product prices from the pricing API.
//
// Enrich launches one lookup per product, bounded by a concurrency limit,
// and joins on all of them. Each lookup writes only its own outcome slot.
// Prices are applied to a copy of the input only once every lookup has
// succeeded, so a failed batch never leaves a mix of fresh and stale prices.
package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/product-price-aggregator/internal/model"
	"github.com/fairyhunter13/product-price-aggregator/internal/obs"
)

// PriceSource returns the current quote for one product.
type PriceSource interface {
	Price(ctx context.Context, productID int) (model.PriceQuote, error)
}

// Status tags a lookup outcome.
type Status int

const (
	Pending Status = iota
	Updated
	Failed
)

func (s Status) String() string {
	switch s {
	case Updated:
		return "updated"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// Outcome is the result of one product's lookup.
type Outcome struct {
	ProductID int
	Status    Status
	Price     decimal.Decimal
	Err       error
}

// LookupError names the product whose lookup failed.
type LookupError struct {
	ProductID int
	Err       error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("price lookup for product %d: %v", e.ProductID, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Enricher prices product lists concurrently.
type Enricher struct {
	src   PriceSource
	limit int
}

// NewEnricher builds an Enricher. A limit of zero or less runs one lookup
// per product with no cap.
func NewEnricher(src PriceSource, limit int) *Enricher {
	return &Enricher{src: src, limit: limit}
}

// Lookup prices every product and returns one outcome per input position.
// The first failure cancels lookups that have not finished yet; those are
// reported as Failed with the cancellation error. The error is the first
// failure, as a *LookupError.
func (e *Enricher) Lookup(ctx context.Context, products []model.Product) ([]Outcome, error) {
	outcomes := make([]Outcome, len(products))
	g, gctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i := range products {
		i := i
		id := products[i].ID
		outcomes[i].ProductID = id
		g.Go(func() error {
			obs.PriceLookupsInFlight.Inc()
			defer obs.PriceLookupsInFlight.Dec()

			if err := gctx.Err(); err != nil {
				outcomes[i].Status = Failed
				outcomes[i].Err = err
				return &LookupError{ProductID: id, Err: err}
			}
			q, err := e.src.Price(gctx, id)
			// A PriceSource may return a nil or mismatched quote without error.
			if err == nil && !q.Usable(id) {
				err = model.ErrNoQuote
			}
			if err != nil {
				outcomes[i].Status = Failed
				outcomes[i].Err = err
				return &LookupError{ProductID: id, Err: err}
			}
			outcomes[i].Status = Updated
			outcomes[i].Price = *q.Price
			return nil
		})
	}
	err := g.Wait()
	return outcomes, err
}

// Enrich returns a copy of products with every price replaced by its quote.
// Any failed lookup fails the whole batch and products is left untouched.
func (e *Enricher) Enrich(ctx context.Context, products []model.Product) ([]model.Product, error) {
	start := time.Now()
	defer func() { obs.EnrichmentDuration.Observe(time.Since(start).Seconds()) }()

	outcomes, err := e.Lookup(ctx, products)
	if err != nil {
		return nil, err
	}
	priced := make([]model.Product, len(products))
	copy(priced, products)
	for i := range priced {
		priced[i].Price = outcomes[i].Price
	}
	return priced, nil
}

package domain

import (
	"context"
	"time"
)

// Quote is a price observation.
type Quote struct {
	Price float64   `json:"price"`
	AsOf  time.Time `json:"as_of"`
}

// PriceSource supplies unit prices in the base currency. Results may be cached;
// Invalidate drops a cached token price so the next call refetches it.
type PriceSource interface {
	// GetUnitPrice returns the price of one token unit in the base currency
	GetUnitPrice(ctx context.Context, tokenAddress string) (Quote, error)

	// GetReferencePrice returns the base currency to display currency rate
	GetReferencePrice(ctx context.Context) (Quote, error)

	// Invalidate drops the cached price for tokenAddress
	Invalidate(tokenAddress string)
}

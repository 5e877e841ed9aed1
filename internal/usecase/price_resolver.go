package usecase

import (
	"context"
	"fmt"
	"math"

	"papertrade/internal/domain"
)

// TokenDescriber is implemented by price sources that know token metadata
type TokenDescriber interface {
	DescribeToken(tokenAddress string) (symbol, name string, ok bool)
}

// ResolvePrices fills req's unit and reference prices, using the explicit
// values when given and prices otherwise. A request whose amount is not a
// positive finite number is rejected with ErrInvalidAmount before any price is
// fetched. A zero unit price is reported as ErrPriceUnavailable. Missing token symbol and name are filled from prices
// when it implements TokenDescriber.
func ResolvePrices(ctx context.Context, prices domain.PriceSource, req *TradeRequest, unitPrice, referencePrice *float64) error {
	if !(req.Amount > 0) || math.IsInf(req.Amount, 0) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidAmount, req.Amount)
	}

	if unitPrice != nil {
		req.UnitPrice = *unitPrice
	} else {
		q, err := prices.GetUnitPrice(ctx, req.TokenAddress)
		if err != nil {
			return err
		}
		req.UnitPrice = q.Price
	}
	if req.UnitPrice == 0 {
		return fmt.Errorf("%w: zero price for %s", domain.ErrPriceUnavailable, req.TokenAddress)
	}

	if referencePrice != nil {
		req.ReferencePrice = *referencePrice
	} else {
		q, err := prices.GetReferencePrice(ctx)
		if err != nil {
			return err
		}
		req.ReferencePrice = q.Price
	}

	if d, ok := prices.(TokenDescriber); ok && (req.TokenSymbol == "" || req.TokenName == "") {
		if symbol, name, found := d.DescribeToken(req.TokenAddress); found {
			if req.TokenSymbol == "" {
				req.TokenSymbol = symbol
			}
			if req.TokenName == "" {
				req.TokenName = name
			}
		}
	}
	return nil
}

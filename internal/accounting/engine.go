// Package accounting implements weighted-average-cost holdings accounting.
//
// All functions are pure: they take the current balance and holding, and return
// the next state or an error. They never mutate their inputs.
package accounting

import (
	"fmt"
	"math"

	"papertrade/internal/domain"
)

// TokenRef identifies the token a buy opens or extends.
type TokenRef struct {
	Address string
	Symbol  string
	Name    string
}

// BuyResult is the state after a successful buy.
type BuyResult struct {
	Balance   float64
	Holding   domain.Holding
	TotalBase float64
}

// SellResult is the state after a successful sell. Holding is nil when the
// position was fully closed.
type SellResult struct {
	Balance        float64
	Holding        *domain.Holding
	TotalBase      float64
	InvestedInSold float64
	RealizedPnL    float64
	Closed         bool
}

// ApplyBuy debits amount*unitPrice from balance and adds amount to holding,
// blending the average cost. holding may be nil for a first purchase.
func ApplyBuy(balance float64, holding *domain.Holding, token TokenRef, amount, unitPrice float64) (BuyResult, error) {
	if !isPositive(amount) {
		return BuyResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, amount)
	}
	if !isNonNegative(unitPrice) {
		return BuyResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidPrice, unitPrice)
	}

	totalBase := amount * unitPrice
	if !isFinite(totalBase) {
		return BuyResult{}, fmt.Errorf("%w: %v at %v overflows the trade value", domain.ErrInvalidAmount, amount, unitPrice)
	}
	if totalBase > balance {
		return BuyResult{}, fmt.Errorf("%w: need %.6f, have %.6f", domain.ErrInsufficientBalance, totalBase, balance)
	}

	next := domain.Holding{
		TokenAddress:  token.Address,
		TokenSymbol:   token.Symbol,
		TokenName:     token.Name,
		Amount:        amount,
		AverageCost:   unitPrice,
		TotalInvested: totalBase,
	}
	if holding != nil {
		next.TokenAddress = holding.TokenAddress
		if next.TokenSymbol == "" {
			next.TokenSymbol = holding.TokenSymbol
		}
		if next.TokenName == "" {
			next.TokenName = holding.TokenName
		}
		next.Amount = holding.Amount + amount
		next.TotalInvested = holding.TotalInvested + totalBase
		next.AverageCost = averageCost(next.TotalInvested, next.Amount)
	}
	if !isFinite(next.Amount) || !isFinite(next.TotalInvested) {
		return BuyResult{}, fmt.Errorf("%w: holding of %s would overflow", domain.ErrInvalidAmount, next.TokenAddress)
	}

	return BuyResult{
		Balance:   balance - totalBase,
		Holding:   next,
		TotalBase: totalBase,
	}, nil
}

// ApplySell liquidates amount from holding at unitPrice. The cost basis removed
// is proportional to the share of the position sold, so the average cost of
// what remains is unchanged.
func ApplySell(balance float64, holding *domain.Holding, amount, unitPrice float64) (SellResult, error) {
	if !isPositive(amount) {
		return SellResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, amount)
	}
	if !isNonNegative(unitPrice) {
		return SellResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidPrice, unitPrice)
	}
	if holding == nil {
		return SellResult{}, domain.ErrNoSuchHolding
	}
	if amount > holding.Amount {
		return SellResult{}, fmt.Errorf("%w: selling %.6f, holding %.6f", domain.ErrInsufficientHoldings, amount, holding.Amount)
	}

	totalBase := amount * unitPrice
	if !isFinite(totalBase) || !isFinite(balance+totalBase) {
		return SellResult{}, fmt.Errorf("%w: %v at %v overflows the trade value", domain.ErrInvalidAmount, amount, unitPrice)
	}
	proportionSold := amount / holding.Amount
	investedInSold := holding.TotalInvested * proportionSold

	res := SellResult{
		Balance:        balance + totalBase,
		TotalBase:      totalBase,
		InvestedInSold: investedInSold,
		RealizedPnL:    totalBase - investedInSold,
	}

	newAmount := holding.Amount - amount
	if newAmount <= domain.HoldingEpsilon {
		res.Closed = true
		return res, nil
	}

	next := *holding
	next.Amount = newAmount
	next.TotalInvested = holding.TotalInvested - investedInSold
	next.AverageCost = averageCost(next.TotalInvested, newAmount)
	res.Holding = &next
	return res, nil
}

// averageCost guards the division shared by buys and sells.
func averageCost(totalInvested, amount float64) float64 {
	if amount == 0 {
		return 0
	}
	return totalInvested / amount
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func isNonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

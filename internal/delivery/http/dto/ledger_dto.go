package dto

import (
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/service"
)

// TradeRequest is the body of POST /api/trades. Prices are resolved from the
// market when omitted.
type TradeRequest struct {
	TokenAddress   string   `json:"token_address"`
	TokenSymbol    string   `json:"token_symbol"`
	TokenName      string   `json:"token_name"`
	Side           string   `json:"side"` // "buy" or "sell"
	Amount         float64  `json:"amount"`
	UnitPrice      *float64 `json:"unit_price,omitempty"`
	TotalBase      *float64 `json:"total_base,omitempty"`
	ReferencePrice *float64 `json:"reference_price,omitempty"`
}

// HoldingOutput represents a holding in API responses
type HoldingOutput struct {
	TokenAddress    string  `json:"token_address"`
	TokenSymbol     string  `json:"token_symbol"`
	TokenName       string  `json:"token_name"`
	Amount          float64 `json:"amount"`
	AverageCost     float64 `json:"average_cost"`
	TotalInvested   float64 `json:"total_invested"`
	InvestedDisplay string  `json:"invested_display"`
	UpdatedAt       string  `json:"updated_at"`
}

// TradeOutput represents a trade in API responses
type TradeOutput struct {
	ID             string   `json:"id"`
	TokenAddress   string   `json:"token_address"`
	TokenSymbol    string   `json:"token_symbol"`
	TokenName      string   `json:"token_name"`
	Side           string   `json:"side"`
	Amount         float64  `json:"amount"`
	UnitPrice      float64  `json:"unit_price"`
	TotalBase      float64  `json:"total_base"`
	TotalDisplay   string   `json:"total_display"`
	ReferencePrice float64  `json:"reference_price"`
	RealizedPnL    *float64 `json:"realized_pnl,omitempty"`
	Timestamp      string   `json:"timestamp"`
}

// LedgerOutput represents a user's ledger in API responses
type LedgerOutput struct {
	WalletAddress  string          `json:"wallet_address"`
	Balance        float64         `json:"balance"`
	BalanceDisplay string          `json:"balance_display"`
	Holdings       []HoldingOutput `json:"holdings"`
	Trades         []TradeOutput   `json:"trades"`
	TradeCount     int             `json:"trade_count"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

// TradeResponse is returned for a committed trade
type TradeResponse struct {
	Trade          TradeOutput    `json:"trade"`
	RealizedPnL    *float64       `json:"realized_pnl"`
	Balance        float64        `json:"balance"`
	BalanceDisplay string         `json:"balance_display"`
	Holding        *HoldingOutput `json:"holding"`
}

// PriceOutput represents a token price
type PriceOutput struct {
	TokenAddress   string  `json:"token_address"`
	TokenSymbol    string  `json:"token_symbol,omitempty"`
	TokenName      string  `json:"token_name,omitempty"`
	UnitPrice      float64 `json:"unit_price"`
	ReferencePrice float64 `json:"reference_price,omitempty"`
	AsOf           string  `json:"as_of"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// NewHoldingOutput converts a holding for display in currency
func NewHoldingOutput(h domain.Holding, currency string) HoldingOutput {
	return HoldingOutput{
		TokenAddress:    domain.ChecksumAddress(h.TokenAddress),
		TokenSymbol:     h.TokenSymbol,
		TokenName:       h.TokenName,
		Amount:          h.Amount,
		AverageCost:     h.AverageCost,
		TotalInvested:   h.TotalInvested,
		InvestedDisplay: service.FormatAmount(h.TotalInvested, currency),
		UpdatedAt:       formatTime(h.UpdatedAt),
	}
}

// NewTradeOutput converts a trade for display in currency
func NewTradeOutput(t domain.Trade, currency string) TradeOutput {
	return TradeOutput{
		ID:             t.ID,
		TokenAddress:   domain.ChecksumAddress(t.TokenAddress),
		TokenSymbol:    t.TokenSymbol,
		TokenName:      t.TokenName,
		Side:           string(t.Side),
		Amount:         t.Amount,
		UnitPrice:      t.UnitPrice,
		TotalBase:      t.TotalBase,
		TotalDisplay:   service.FormatAmount(t.TotalBase, currency),
		ReferencePrice: t.ReferencePrice,
		RealizedPnL:    t.RealizedPnL,
		Timestamp:      formatTime(t.Timestamp),
	}
}

// NewLedgerOutput converts a ledger, keeping at most tradeLimit of the most
// recent trades. A non-positive limit keeps all of them.
func NewLedgerOutput(l *domain.Ledger, currency string, tradeLimit int) LedgerOutput {
	out := LedgerOutput{
		WalletAddress:  domain.ChecksumAddress(l.UserID),
		Balance:        l.Balance,
		BalanceDisplay: service.FormatAmount(l.Balance, currency),
		Holdings:       make([]HoldingOutput, 0, len(l.Holdings)),
		Trades:         []TradeOutput{},
		TradeCount:     len(l.Trades),
		CreatedAt:      formatTime(l.CreatedAt),
		UpdatedAt:      formatTime(l.UpdatedAt),
	}
	for _, h := range l.Holdings {
		out.Holdings = append(out.Holdings, NewHoldingOutput(h, currency))
	}
	trades := l.Trades
	if tradeLimit > 0 && len(trades) > tradeLimit {
		trades = trades[:tradeLimit]
	}
	for _, t := range trades {
		out.Trades = append(out.Trades, NewTradeOutput(t, currency))
	}
	return out
}

// NewPriceOutput converts a quote
func NewPriceOutput(tokenAddress, symbol, name string, unit, reference domain.Quote) PriceOutput {
	return PriceOutput{
		TokenAddress:   domain.ChecksumAddress(tokenAddress),
		TokenSymbol:    symbol,
		TokenName:      name,
		UnitPrice:      unit.Price,
		ReferencePrice: reference.Price,
		AsOf:           formatTime(unit.AsOf),
	}
}

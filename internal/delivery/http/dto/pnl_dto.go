package dto

import (
	"papertrade/internal/domain"
	"papertrade/internal/service"
)

// TokenPnLOutput represents one token's lifetime statistics
type TokenPnLOutput struct {
	TokenAddress    string  `json:"token_address"`
	TokenSymbol     string  `json:"token_symbol"`
	TokenName       string  `json:"token_name"`
	BuyAmount       float64 `json:"buy_amount"`
	BuyTotalBase    float64 `json:"buy_total_base"`
	SellAmount      float64 `json:"sell_amount"`
	SellTotalBase   float64 `json:"sell_total_base"`
	AvgBuyPrice     float64 `json:"avg_buy_price"`
	AvgSellPrice    float64 `json:"avg_sell_price"`
	RealizedPnL     float64 `json:"realized_pnl"`
	RealizedDisplay string  `json:"realized_display"`
	Volume          float64 `json:"volume"`
	TradeCount      int     `json:"trade_count"`
	FirstTradeAt    string  `json:"first_trade_at"`
	LastTradeAt     string  `json:"last_trade_at"`
}

// PnLOutput represents a P&L report
type PnLOutput struct {
	WalletAddress     string           `json:"wallet_address"`
	Balance           float64          `json:"balance"`
	BalanceDisplay    string           `json:"balance_display"`
	Tokens            []TokenPnLOutput `json:"tokens"`
	TotalRealizedPnL  float64          `json:"total_realized_pnl"`
	EngineRealizedPnL float64          `json:"engine_realized_pnl"`
	TotalDisplay      string           `json:"total_display"`
	GeneratedAt       string           `json:"generated_at"`
}

// SummaryOutput is the AI portfolio summary
type SummaryOutput struct {
	Summary string    `json:"summary"`
	Report  PnLOutput `json:"report"`
}

// NewPnLOutput converts a report for display in currency
func NewPnLOutput(r *domain.PnLReport, currency string) PnLOutput {
	out := PnLOutput{
		WalletAddress:     domain.ChecksumAddress(r.UserID),
		Balance:           r.Balance,
		BalanceDisplay:    service.FormatAmount(r.Balance, currency),
		Tokens:            make([]TokenPnLOutput, 0, len(r.Tokens)),
		TotalRealizedPnL:  r.TotalRealizedPnL,
		EngineRealizedPnL: r.EngineRealizedPnL,
		TotalDisplay:      service.FormatAmount(r.TotalRealizedPnL, currency),
		GeneratedAt:       formatTime(r.GeneratedAt),
	}
	for _, t := range r.Tokens {
		out.Tokens = append(out.Tokens, TokenPnLOutput{
			TokenAddress:    domain.ChecksumAddress(t.TokenAddress),
			TokenSymbol:     t.TokenSymbol,
			TokenName:       t.TokenName,
			BuyAmount:       t.BuyAmount,
			BuyTotalBase:    t.BuyTotalBase,
			SellAmount:      t.SellAmount,
			SellTotalBase:   t.SellTotalBase,
			AvgBuyPrice:     t.AvgBuyPrice,
			AvgSellPrice:    t.AvgSellPrice,
			RealizedPnL:     t.RealizedPnL,
			RealizedDisplay: service.FormatAmount(t.RealizedPnL, currency),
			Volume:          t.Volume(),
			TradeCount:      t.TradeCount,
			FirstTradeAt:    formatTime(t.FirstTradeAt),
			LastTradeAt:     formatTime(t.LastTradeAt),
		})
	}
	return out
}

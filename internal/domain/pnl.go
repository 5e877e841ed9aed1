package domain

import "time"

// TokenPnL holds lifetime statistics for one token, derived from the trade log.
type TokenPnL struct {
	TokenAddress  string    `json:"token_address"`
	TokenSymbol   string    `json:"token_symbol"`
	TokenName     string    `json:"token_name"`
	BuyAmount     float64   `json:"buy_amount"`
	BuyTotalBase  float64   `json:"buy_total_base"`
	SellAmount    float64   `json:"sell_amount"`
	SellTotalBase float64   `json:"sell_total_base"`
	AvgBuyPrice   float64   `json:"avg_buy_price"`
	AvgSellPrice  float64   `json:"avg_sell_price"`
	RealizedPnL   float64   `json:"realized_pnl"`
	TradeCount    int       `json:"trade_count"`
	FirstTradeAt  time.Time `json:"first_trade_at"`
	LastTradeAt   time.Time `json:"last_trade_at"`
}

// Volume is the gross base-currency value traded in both directions.
func (p TokenPnL) Volume() float64 {
	return p.BuyTotalBase + p.SellTotalBase
}

// PnLReport aggregates per-token statistics for one user.
//
// TotalRealizedPnL uses the lifetime-average formula; EngineRealizedPnL sums the
// realized P&L captured by the accounting engine at each sell. They diverge when
// the average cost changes between sells of the same token.
type PnLReport struct {
	UserID            string     `json:"user_id"`
	Balance           float64    `json:"balance"`
	Tokens            []TokenPnL `json:"tokens"`
	TotalRealizedPnL  float64    `json:"total_realized_pnl"`
	EngineRealizedPnL float64    `json:"engine_realized_pnl"`
	GeneratedAt       time.Time  `json:"generated_at"`
}

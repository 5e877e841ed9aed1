package domain

import (
	"time"
)

// StartingBalance is the base-currency balance a ledger is seeded with on first use.
const StartingBalance = 1500.0

// HoldingEpsilon is the amount at or below which a holding counts as closed.
const HoldingEpsilon = 1e-6

// Side is the direction of a trade.
type Side string

// Side constants
const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is a known trade side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Holding is a user's current position in one token.
type Holding struct {
	TokenAddress  string    `json:"token_address"`
	TokenSymbol   string    `json:"token_symbol"`
	TokenName     string    `json:"token_name"`
	Amount        float64   `json:"amount"`
	AverageCost   float64   `json:"average_cost"`
	TotalInvested float64   `json:"total_invested"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Trade is an immutable entry of the trade log.
type Trade struct {
	ID             string    `json:"id"`
	TokenAddress   string    `json:"token_address"`
	TokenSymbol    string    `json:"token_symbol"`
	TokenName      string    `json:"token_name"`
	Side           Side      `json:"side"`
	Amount         float64   `json:"amount"`
	UnitPrice      float64   `json:"unit_price"`
	TotalBase      float64   `json:"total_base"`
	ReferencePrice float64   `json:"reference_price"`
	RealizedPnL    *float64  `json:"realized_pnl,omitempty"` // set on sells only
	Timestamp      time.Time `json:"timestamp"`
}

// Ledger is the full state of one user's simulated account.
// Trades are ordered most-recent-first.
type Ledger struct {
	UserID    string    `json:"user_id"`
	Balance   float64   `json:"balance"`
	Holdings  []Holding `json:"holdings"`
	Trades    []Trade   `json:"trades"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLedger returns a freshly seeded ledger for userID.
func NewLedger(userID string, now time.Time) *Ledger {
	return &Ledger{
		UserID:    userID,
		Balance:   StartingBalance,
		Holdings:  []Holding{},
		Trades:    []Trade{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Holding returns the holding for tokenAddress, or nil.
func (l *Ledger) Holding(tokenAddress string) *Holding {
	for i := range l.Holdings {
		if l.Holdings[i].TokenAddress == tokenAddress {
			return &l.Holdings[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate it without touching the original.
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	c := *l
	c.Holdings = append([]Holding(nil), l.Holdings...)
	c.Trades = make([]Trade, len(l.Trades))
	for i, t := range l.Trades {
		if t.RealizedPnL != nil {
			pnl := *t.RealizedPnL
			t.RealizedPnL = &pnl
		}
		c.Trades[i] = t
	}
	if c.Holdings == nil {
		c.Holdings = []Holding{}
	}
	return &c
}

// PutHolding replaces the holding for h.TokenAddress, appending it if absent.
func (l *Ledger) PutHolding(h Holding) {
	for i := range l.Holdings {
		if l.Holdings[i].TokenAddress == h.TokenAddress {
			l.Holdings[i] = h
			return
		}
	}
	l.Holdings = append(l.Holdings, h)
}

// RemoveHolding drops the holding for tokenAddress if present.
func (l *Ledger) RemoveHolding(tokenAddress string) {
	for i := range l.Holdings {
		if l.Holdings[i].TokenAddress == tokenAddress {
			l.Holdings = append(l.Holdings[:i], l.Holdings[i+1:]...)
			return
		}
	}
}

// PrependTrade adds t at the head of the log.
func (l *Ledger) PrependTrade(t Trade) {
	l.Trades = append([]Trade{t}, l.Trades...)
}

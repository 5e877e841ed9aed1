package accounting

import (
	"fmt"

	"papertrade/internal/domain"
)

// Replay rebuilds balance and holdings from scratch by applying trades oldest
// first, starting from domain.StartingBalance. trades must be in ledger order
// (most-recent-first). It is used to check incremental state for drift.
func Replay(trades []domain.Trade) (float64, []domain.Holding, error) {
	balance := domain.StartingBalance
	state := domain.Ledger{Holdings: []domain.Holding{}}

	for i := len(trades) - 1; i >= 0; i-- {
		t := trades[i]
		current := state.Holding(t.TokenAddress)

		switch t.Side {
		case domain.SideBuy:
			res, err := ApplyBuy(balance, current, TokenRef{Address: t.TokenAddress, Symbol: t.TokenSymbol, Name: t.TokenName}, t.Amount, t.UnitPrice)
			if err != nil {
				return 0, nil, fmt.Errorf("replay trade %s: %w", t.ID, err)
			}
			balance = res.Balance
			state.PutHolding(res.Holding)
		case domain.SideSell:
			res, err := ApplySell(balance, current, t.Amount, t.UnitPrice)
			if err != nil {
				return 0, nil, fmt.Errorf("replay trade %s: %w", t.ID, err)
			}
			balance = res.Balance
			if res.Holding == nil {
				state.RemoveHolding(t.TokenAddress)
			} else {
				state.PutHolding(*res.Holding)
			}
		default:
			return 0, nil, fmt.Errorf("replay trade %s: %w: %q", t.ID, domain.ErrInvalidSide, t.Side)
		}
	}

	return balance, state.Holdings, nil
}

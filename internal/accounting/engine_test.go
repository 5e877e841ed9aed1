package accounting

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/domain"
)

const tokenA = "0x1111111111111111111111111111111111111111"

var refA = TokenRef{Address: tokenA, Symbol: "AAA", Name: "Token A"}

func TestApplyBuy_NewHolding(t *testing.T) {
	res, err := ApplyBuy(1500, nil, refA, 100, 2)
	require.NoError(t, err)

	assert.InDelta(t, 1300, res.Balance, 1e-9)
	assert.InDelta(t, 200, res.TotalBase, 1e-9)
	assert.Equal(t, tokenA, res.Holding.TokenAddress)
	assert.Equal(t, "AAA", res.Holding.TokenSymbol)
	assert.InDelta(t, 100, res.Holding.Amount, 1e-9)
	assert.InDelta(t, 2, res.Holding.AverageCost, 1e-9)
	assert.InDelta(t, 200, res.Holding.TotalInvested, 1e-9)
}

func TestApplyBuy_BlendsAverageCost(t *testing.T) {
	first, err := ApplyBuy(1500, nil, refA, 10, 1)
	require.NoError(t, err)

	second, err := ApplyBuy(first.Balance, &first.Holding, refA, 10, 3)
	require.NoError(t, err)

	assert.InDelta(t, 20, second.Holding.Amount, 1e-9)
	assert.InDelta(t, 2, second.Holding.AverageCost, 1e-9)
	assert.InDelta(t, 40, second.Holding.TotalInvested, 1e-9)
	assert.InDelta(t, 1460, second.Balance, 1e-9)
}

func TestApplyBuy_DoesNotMutateInput(t *testing.T) {
	h := domain.Holding{TokenAddress: tokenA, Amount: 5, AverageCost: 2, TotalInvested: 10}
	_, err := ApplyBuy(100, &h, refA, 5, 4)
	require.NoError(t, err)

	assert.Equal(t, domain.Holding{TokenAddress: tokenA, Amount: 5, AverageCost: 2, TotalInvested: 10}, h)
}

func TestApplyBuy_KeepsMetadataWhenRefIsBlank(t *testing.T) {
	h := domain.Holding{TokenAddress: tokenA, TokenSymbol: "AAA", TokenName: "Token A", Amount: 1, AverageCost: 1, TotalInvested: 1}
	res, err := ApplyBuy(100, &h, TokenRef{Address: tokenA}, 1, 1)
	require.NoError(t, err)

	assert.Equal(t, "AAA", res.Holding.TokenSymbol)
	assert.Equal(t, "Token A", res.Holding.TokenName)
}

func TestApplyBuy_Errors(t *testing.T) {
	tests := []struct {
		name      string
		balance   float64
		amount    float64
		unitPrice float64
		wantErr   error
	}{
		{"zero amount", 100, 0, 1, domain.ErrInvalidAmount},
		{"negative amount", 100, -1, 1, domain.ErrInvalidAmount},
		{"NaN amount", 100, math.NaN(), 1, domain.ErrInvalidAmount},
		{"infinite amount", 100, math.Inf(1), 1, domain.ErrInvalidAmount},
		{"negative price", 100, 1, -1, domain.ErrInvalidPrice},
		{"NaN price", 100, 1, math.NaN(), domain.ErrInvalidPrice},
		{"exceeds balance", 100, 51, 2, domain.ErrInsufficientBalance},
		{"value overflows", math.MaxFloat64, 10, 1e308, domain.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyBuy(tt.balance, nil, refA, tt.amount, tt.unitPrice)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApplyBuy_ExactBalanceAllowed(t *testing.T) {
	res, err := ApplyBuy(100, nil, refA, 50, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Balance, 1e-12)
}

func TestApplyBuy_FreeTokens(t *testing.T) {
	res, err := ApplyBuy(0, nil, refA, 10, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Holding.AverageCost, 1e-12)
	assert.InDelta(t, 0, res.Balance, 1e-12)
}

func TestApplyBuy_HoldingOverflowRejected(t *testing.T) {
	first, err := ApplyBuy(0, nil, refA, 1e308, 0)
	require.NoError(t, err)

	_, err = ApplyBuy(first.Balance, &first.Holding, refA, 1e308, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Equal(t, 1e308, first.Holding.Amount)
}

func TestApplySell_BalanceOverflowRejected(t *testing.T) {
	h := &domain.Holding{TokenAddress: tokenA, Amount: 1, AverageCost: 1, TotalInvested: 1}

	_, err := ApplySell(math.MaxFloat64, h, 1, math.MaxFloat64)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestApplySell_PartialScenario(t *testing.T) {
	buy, err := ApplyBuy(1500, nil, refA, 100, 2)
	require.NoError(t, err)

	sell, err := ApplySell(buy.Balance, &buy.Holding, 40, 3)
	require.NoError(t, err)

	assert.InDelta(t, 120, sell.TotalBase, 1e-9)
	assert.InDelta(t, 80, sell.InvestedInSold, 1e-9)
	assert.InDelta(t, 40, sell.RealizedPnL, 1e-9)
	assert.InDelta(t, 1420, sell.Balance, 1e-9)
	assert.False(t, sell.Closed)
	require.NotNil(t, sell.Holding)
	assert.InDelta(t, 60, sell.Holding.Amount, 1e-9)
	assert.InDelta(t, 2, sell.Holding.AverageCost, 1e-9)
	assert.InDelta(t, 120, sell.Holding.TotalInvested, 1e-9)
}

func TestApplySell_FullCloseRemovesHolding(t *testing.T) {
	h := domain.Holding{TokenAddress: tokenA, Amount: 10, AverageCost: 2, TotalInvested: 20}

	sell, err := ApplySell(0, &h, 10, 2.5)
	require.NoError(t, err)

	assert.True(t, sell.Closed)
	assert.Nil(t, sell.Holding)
	assert.InDelta(t, 25, sell.Balance, 1e-9)
	assert.InDelta(t, 5, sell.RealizedPnL, 1e-9)
}

func TestApplySell_DustRemainderCloses(t *testing.T) {
	h := domain.Holding{TokenAddress: tokenA, Amount: 10, AverageCost: 1, TotalInvested: 10}

	sell, err := ApplySell(0, &h, 10-5e-7, 1)
	require.NoError(t, err)
	assert.True(t, sell.Closed)
	assert.Nil(t, sell.Holding)
}

func TestApplySell_Errors(t *testing.T) {
	h := &domain.Holding{TokenAddress: tokenA, Amount: 10, AverageCost: 2, TotalInvested: 20}

	tests := []struct {
		name    string
		holding *domain.Holding
		amount  float64
		price   float64
		wantErr error
	}{
		{"no holding", nil, 1, 1, domain.ErrNoSuchHolding},
		{"too many", h, 10.5, 1, domain.ErrInsufficientHoldings},
		{"zero amount", h, 0, 1, domain.ErrInvalidAmount},
		{"negative amount", h, -3, 1, domain.ErrInvalidAmount},
		{"negative price", h, 1, -2, domain.ErrInvalidPrice},
		{"value overflows", h, 10, 1e308, domain.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplySell(100, tt.holding, tt.amount, tt.price)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 10.0, h.Amount)
}

func TestRoundTripAtSamePriceIsFlat(t *testing.T) {
	buy, err := ApplyBuy(1500, nil, refA, 123.456, 0.789)
	require.NoError(t, err)

	sell, err := ApplySell(buy.Balance, &buy.Holding, 123.456, 0.789)
	require.NoError(t, err)

	assert.InDelta(t, 0, sell.RealizedPnL, 1e-9)
	assert.InDelta(t, 1500, sell.Balance, 1e-9)
	assert.True(t, sell.Closed)
}

// Randomised sequences check the balance identities and that partial sells
// never move the average cost.
func TestBalanceAndAverageCostStayConsistent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	balance := domain.StartingBalance
	var holding *domain.Holding

	for i := 0; i < 2000; i++ {
		price := 0.01 + rng.Float64()*10

		if holding == nil || rng.Intn(2) == 0 {
			amount := 0.001 + rng.Float64()*(balance/price)/4
			res, err := ApplyBuy(balance, holding, refA, amount, price)
			if err != nil {
				require.ErrorIs(t, err, domain.ErrInsufficientBalance)
				continue
			}
			assert.InDelta(t, balance, res.Balance+res.TotalBase, 1e-6)
			if holding != nil {
				want := (holding.TotalInvested + res.TotalBase) / (holding.Amount + amount)
				assert.InDelta(t, want, res.Holding.AverageCost, 1e-9)
			}
			balance = res.Balance
			h := res.Holding
			holding = &h
			continue
		}

		amount := holding.Amount * (0.05 + rng.Float64()*0.9)
		before := holding.AverageCost
		res, err := ApplySell(balance, holding, amount, price)
		require.NoError(t, err)
		assert.InDelta(t, balance+res.TotalBase, res.Balance, 1e-6)
		if res.Holding != nil {
			assert.Greater(t, res.Holding.Amount, 0.0)
			assert.InEpsilon(t, before, res.Holding.AverageCost, 1e-6)
			assert.InEpsilon(t, res.Holding.Amount*res.Holding.AverageCost, res.Holding.TotalInvested, 1e-6)
		}
		balance = res.Balance
		holding = res.Holding
	}
}

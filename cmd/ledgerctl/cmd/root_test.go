package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"papertrade/internal/domain"
	"papertrade/internal/repository"
	"papertrade/internal/service"
	"papertrade/internal/usecase"
)

const (
	testUser  = "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	testToken = "0x1111111111111111111111111111111111111111"
)

type fixedPrices struct {
	price float64
}

func (p *fixedPrices) GetUnitPrice(context.Context, string) (domain.Quote, error) {
	if p.price == 0 {
		return domain.Quote{}, domain.ErrPriceUnavailable
	}
	return domain.Quote{Price: p.price, AsOf: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}, nil
}

func (p *fixedPrices) GetReferencePrice(context.Context) (domain.Quote, error) {
	return domain.Quote{Price: 1}, nil
}

func (p *fixedPrices) Invalidate(string) {}

func testOpener(t *testing.T, prices *fixedPrices) opener {
	dir := t.TempDir()
	return func(context.Context, *rootOptions) (*runtime, error) {
		store, err := repository.NewFileLedgerStore(dir)
		if err != nil {
			return nil, err
		}
		executor := usecase.NewTradeExecutor(store, zap.NewNop())
		return &runtime{
			executor: executor,
			prices:   prices,
			reports:  service.NewPnLReportService(executor, nil, zap.NewNop()),
			currency: "USD",
			close:    func() { store.Close() },
		}, nil
	}
}

func run(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLedgerctl_TradeFlow(t *testing.T) {
	open := testOpener(t, &fixedPrices{price: 2})

	out, err := run(t, open, "--user", testUser, "balance")
	require.NoError(t, err)
	assert.Equal(t, "$1,500.00\n", out)

	out, err = run(t, open, "--user", testUser, "buy", testToken, "100", "--symbol", "AAA")
	require.NoError(t, err)
	assert.Contains(t, out, "buy 100 AAA @ 2 = $200.00")
	assert.Contains(t, out, "Balance: $1,300.00")

	out, err = run(t, open, "--user", testUser, "sell", testToken, "40", "--price", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Realized P&L: $40.00")
	assert.Contains(t, out, "Balance: $1,420.00")

	out, err = run(t, open, "--user", testUser, "holdings")
	require.NoError(t, err)
	assert.Contains(t, out, "AAA")
	assert.Contains(t, out, "$120.00")

	out, err = run(t, open, "--user", testUser, "trades", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "SELL")
	assert.NotContains(t, out, "BUY")

	out, err = run(t, open, "--user", testUser, "pnl", "--sort", "realized_pnl", "--desc")
	require.NoError(t, err)
	assert.Contains(t, out, "Total realized: $40.00 (engine: $40.00)")

	_, err = run(t, open, "--user", testUser, "reset")
	assert.Error(t, err)

	out, err = run(t, open, "--user", testUser, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "$1,500.00")

	out, err = run(t, open, "--user", testUser, "trades")
	require.NoError(t, err)
	assert.Equal(t, "No trades\n", out)
}

func TestLedgerctl_Errors(t *testing.T) {
	open := testOpener(t, &fixedPrices{})

	_, err := run(t, open, "balance")
	assert.Error(t, err, "missing --user")

	_, err = run(t, open, "--user", testUser, "buy", testToken, "1")
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)

	_, err = run(t, open, "--user", testUser, "buy", testToken, "0")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = run(t, open, "--user", testUser, "buy", testToken, "lots", "--price", "1")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = run(t, open, "--user", testUser, "sell", testToken, "1", "--price", "1")
	assert.ErrorIs(t, err, domain.ErrNoSuchHolding)

	_, err = run(t, open, "--user", testUser, "pnl", "--sort", "bogus")
	assert.Error(t, err)
}

func TestLedgerctl_Price(t *testing.T) {
	open := testOpener(t, &fixedPrices{price: 0.125})

	out, err := run(t, open, "price", testToken)
	require.NoError(t, err)
	assert.Contains(t, out, "0.125")
	assert.Contains(t, out, "2026-01-02 03:04:05")
}

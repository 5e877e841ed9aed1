package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"papertrade/internal/domain"
)

type mapStore struct {
	ledgers map[string]*domain.Ledger
	listErr error
}

func (s *mapStore) ReadLedger(_ context.Context, userID string) (*domain.Ledger, error) {
	l, ok := s.ledgers[userID]
	if !ok {
		return nil, domain.ErrLedgerNotFound
	}
	return l.Clone(), nil
}

func (s *mapStore) WriteLedger(context.Context, *domain.Ledger) error {
	return errors.New("reconciliation must not write")
}

func (s *mapStore) ResetLedger(context.Context, string) error {
	return errors.New("reconciliation must not write")
}

func (s *mapStore) ListUserIDs(context.Context) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	ids := make([]string, 0, len(s.ledgers))
	for id := range s.ledgers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *mapStore) Close() error { return nil }

// consistentLedger holds 100 AAA at 2 after buying 100 and selling nothing
func consistentLedger(userID string) *domain.Ledger {
	return &domain.Ledger{
		UserID:  userID,
		Balance: 1300,
		Holdings: []domain.Holding{
			{TokenAddress: tokenA, TokenSymbol: "AAA", Amount: 100, AverageCost: 2, TotalInvested: 200},
		},
		Trades: []domain.Trade{trade(tokenA, "AAA", domain.SideBuy, 100, 2, 0)},
	}
}

func TestReconciliation_CleanLedger(t *testing.T) {
	store := &mapStore{ledgers: map[string]*domain.Ledger{"u1": consistentLedger("u1")}}
	svc := NewReconciliationService(store, zap.NewNop())

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Empty(t, report.Drifts)
	assert.Empty(t, report.Failed)
	assert.False(t, report.Finished.Before(report.Started))
}

func TestReconciliation_ReportsDrift(t *testing.T) {
	drifted := consistentLedger("u2")
	drifted.Balance = 1299
	drifted.Holdings[0].Amount = 100.5
	drifted.Holdings = append(drifted.Holdings, domain.Holding{TokenAddress: tokenB, Amount: 3})

	store := &mapStore{ledgers: map[string]*domain.Ledger{
		"u1": consistentLedger("u1"),
		"u2": drifted,
	}}
	svc := NewReconciliationService(store, zap.NewNop())

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)

	fields := map[string]bool{}
	for _, d := range report.Drifts {
		assert.Equal(t, "u2", d.UserID)
		fields[d.TokenAddress+"/"+d.Field] = true
	}
	assert.True(t, fields["/balance"])
	assert.True(t, fields[tokenA+"/amount"])
	assert.True(t, fields[tokenB+"/amount"])
}

func TestReconciliation_ToleratesFloatNoise(t *testing.T) {
	l := consistentLedger("u1")
	l.Balance += 1e-10
	l.Holdings[0].TotalInvested += 1e-10

	drifts, err := NewReconciliationService(&mapStore{ledgers: map[string]*domain.Ledger{"u1": l}}, nil).
		CheckUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestReconciliation_MissingHoldingIsDrift(t *testing.T) {
	l := consistentLedger("u1")
	l.Holdings = nil

	drifts, err := NewReconciliationService(&mapStore{ledgers: map[string]*domain.Ledger{"u1": l}}, nil).
		CheckUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, tokenA, drifts[0].TokenAddress)
	assert.InDelta(t, 100, drifts[0].Replayed, 1e-9)
}

func TestReconciliation_UnreplayableLogIsFailure(t *testing.T) {
	bad := &domain.Ledger{
		UserID:  "u1",
		Balance: 1500,
		Trades:  []domain.Trade{trade(tokenA, "AAA", domain.SideSell, 1, 1, time.Minute)},
	}
	store := &mapStore{ledgers: map[string]*domain.Ledger{"u1": bad}}

	report, err := NewReconciliationService(store, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, report.Failed)
}

func TestReconciliation_ListError(t *testing.T) {
	store := &mapStore{listErr: errors.New("boom")}
	_, err := NewReconciliationService(store, nil).Run(context.Background())
	assert.Error(t, err)
}

func TestReconciliation_Cancelled(t *testing.T) {
	store := &mapStore{ledgers: map[string]*domain.Ledger{"u1": consistentLedger("u1")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReconciliationService(store, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

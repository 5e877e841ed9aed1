package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"papertrade/internal/accounting"
	"papertrade/internal/domain"
)

// driftTolerance is the relative difference tolerated between stored and
// replayed figures before a ledger is reported as drifted.
const driftTolerance = 1e-6

// Drift describes one figure that no longer matches a replay of the trade log
type Drift struct {
	UserID       string  `json:"user_id"`
	TokenAddress string  `json:"token_address,omitempty"` // empty for the cash balance
	Field        string  `json:"field"`
	Stored       float64 `json:"stored"`
	Replayed     float64 `json:"replayed"`
}

// ReconcileReport is the outcome of one reconciliation sweep
type ReconcileReport struct {
	Checked  int       `json:"checked"`
	Drifts   []Drift   `json:"drifts"`
	Failed   []string  `json:"failed"` // users whose ledger or log could not be replayed
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// ReconciliationService replays every stored trade log through the accounting
// engine and reports figures that have drifted. It never writes.
type ReconciliationService struct {
	store  domain.LedgerStore
	logger *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(store domain.LedgerStore, logger *zap.Logger) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{store: store, logger: logger}
}

// Run checks all ledgers known to the store
func (s *ReconciliationService) Run(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{Started: time.Now().UTC(), Drifts: []Drift{}, Failed: []string{}}

	userIDs, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledgers: %w", err)
	}

	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		drifts, err := s.CheckUser(ctx, userID)
		report.Checked++
		if err != nil {
			s.logger.Error("reconciliation failed", zap.String("user_id", userID), zap.Error(err))
			report.Failed = append(report.Failed, userID)
			continue
		}
		for _, d := range drifts {
			s.logger.Warn("ledger drift",
				zap.String("user_id", d.UserID),
				zap.String("token", d.TokenAddress),
				zap.String("field", d.Field),
				zap.Float64("stored", d.Stored),
				zap.Float64("replayed", d.Replayed))
		}
		report.Drifts = append(report.Drifts, drifts...)
	}

	report.Finished = time.Now().UTC()
	s.logger.Info("reconciliation complete",
		zap.Int("checked", report.Checked),
		zap.Int("drifts", len(report.Drifts)),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("took", report.Finished.Sub(report.Started)))
	return report, nil
}

// CheckUser compares one stored ledger against a replay of its trade log
func (s *ReconciliationService) CheckUser(ctx context.Context, userID string) ([]Drift, error) {
	ledger, err := s.store.ReadLedger(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	balance, holdings, err := accounting.Replay(ledger.Trades)
	if err != nil {
		return nil, err
	}

	var drifts []Drift
	if drifted(ledger.Balance, balance) {
		drifts = append(drifts, Drift{UserID: userID, Field: "balance", Stored: ledger.Balance, Replayed: balance})
	}

	replayed := make(map[string]domain.Holding, len(holdings))
	for _, h := range holdings {
		replayed[h.TokenAddress] = h
	}

	for _, stored := range ledger.Holdings {
		want, ok := replayed[stored.TokenAddress]
		delete(replayed, stored.TokenAddress)
		if !ok {
			drifts = append(drifts, Drift{UserID: userID, TokenAddress: stored.TokenAddress, Field: "amount", Stored: stored.Amount})
			continue
		}
		if drifted(stored.Amount, want.Amount) {
			drifts = append(drifts, Drift{UserID: userID, TokenAddress: stored.TokenAddress, Field: "amount", Stored: stored.Amount, Replayed: want.Amount})
		}
		if drifted(stored.TotalInvested, want.TotalInvested) {
			drifts = append(drifts, Drift{UserID: userID, TokenAddress: stored.TokenAddress, Field: "total_invested", Stored: stored.TotalInvested, Replayed: want.TotalInvested})
		}
	}
	for addr, missing := range replayed {
		drifts = append(drifts, Drift{UserID: userID, TokenAddress: addr, Field: "amount", Replayed: missing.Amount})
	}

	return drifts, nil
}

func drifted(stored, replayed float64) bool {
	scale := math.Max(1, math.Max(math.Abs(stored), math.Abs(replayed)))
	return math.Abs(stored-replayed) > driftTolerance*scale
}

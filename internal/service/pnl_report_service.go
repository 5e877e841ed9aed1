package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"papertrade/internal/domain"
)

// Sort keys accepted by SortTokenPnL
const (
	SortByToken       = "token"
	SortByRealizedPnL = "realized_pnl"
	SortByVolume      = "volume"
	SortByLastTrade   = "last_trade"
)

// SummaryPlaceholder is returned when no AI summary can be produced
const SummaryPlaceholder = "Summary unavailable right now."

// pnlEpsilon keeps the lifetime formula finite when nothing was bought.
const pnlEpsilon = 1e-9

// ComputeTokenPnL folds a trade log (most-recent-first) into one entry per token
// ever traded, closed positions included. Entries come out in order of first
// appearance, oldest first.
//
// RealizedPnL uses the lifetime average: sellTotal - sellAmount/buyAmount*buyTotal.
// It is a reporting approximation and differs from the per-sell figures the
// accounting engine records when the average cost moves between sells.
func ComputeTokenPnL(trades []domain.Trade) []domain.TokenPnL {
	index := make(map[string]int)
	var out []domain.TokenPnL

	for i := len(trades) - 1; i >= 0; i-- {
		t := trades[i]
		pos, ok := index[t.TokenAddress]
		if !ok {
			pos = len(out)
			index[t.TokenAddress] = pos
			out = append(out, domain.TokenPnL{
				TokenAddress: t.TokenAddress,
				FirstTradeAt: t.Timestamp,
			})
		}

		entry := &out[pos]
		if t.TokenSymbol != "" {
			entry.TokenSymbol = t.TokenSymbol
		}
		if t.TokenName != "" {
			entry.TokenName = t.TokenName
		}
		switch t.Side {
		case domain.SideBuy:
			entry.BuyAmount += t.Amount
			entry.BuyTotalBase += t.TotalBase
		case domain.SideSell:
			entry.SellAmount += t.Amount
			entry.SellTotalBase += t.TotalBase
		}
		entry.TradeCount++
		if t.Timestamp.After(entry.LastTradeAt) {
			entry.LastTradeAt = t.Timestamp
		}
		if t.Timestamp.Before(entry.FirstTradeAt) {
			entry.FirstTradeAt = t.Timestamp
		}
	}

	for i := range out {
		e := &out[i]
		if e.BuyAmount > 0 {
			e.AvgBuyPrice = e.BuyTotalBase / e.BuyAmount
		}
		if e.SellAmount > 0 {
			e.AvgSellPrice = e.SellTotalBase / e.SellAmount
		}
		e.RealizedPnL = e.SellTotalBase - (e.SellAmount/math.Max(e.BuyAmount, pnlEpsilon))*e.BuyTotalBase
	}

	return out
}

// SortTokenPnL orders entries in place by key. Unknown keys leave the order
// unchanged and return false.
func SortTokenPnL(entries []domain.TokenPnL, key string, desc bool) bool {
	var less func(a, b domain.TokenPnL) bool
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", SortByToken:
		less = func(a, b domain.TokenPnL) bool {
			as, bs := strings.ToLower(a.TokenSymbol), strings.ToLower(b.TokenSymbol)
			if as != bs {
				return as < bs
			}
			return a.TokenAddress < b.TokenAddress
		}
	case SortByRealizedPnL:
		less = func(a, b domain.TokenPnL) bool { return a.RealizedPnL < b.RealizedPnL }
	case SortByVolume:
		less = func(a, b domain.TokenPnL) bool { return a.Volume() < b.Volume() }
	case SortByLastTrade:
		less = func(a, b domain.TokenPnL) bool { return a.LastTradeAt.Before(b.LastTradeAt) }
	default:
		return false
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if desc {
			return less(entries[j], entries[i])
		}
		return less(entries[i], entries[j])
	})
	return true
}

// LedgerReader is the read side of the trade executor
type LedgerReader interface {
	GetLedger(ctx context.Context, userID string) (*domain.Ledger, error)
}

// PnLReportService builds read-only P&L reports from a user's trade log
type PnLReportService struct {
	ledgers    LedgerReader
	summarizer domain.SummaryService
	logger     *zap.Logger
	now        func() time.Time
}

// NewPnLReportService creates a new PnLReportService. summarizer may be nil.
func NewPnLReportService(ledgers LedgerReader, summarizer domain.SummaryService, logger *zap.Logger) *PnLReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PnLReportService{
		ledgers:    ledgers,
		summarizer: summarizer,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Report returns per-token statistics and totals for userID
func (s *PnLReportService) Report(ctx context.Context, userID string) (*domain.PnLReport, error) {
	ledger, err := s.ledgers.GetLedger(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	tokens := ComputeTokenPnL(ledger.Trades)
	report := &domain.PnLReport{
		UserID:      ledger.UserID,
		Balance:     ledger.Balance,
		Tokens:      tokens,
		GeneratedAt: s.now(),
	}
	for _, t := range tokens {
		report.TotalRealizedPnL += t.RealizedPnL
	}
	for _, t := range ledger.Trades {
		if t.RealizedPnL != nil {
			report.EngineRealizedPnL += *t.RealizedPnL
		}
	}
	return report, nil
}

// Summary returns a short natural-language description of the user's P&L. Any
// summarizer failure degrades to SummaryPlaceholder; only ledger errors fail.
func (s *PnLReportService) Summary(ctx context.Context, userID string) (string, *domain.PnLReport, error) {
	report, err := s.Report(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	if s.summarizer == nil {
		return SummaryPlaceholder, report, nil
	}

	text, err := s.summarizer.Summarize(ctx, report)
	if err != nil || strings.TrimSpace(text) == "" {
		s.logger.Warn("portfolio summary unavailable", zap.String("user_id", userID), zap.Error(err))
		return SummaryPlaceholder, report, nil
	}
	return text, report, nil
}

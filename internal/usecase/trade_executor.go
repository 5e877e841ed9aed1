package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"papertrade/internal/accounting"
	"papertrade/internal/domain"
)

// totalBaseTolerance is the relative gap tolerated between a caller-supplied
// total and amount*unitPrice before a warning is logged.
const totalBaseTolerance = 1e-6

// TradeRequest carries everything needed to execute one trade. Prices are
// resolved by the caller; the executor makes no network calls.
type TradeRequest struct {
	UserID         string
	TokenAddress   string
	TokenSymbol    string
	TokenName      string
	Side           domain.Side
	Amount         float64
	UnitPrice      float64
	TotalBase      float64 // informational; recomputed from Amount and UnitPrice
	ReferencePrice float64
}

// TradeResult is returned for a committed trade.
type TradeResult struct {
	Trade       domain.Trade
	RealizedPnL *float64 // nil for buys
	Ledger      *domain.Ledger
}

// TradeExecutor is the only path that mutates a ledger. It serialises work
// per user and persists every trade as a single write.
type TradeExecutor struct {
	store  domain.LedgerStore
	logger *zap.Logger
	locks  *userLocks
	now    func() time.Time
	newID  func() (string, error)
}

// ExecutorOption customises a TradeExecutor
type ExecutorOption func(*TradeExecutor)

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *TradeExecutor) { e.now = now }
}

// WithIDGenerator overrides how trade ids are generated
func WithIDGenerator(newID func() (string, error)) ExecutorOption {
	return func(e *TradeExecutor) { e.newID = newID }
}

// NewTradeExecutor creates a TradeExecutor bound to store
func NewTradeExecutor(store domain.LedgerStore, logger *zap.Logger, opts ...ExecutorOption) *TradeExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &TradeExecutor{
		store:  store,
		logger: logger,
		locks:  newUserLocks(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  newTradeID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// newTradeID returns a UUIDv7, which is unique and ordered by creation time.
func newTradeID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ExecuteTrade validates req, applies it to the user's ledger and persists the
// result. On any error the stored ledger is left exactly as it was.
func (e *TradeExecutor) ExecuteTrade(ctx context.Context, req TradeRequest) (*TradeResult, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.TokenAddress = strings.TrimSpace(req.TokenAddress)
	if err := req.validate(); err != nil {
		return nil, err
	}

	unlock, err := e.locks.acquire(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := e.load(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	next := current.Clone()
	trade := domain.Trade{
		TokenAddress:   req.TokenAddress,
		TokenSymbol:    req.TokenSymbol,
		TokenName:      req.TokenName,
		Side:           req.Side,
		Amount:         req.Amount,
		UnitPrice:      req.UnitPrice,
		ReferencePrice: req.ReferencePrice,
		Timestamp:      now,
	}

	var realized *float64
	switch req.Side {
	case domain.SideBuy:
		ref := accounting.TokenRef{Address: req.TokenAddress, Symbol: req.TokenSymbol, Name: req.TokenName}
		res, err := accounting.ApplyBuy(next.Balance, next.Holding(req.TokenAddress), ref, req.Amount, req.UnitPrice)
		if err != nil {
			e.logRejected(req, err)
			return nil, err
		}
		res.Holding.UpdatedAt = now
		next.Balance = res.Balance
		next.PutHolding(res.Holding)
		trade.TotalBase = res.TotalBase

	case domain.SideSell:
		holding := next.Holding(req.TokenAddress)
		res, err := accounting.ApplySell(next.Balance, holding, req.Amount, req.UnitPrice)
		if err != nil {
			e.logRejected(req, err)
			return nil, err
		}
		if trade.TokenSymbol == "" {
			trade.TokenSymbol = holding.TokenSymbol
		}
		if trade.TokenName == "" {
			trade.TokenName = holding.TokenName
		}
		next.Balance = res.Balance
		if res.Closed {
			next.RemoveHolding(req.TokenAddress)
		} else {
			res.Holding.UpdatedAt = now
			next.PutHolding(*res.Holding)
		}
		trade.TotalBase = res.TotalBase
		pnl := res.RealizedPnL
		realized = &pnl
		tradePnL := pnl
		trade.RealizedPnL = &tradePnL
	}

	e.checkTotalBase(req, trade.TotalBase)

	id, err := e.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate trade id: %w", err)
	}
	trade.ID = id
	next.PrependTrade(trade)
	next.UpdatedAt = now

	if err := e.store.WriteLedger(ctx, next); err != nil {
		e.logger.Error("trade not committed",
			zap.String("user_id", req.UserID),
			zap.String("token", req.TokenAddress),
			zap.String("side", string(req.Side)),
			zap.Error(err))
		return nil, &domain.PersistenceError{Op: "write ledger", Err: err}
	}

	e.logger.Info("trade committed",
		zap.String("user_id", req.UserID),
		zap.String("trade_id", trade.ID),
		zap.String("token", req.TokenAddress),
		zap.String("side", string(req.Side)),
		zap.Float64("amount", trade.Amount),
		zap.Float64("unit_price", trade.UnitPrice),
		zap.Float64("total_base", trade.TotalBase),
		zap.Float64("balance", next.Balance))

	return &TradeResult{Trade: trade, RealizedPnL: realized, Ledger: next}, nil
}

// GetLedger returns the user's ledger, seeding a fresh one in memory when none
// is stored yet. The seed is persisted by the first trade.
func (e *TradeExecutor) GetLedger(ctx context.Context, userID string) (*domain.Ledger, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}

	unlock, err := e.locks.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return e.load(ctx, userID)
}

// ResetLedger restores the starting balance and clears holdings and trades.
func (e *TradeExecutor) ResetLedger(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}

	unlock, err := e.locks.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := e.store.ResetLedger(ctx, userID); err != nil {
		return &domain.PersistenceError{Op: "reset ledger", Err: err}
	}

	e.logger.Info("ledger reset", zap.String("user_id", userID))
	return nil
}

func (e *TradeExecutor) load(ctx context.Context, userID string) (*domain.Ledger, error) {
	ledger, err := e.store.ReadLedger(ctx, userID)
	if errors.Is(err, domain.ErrLedgerNotFound) {
		return domain.NewLedger(userID, e.now()), nil
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "read ledger", Err: err}
	}
	return ledger, nil
}

func (e *TradeExecutor) checkTotalBase(req TradeRequest, computed float64) {
	if req.TotalBase == 0 {
		return
	}
	scale := math.Max(1, math.Abs(computed))
	if math.Abs(req.TotalBase-computed) > totalBaseTolerance*scale {
		e.logger.Warn("caller total differs from amount*unit_price, using computed value",
			zap.String("user_id", req.UserID),
			zap.Float64("caller_total", req.TotalBase),
			zap.Float64("computed_total", computed))
	}
}

func (e *TradeExecutor) logRejected(req TradeRequest, err error) {
	e.logger.Info("trade rejected",
		zap.String("user_id", req.UserID),
		zap.String("token", req.TokenAddress),
		zap.String("side", string(req.Side)),
		zap.Float64("amount", req.Amount),
		zap.Error(err))
}

func (r TradeRequest) validate() error {
	if r.Amount <= 0 || math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidAmount, r.Amount)
	}
	if !r.Side.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSide, r.Side)
	}
	if r.UserID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidRequest)
	}
	if r.TokenAddress == "" {
		return fmt.Errorf("%w: token address is required", domain.ErrInvalidRequest)
	}
	if r.ReferencePrice < 0 || math.IsNaN(r.ReferencePrice) || math.IsInf(r.ReferencePrice, 0) {
		return fmt.Errorf("%w: reference price %v", domain.ErrInvalidPrice, r.ReferencePrice)
	}
	return nil
}

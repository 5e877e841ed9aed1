package http

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"papertrade/internal/delivery/http/dto"
	"papertrade/internal/domain"
	"papertrade/internal/middleware"
	"papertrade/internal/service"
	"papertrade/internal/usecase"
)

const (
	defaultTradeLimit = 50
	maxTradeLimit     = 500
)

// TradeService is the part of the trade executor the API uses
type TradeService interface {
	ExecuteTrade(ctx context.Context, req usecase.TradeRequest) (*usecase.TradeResult, error)
	GetLedger(ctx context.Context, userID string) (*domain.Ledger, error)
	ResetLedger(ctx context.Context, userID string) error
}

// LedgerHandler serves a user's ledger and executes trades
type LedgerHandler struct {
	trades   TradeService
	prices   domain.PriceSource
	currency string
	logger   *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler. currency is used for display strings.
func NewLedgerHandler(trades TradeService, prices domain.PriceSource, currency string, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{trades: trades, prices: prices, currency: currency, logger: logger}
}

// GetLedger returns balance, holdings and the most recent trades
// GET /api/ledger?limit=50
func (h *LedgerHandler) GetLedger(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	limit := defaultTradeLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return BadRequestResponse(c, "limit must be a non-negative integer")
		}
		limit = n
	}
	if limit == 0 || limit > maxTradeLimit {
		limit = maxTradeLimit
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ledger, err := h.trades.GetLedger(ctx, userID)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	return SuccessResponse(c, dto.NewLedgerOutput(ledger, h.currency, limit))
}

// ExecuteTrade buys or sells a token. Missing prices are fetched from the market.
// POST /api/trades
func (h *LedgerHandler) ExecuteTrade(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	var body dto.TradeRequest
	if err := c.Bind(&body); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	token, err := domain.NormalizeAddress(body.TokenAddress)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	req := usecase.TradeRequest{
		UserID:       userID,
		TokenAddress: token,
		TokenSymbol:  strings.TrimSpace(body.TokenSymbol),
		TokenName:    strings.TrimSpace(body.TokenName),
		Side:         domain.Side(strings.ToLower(strings.TrimSpace(body.Side))),
		Amount:       body.Amount,
	}
	if body.TotalBase != nil {
		req.TotalBase = *body.TotalBase
	}

	if err := usecase.ResolvePrices(ctx, h.prices, &req, body.UnitPrice, body.ReferencePrice); err != nil {
		return DomainErrorResponse(c, err)
	}

	result, err := h.trades.ExecuteTrade(ctx, req)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	h.prices.Invalidate(token)

	resp := dto.TradeResponse{
		Trade:          dto.NewTradeOutput(result.Trade, h.currency),
		RealizedPnL:    result.RealizedPnL,
		Balance:        result.Ledger.Balance,
		BalanceDisplay: service.FormatAmount(result.Ledger.Balance, h.currency),
	}
	if holding := result.Ledger.Holding(token); holding != nil {
		out := dto.NewHoldingOutput(*holding, h.currency)
		resp.Holding = &out
	}
	return CreatedResponse(c, resp)
}

// ResetLedger restores the starting balance and clears holdings and trades
// POST /api/ledger/reset
func (h *LedgerHandler) ResetLedger(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.trades.ResetLedger(ctx, userID); err != nil {
		return DomainErrorResponse(c, err)
	}

	ledger, err := h.trades.GetLedger(ctx, userID)
	if err != nil {
		return DomainErrorResponse(c, err)
	}
	return SuccessMessageResponse(c, "Ledger reset", dto.NewLedgerOutput(ledger, h.currency, defaultTradeLimit))
}

package http

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"papertrade/internal/delivery/http/dto"
	"papertrade/internal/domain"
	"papertrade/internal/middleware"
	"papertrade/internal/service"
)

// PnLService builds P&L reports
type PnLService interface {
	Report(ctx context.Context, userID string) (*domain.PnLReport, error)
	Summary(ctx context.Context, userID string) (string, *domain.PnLReport, error)
}

// PnLHandler serves P&L reports
type PnLHandler struct {
	reports  PnLService
	currency string
}

// NewPnLHandler creates a new PnLHandler
func NewPnLHandler(reports PnLService, currency string) *PnLHandler {
	return &PnLHandler{reports: reports, currency: currency}
}

// GetPnL returns per-token lifetime P&L
// GET /api/pnl?sort=realized_pnl&desc=true
func (h *PnLHandler) GetPnL(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	desc := false
	if raw := c.QueryParam("desc"); raw != "" {
		desc, err = strconv.ParseBool(raw)
		if err != nil {
			return BadRequestResponse(c, "desc must be true or false")
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	report, err := h.reports.Report(ctx, userID)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	if sortKey := c.QueryParam("sort"); sortKey != "" {
		if !service.SortTokenPnL(report.Tokens, sortKey, desc) {
			return BadRequestResponse(c, "sort must be one of token, realized_pnl, volume, last_trade")
		}
	}

	return SuccessResponse(c, dto.NewPnLOutput(report, h.currency))
}

// GetSummary returns a natural-language portfolio summary
// GET /api/pnl/summary
func (h *PnLHandler) GetSummary(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	text, report, err := h.reports.Summary(ctx, userID)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	return SuccessResponse(c, dto.SummaryOutput{
		Summary: text,
		Report:  dto.NewPnLOutput(report, h.currency),
	})
}

package http

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"papertrade/internal/delivery/http/dto"
	"papertrade/internal/domain"
	"papertrade/internal/usecase"
)

// PriceHandler serves market prices
type PriceHandler struct {
	prices domain.PriceSource
}

// NewPriceHandler creates a new PriceHandler
func NewPriceHandler(prices domain.PriceSource) *PriceHandler {
	return &PriceHandler{prices: prices}
}

// GetPrice returns the current unit price of a token and the reference rate
// GET /api/prices/:token
func (h *PriceHandler) GetPrice(c echo.Context) error {
	token, err := domain.NormalizeAddress(c.Param("token"))
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	unit, err := h.prices.GetUnitPrice(ctx, token)
	if err != nil {
		return DomainErrorResponse(c, err)
	}
	reference, err := h.prices.GetReferencePrice(ctx)
	if err != nil {
		return DomainErrorResponse(c, err)
	}

	var symbol, name string
	if d, ok := h.prices.(usecase.TokenDescriber); ok {
		symbol, name, _ = d.DescribeToken(token)
	}
	return SuccessResponse(c, dto.NewPriceOutput(token, symbol, name, unit, reference))
}

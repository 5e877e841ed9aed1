package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	custommiddleware "papertrade/internal/middleware"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	Sessions      *custommiddleware.Sessions
	AuthHandler   *AuthHandler
	LedgerHandler *LedgerHandler
	PnLHandler    *PnLHandler
	PriceHandler  *PriceHandler
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())

	e.GET("/health", func(c echo.Context) error {
		return SuccessResponse(c, map[string]interface{}{
			"status":    "healthy",
			"service":   "papertrade-api",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := e.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/session", config.AuthHandler.CreateSession)
		auth.POST("/logout", config.AuthHandler.Logout)
	}

	api.GET("/prices/:token", config.PriceHandler.GetPrice)

	requireSession := config.Sessions.AuthMiddleware
	api.GET("/ledger", config.LedgerHandler.GetLedger, requireSession)
	api.POST("/ledger/reset", config.LedgerHandler.ResetLedger, requireSession)
	api.POST("/trades", config.LedgerHandler.ExecuteTrade, requireSession)
	api.GET("/pnl", config.PnLHandler.GetPnL, requireSession)
	api.GET("/pnl/summary", config.PnLHandler.GetSummary, requireSession)
}

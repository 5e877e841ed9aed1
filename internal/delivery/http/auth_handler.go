package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"papertrade/internal/delivery/http/dto"
	"papertrade/internal/domain"
	"papertrade/internal/middleware"
)

// AuthHandler opens and closes wallet sessions
type AuthHandler struct {
	sessions     *middleware.Sessions
	secureCookie bool
	logger       *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(sessions *middleware.Sessions, secureCookie bool, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{sessions: sessions, secureCookie: secureCookie, logger: logger}
}

// CreateSession issues a session token for a wallet address. Wallet
// signatures are not verified; the address only selects the ledger.
// POST /api/auth/session
func (h *AuthHandler) CreateSession(c echo.Context) error {
	var req dto.SessionRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	wallet, err := domain.NormalizeAddress(req.WalletAddress)
	if err != nil {
		return BadRequestResponse(c, "A valid wallet address is required")
	}

	token, err := h.sessions.GenerateJWT(wallet)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to generate token", err)
	}

	c.SetCookie(&http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.sessions.TTL().Seconds()),
	})

	h.logger.Info("session opened", zap.String("user_id", wallet))

	claims, _ := h.sessions.ParseJWT(token)
	expires := ""
	if claims != nil && claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.UTC().Format(time.RFC3339)
	}

	return SuccessResponse(c, dto.SessionResponse{
		Token:         token,
		WalletAddress: domain.ChecksumAddress(wallet),
		ExpiresAt:     expires,
	})
}

// Logout clears the session cookie
// POST /api/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	return SuccessMessageResponse(c, "Logged out", nil)
}

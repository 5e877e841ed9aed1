package middleware

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

const (
	contextUserID    = "user_id"
	contextSessionID = "session_id"

	// TokenCookie is the cookie that carries the session token for browsers
	TokenCookie = "token"
)

// DevSecret signs tokens when no JWT secret is configured
const DevSecret = "default-secret-change-in-production"

// JWTClaims represents the JWT token claims. UserID is the normalised wallet address.
type JWTClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies session tokens
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions creates a token issuer. An empty secret falls back to DevSecret.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	if secret == "" {
		secret = DevSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns how long issued tokens stay valid
func (s *Sessions) TTL() time.Duration { return s.ttl }

// GenerateJWT issues a token for userID with a unique ULID session id
func (s *Sessions) GenerateJWT(userID string) (string, error) {
	now := s.now()
	jti, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}

	claims := &JWTClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseJWT verifies tokenString and returns its claims
func (s *Sessions) ParseJWT(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// AuthMiddleware validates the session token and sets the user in the context
func (s *Sessions) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			cookie, err := c.Cookie(TokenCookie)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authentication token")
			}
			authHeader = "Bearer " + cookie.Value
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
		}

		claims, err := s.ParseJWT(parts[1])
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		c.Set(contextUserID, claims.UserID)
		c.Set(contextSessionID, claims.ID)

		return next(c)
	}
}

// GetUserID extracts the wallet address from echo context
func GetUserID(c echo.Context) (string, error) {
	userID, ok := c.Get(contextUserID).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user_id not found in context")
	}
	return userID, nil
}

// GetSessionID extracts the session id from echo context
func GetSessionID(c echo.Context) string {
	id, _ := c.Get(contextSessionID).(string)
	return id
}

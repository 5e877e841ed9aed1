package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"papertrade/internal/domain"
)

// TokenPriceFetcher looks up a token's market
type TokenPriceFetcher interface {
	FetchToken(ctx context.Context, tokenAddress string) (*TokenMarket, error)
}

// RateFetcher looks up a currency conversion rate
type RateFetcher interface {
	FetchRate(ctx context.Context, base, display string) (decimal.Decimal, error)
}

type tokenMeta struct {
	symbol string
	name   string
}

// CachedPriceSource implements domain.PriceSource on top of a token price API,
// a reference-rate API and a TTL cache.
type CachedPriceSource struct {
	tokens          TokenPriceFetcher
	rates           RateFetcher
	cache           PriceCache
	ttl             time.Duration
	baseCurrency    string
	displayCurrency string
	logger          *zap.Logger
	now             func() time.Time

	metaMu sync.RWMutex
	meta   map[string]tokenMeta
}

// PriceSourceConfig holds CachedPriceSource settings
type PriceSourceConfig struct {
	TTL             time.Duration
	BaseCurrency    string
	DisplayCurrency string
}

// NewCachedPriceSource creates a new CachedPriceSource. A nil cache disables caching.
func NewCachedPriceSource(tokens TokenPriceFetcher, rates RateFetcher, cache PriceCache, cfg PriceSourceConfig, logger *zap.Logger) *CachedPriceSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.BaseCurrency == "" {
		cfg.BaseCurrency = "USD"
	}
	if cfg.DisplayCurrency == "" {
		cfg.DisplayCurrency = cfg.BaseCurrency
	}
	return &CachedPriceSource{
		tokens:          tokens,
		rates:           rates,
		cache:           cache,
		ttl:             cfg.TTL,
		baseCurrency:    strings.ToUpper(cfg.BaseCurrency),
		displayCurrency: strings.ToUpper(cfg.DisplayCurrency),
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
		meta:            make(map[string]tokenMeta),
	}
}

func tokenKey(tokenAddress string) string {
	return "token:" + strings.ToLower(strings.TrimSpace(tokenAddress))
}

func (s *CachedPriceSource) referenceKey() string {
	return "ref:" + s.baseCurrency + ":" + s.displayCurrency
}

// GetUnitPrice returns the base-currency price of one token unit. A missing or
// zero price is reported as domain.ErrPriceUnavailable.
func (s *CachedPriceSource) GetUnitPrice(ctx context.Context, tokenAddress string) (domain.Quote, error) {
	key := tokenKey(tokenAddress)
	if s.cache != nil {
		if q, ok := s.cache.Get(ctx, key); ok {
			return q, nil
		}
	}

	market, err := s.tokens.FetchToken(ctx, tokenAddress)
	if err != nil {
		s.logger.Warn("token price fetch failed", zap.String("token", tokenAddress), zap.Error(err))
		return domain.Quote{}, fmt.Errorf("%w: %v", domain.ErrPriceUnavailable, err)
	}
	price, _ := market.PriceUSD.Float64()
	if price <= 0 {
		return domain.Quote{}, fmt.Errorf("%w: zero price for %s", domain.ErrPriceUnavailable, tokenAddress)
	}

	s.metaMu.Lock()
	s.meta[strings.ToLower(strings.TrimSpace(tokenAddress))] = tokenMeta{symbol: market.Symbol, name: market.Name}
	s.metaMu.Unlock()

	q := domain.Quote{Price: price, AsOf: s.now()}
	if s.cache != nil {
		s.cache.Set(ctx, key, q, s.ttl)
	}
	return q, nil
}

// GetReferencePrice returns the base to display currency rate
func (s *CachedPriceSource) GetReferencePrice(ctx context.Context) (domain.Quote, error) {
	if s.baseCurrency == s.displayCurrency {
		return domain.Quote{Price: 1, AsOf: s.now()}, nil
	}

	key := s.referenceKey()
	if s.cache != nil {
		if q, ok := s.cache.Get(ctx, key); ok {
			return q, nil
		}
	}

	rate, err := s.rates.FetchRate(ctx, s.baseCurrency, s.displayCurrency)
	if err != nil {
		s.logger.Warn("reference rate fetch failed",
			zap.String("base", s.baseCurrency),
			zap.String("display", s.displayCurrency),
			zap.Error(err))
		return domain.Quote{}, fmt.Errorf("%w: %v", domain.ErrPriceUnavailable, err)
	}
	price, _ := rate.Float64()
	if price <= 0 {
		return domain.Quote{}, fmt.Errorf("%w: zero reference rate", domain.ErrPriceUnavailable)
	}

	q := domain.Quote{Price: price, AsOf: s.now()}
	if s.cache != nil {
		s.cache.Set(ctx, key, q, s.ttl)
	}
	return q, nil
}

// Invalidate drops the cached price for tokenAddress
func (s *CachedPriceSource) Invalidate(tokenAddress string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.cache.Delete(ctx, tokenKey(tokenAddress))
}

// DescribeToken returns the symbol and name seen in the last price lookup
func (s *CachedPriceSource) DescribeToken(tokenAddress string) (string, string, bool) {
	s.metaMu.RLock()
	defer s.metaMu.RUnlock()
	m, ok := s.meta[strings.ToLower(strings.TrimSpace(tokenAddress))]
	return m.symbol, m.name, ok
}

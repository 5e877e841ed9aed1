package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"papertrade/internal/domain"
)

// TokenMarket is a token's best-priced pair on DexScreener
type TokenMarket struct {
	Address      string
	Symbol       string
	Name         string
	PriceUSD     decimal.Decimal
	LiquidityUSD float64
}

// DexScreenerClient fetches token prices from the DexScreener public API
type DexScreenerClient struct {
	httpClient *http.Client
	baseURL    string
	chainID    string
}

// NewDexScreenerClient creates a new DexScreenerClient. chainID filters pairs
// (e.g. "ethereum"); empty accepts any chain.
func NewDexScreenerClient(baseURL, chainID string) *DexScreenerClient {
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com"
	}
	return &DexScreenerClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		chainID: strings.ToLower(chainID),
	}
}

type dexPair struct {
	ChainID   string `json:"chainId"`
	PriceUSD  string `json:"priceUsd"`
	BaseToken struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	Liquidity *struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
}

// FetchToken returns the most liquid pair quoting tokenAddress as its base token
func (c *DexScreenerClient) FetchToken(ctx context.Context, tokenAddress string) (*TokenMarket, error) {
	endpoint := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, url.PathEscape(tokenAddress))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch price from DexScreener: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DexScreener API error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var payload struct {
		Pairs []dexPair `json:"pairs"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	var best *TokenMarket
	for _, p := range payload.Pairs {
		if c.chainID != "" && strings.ToLower(p.ChainID) != c.chainID {
			continue
		}
		if !strings.EqualFold(p.BaseToken.Address, tokenAddress) {
			continue
		}
		price, err := decimal.NewFromString(p.PriceUSD)
		if err != nil || !price.IsPositive() {
			continue
		}
		liquidity := 0.0
		if p.Liquidity != nil {
			liquidity = p.Liquidity.USD
		}
		if best == nil || liquidity > best.LiquidityUSD {
			best = &TokenMarket{
				Address:      strings.ToLower(p.BaseToken.Address),
				Symbol:       p.BaseToken.Symbol,
				Name:         p.BaseToken.Name,
				PriceUSD:     price,
				LiquidityUSD: liquidity,
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no priced pair for %s", domain.ErrPriceUnavailable, tokenAddress)
	}
	return best, nil
}

// BinanceClient fetches ticker prices from Binance
type BinanceClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewBinanceClient creates a new BinanceClient
func NewBinanceClient(baseURL string) *BinanceClient {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &BinanceClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FetchSinglePrice fetches the current price for a single Binance symbol
func (c *BinanceClient) FetchSinglePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.baseURL, url.QueryEscape(strings.ToUpper(symbol)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch price from Binance: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("Binance API error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var ticker struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return decimal.Zero, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q for %s: %w", ticker.Price, symbol, err)
	}
	return price, nil
}

// FetchRate returns how many units of display one unit of base buys. Binance
// quotes fiat against USDT, so USD is mapped to USDT.
func (c *BinanceClient) FetchRate(ctx context.Context, base, display string) (decimal.Decimal, error) {
	base, display = binanceAsset(base), binanceAsset(display)
	if base == display {
		return decimal.NewFromInt(1), nil
	}

	// e.g. base USDT, display EUR: EURUSDT is USDT per EUR
	price, err := c.FetchSinglePrice(ctx, display+base)
	if err == nil && price.IsPositive() {
		return decimal.NewFromInt(1).DivRound(price, 12), nil
	}

	direct, derr := c.FetchSinglePrice(ctx, base+display)
	if derr != nil {
		if err == nil {
			err = derr
		}
		return decimal.Zero, fmt.Errorf("%w: no rate for %s/%s: %v", domain.ErrPriceUnavailable, base, display, err)
	}
	if !direct.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: zero rate for %s/%s", domain.ErrPriceUnavailable, base, display)
	}
	return direct, nil
}

func binanceAsset(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "USD" {
		return "USDT"
	}
	return code
}

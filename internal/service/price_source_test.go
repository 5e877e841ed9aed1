package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"papertrade/internal/domain"
)

const dexBody = `{"pairs":[
 {"chainId":"bsc","priceUsd":"9.0","baseToken":{"address":"%[1]s","name":"Token A","symbol":"AAA"},"liquidity":{"usd":999999}},
 {"chainId":"ethereum","priceUsd":"1.50","baseToken":{"address":"%[1]s","name":"Token A","symbol":"AAA"},"liquidity":{"usd":1000}},
 {"chainId":"ethereum","priceUsd":"1.25","baseToken":{"address":"%[1]s","name":"Token A","symbol":"AAA"},"liquidity":{"usd":50000}},
 {"chainId":"ethereum","priceUsd":"7.00","baseToken":{"address":"0x9999999999999999999999999999999999999999","name":"Other","symbol":"OTH"},"liquidity":{"usd":90000}}
]}`

func TestDexScreenerClient_PicksMostLiquidPairOnChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/tokens/"+tokenA, r.URL.Path)
		fmt.Fprintf(w, dexBody, "0x1111111111111111111111111111111111111111")
	}))
	defer srv.Close()

	m, err := NewDexScreenerClient(srv.URL, "ethereum").FetchToken(context.Background(), tokenA)
	require.NoError(t, err)
	assert.True(t, m.PriceUSD.Equal(decimal.RequireFromString("1.25")))
	assert.Equal(t, "AAA", m.Symbol)
	assert.Equal(t, "Token A", m.Name)
}

func TestDexScreenerClient_NoPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":null}`))
	}))
	defer srv.Close()

	_, err := NewDexScreenerClient(srv.URL, "ethereum").FetchToken(context.Background(), tokenA)
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}

func TestDexScreenerClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewDexScreenerClient(srv.URL, "").FetchToken(context.Background(), tokenA)
	assert.ErrorContains(t, err, "status=429")
}

func TestBinanceClient_FetchRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "EURUSDT":
			w.Write([]byte(`{"symbol":"EURUSDT","price":"1.25000000"}`))
		case "USDTTRY":
			w.Write([]byte(`{"symbol":"USDTTRY","price":"32.50000000"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
		}
	}))
	defer srv.Close()
	c := NewBinanceClient(srv.URL)
	ctx := context.Background()

	rate, err := c.FetchRate(ctx, "USD", "EUR")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.8")), rate.String())

	rate, err = c.FetchRate(ctx, "USD", "TRY")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("32.5")))

	rate, err = c.FetchRate(ctx, "usd", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))

	_, err = c.FetchRate(ctx, "USD", "XXX")
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}

type stubTokens struct {
	calls atomic.Int32
	price string
	err   error
}

func (s *stubTokens) FetchToken(_ context.Context, addr string) (*TokenMarket, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &TokenMarket{Address: addr, Symbol: "AAA", Name: "Token A", PriceUSD: decimal.RequireFromString(s.price)}, nil
}

type stubRates struct {
	calls atomic.Int32
	rate  decimal.Decimal
	err   error
}

func (s *stubRates) FetchRate(context.Context, string, string) (decimal.Decimal, error) {
	s.calls.Add(1)
	return s.rate, s.err
}

func TestCachedPriceSource_CachesAndInvalidates(t *testing.T) {
	tokens := &stubTokens{price: "2.5"}
	src := NewCachedPriceSource(tokens, &stubRates{}, NewMemoryPriceCache(), PriceSourceConfig{TTL: time.Minute}, zap.NewNop())
	ctx := context.Background()

	q, err := src.GetUnitPrice(ctx, tokenA)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, q.Price, 1e-12)

	_, err = src.GetUnitPrice(ctx, tokenA)
	require.NoError(t, err)
	assert.Equal(t, int32(1), tokens.calls.Load())

	src.Invalidate(tokenA)
	_, err = src.GetUnitPrice(ctx, tokenA)
	require.NoError(t, err)
	assert.Equal(t, int32(2), tokens.calls.Load())

	symbol, name, ok := src.DescribeToken(tokenA)
	assert.True(t, ok)
	assert.Equal(t, "AAA", symbol)
	assert.Equal(t, "Token A", name)
}

func TestCachedPriceSource_ZeroOrFailedPriceUnavailable(t *testing.T) {
	ctx := context.Background()

	src := NewCachedPriceSource(&stubTokens{price: "0"}, &stubRates{}, nil, PriceSourceConfig{}, nil)
	_, err := src.GetUnitPrice(ctx, tokenA)
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)

	src = NewCachedPriceSource(&stubTokens{err: fmt.Errorf("timeout")}, &stubRates{}, nil, PriceSourceConfig{}, nil)
	_, err = src.GetUnitPrice(ctx, tokenA)
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}

func TestCachedPriceSource_ReferencePrice(t *testing.T) {
	ctx := context.Background()

	rates := &stubRates{rate: decimal.RequireFromString("0.9")}
	same := NewCachedPriceSource(&stubTokens{}, rates, nil, PriceSourceConfig{BaseCurrency: "USD", DisplayCurrency: "usd"}, nil)
	q, err := same.GetReferencePrice(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1, q.Price, 0)
	assert.Zero(t, rates.calls.Load())

	eur := NewCachedPriceSource(&stubTokens{}, rates, NewMemoryPriceCache(), PriceSourceConfig{BaseCurrency: "USD", DisplayCurrency: "EUR"}, nil)
	q, err = eur.GetReferencePrice(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, q.Price, 1e-12)
	_, err = eur.GetReferencePrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), rates.calls.Load())

	broken := NewCachedPriceSource(&stubTokens{}, &stubRates{err: fmt.Errorf("down")}, nil, PriceSourceConfig{DisplayCurrency: "EUR"}, nil)
	_, err = broken.GetReferencePrice(ctx)
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}

func TestMemoryPriceCache_Expiry(t *testing.T) {
	c := NewMemoryPriceCache()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "k", domain.Quote{Price: 1}, 30*time.Second)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(30 * time.Second)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisPriceCache(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	c, err := NewRedisPriceCache(ctx, url, fmt.Sprintf("papertrade:test:%d:", time.Now().UnixNano()))
	require.NoError(t, err)
	defer c.Close()

	q := domain.Quote{Price: 3.25, AsOf: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.Set(ctx, "token:a", q, time.Minute)

	got, ok := c.Get(ctx, "token:a")
	require.True(t, ok)
	assert.InDelta(t, 3.25, got.Price, 0)
	assert.True(t, q.AsOf.Equal(got.AsOf))

	c.Delete(ctx, "token:a")
	_, ok = c.Get(ctx, "token:a")
	assert.False(t, ok)
}

func TestRedisPriceCache_SharedClient(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	prefix := fmt.Sprintf("papertrade:test:%d:", time.Now().UnixNano())
	writer := NewRedisPriceCacheFromClient(client, prefix)
	reader := NewRedisPriceCacheFromClient(client, prefix)

	writer.Set(ctx, "reference", domain.Quote{Price: 0.92}, time.Minute)
	got, ok := reader.Get(ctx, "reference")
	require.True(t, ok)
	assert.InDelta(t, 0.92, got.Price, 0)

	raw, err := client.Get(ctx, prefix+"reference").Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "0.92")

	reader.Delete(ctx, "reference")
	_, ok = writer.Get(ctx, "reference")
	assert.False(t, ok)

	assert.Equal(t, "papertrade:price:", NewRedisPriceCacheFromClient(client, "").keyPrefix)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$1,420.00", FormatAmount(1420, "USD"))
	assert.Equal(t, "$0.13", FormatAmount(0.125, "usd"))
	assert.Equal(t, "-$40.50", FormatAmount(-40.5, "USD"))
	assert.Equal(t, "12.30 XYZ", FormatAmount(12.3, "XYZ"))
}

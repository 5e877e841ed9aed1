package infra

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"papertrade/configs"
	"papertrade/internal/domain"
	"papertrade/internal/repository"
)

func TestOpenLedgerStore(t *testing.T) {
	ctx := context.Background()

	cfg := configs.Default()
	cfg.Store.Dir = t.TempDir()
	store, err := OpenLedgerStore(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &repository.FileLedgerStore{}, store)
	require.NoError(t, store.Close())

	cfg.Store.Backend = configs.BackendSQLite
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "nested", "ledger.db")
	store, err = OpenLedgerStore(ctx, cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &repository.SQLiteLedgerStore{}, store)

	ledger := domain.NewLedger("0xabc", time.Now().UTC())
	require.NoError(t, store.WriteLedger(ctx, ledger))
	ids, err := store.ListUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc"}, ids)
	require.NoError(t, store.Close())

	cfg.Store.Backend = "mongo"
	_, err = OpenLedgerStore(ctx, cfg, nil)
	assert.Error(t, err)
}

func TestNewPriceSource_FallsBackWithoutRedis(t *testing.T) {
	cfg := configs.Default()
	cfg.Redis.URL = "redis://127.0.0.1:1/0"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	prices, closeFn := NewPriceSource(ctx, cfg, zap.NewNop())
	require.NotNil(t, prices)
	closeFn()

	q, err := prices.GetReferencePrice(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1, q.Price, 0)
}

func TestNewSummarizer(t *testing.T) {
	cfg := configs.Default()
	assert.Nil(t, NewSummarizer(cfg, nil))

	cfg.OpenAI.APIKey = "sk-test"
	assert.NotNil(t, NewSummarizer(cfg, nil))
}

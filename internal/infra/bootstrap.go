package infra

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"papertrade/configs"
	"papertrade/internal/adapter"
	"papertrade/internal/database"
	"papertrade/internal/domain"
	"papertrade/internal/repository"
	"papertrade/internal/service"
)

// OpenLedgerStore opens the store selected by cfg.Store.Backend. PostgreSQL
// migrations are applied before the store is returned.
func OpenLedgerStore(ctx context.Context, cfg *configs.Config, logger *zap.Logger) (domain.LedgerStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Store.Backend {
	case configs.BackendFile:
		store, err := repository.NewFileLedgerStore(cfg.Store.Dir)
		if err != nil {
			return nil, err
		}
		logger.Info("[OK] File ledger store ready", zap.String("dir", cfg.Store.Dir))
		return store, nil

	case configs.BackendSQLite:
		db, err := NewSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		store, err := repository.NewSQLiteLedgerStore(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("[OK] SQLite ledger store ready", zap.String("path", cfg.Store.SQLitePath))
		return store, nil

	case configs.BackendPostgres:
		pool, err := NewDatabase(ctx, cfg.Database.URL, logger)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return repository.NewPostgresLedgerStore(pool), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// NewPriceSource builds the cached market price source. When Redis is
// configured but unreachable the in-process cache is used instead. The
// returned close function releases the Redis connection, if any.
func NewPriceSource(ctx context.Context, cfg *configs.Config, logger *zap.Logger) (*service.CachedPriceSource, func()) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		cache   service.PriceCache = service.NewMemoryPriceCache()
		closeFn                    = func() {}
	)
	if cfg.Redis.URL != "" {
		redisCache, err := service.NewRedisPriceCache(ctx, cfg.Redis.URL, "")
		if err != nil {
			logger.Warn("Redis unavailable, using in-memory price cache", zap.Error(err))
		} else {
			logger.Info("[OK] Redis price cache connected")
			cache = redisCache
			closeFn = func() {
				if err := redisCache.Close(); err != nil {
					logger.Warn("Failed to close redis", zap.Error(err))
				}
			}
		}
	}

	prices := service.NewCachedPriceSource(
		service.NewDexScreenerClient(cfg.Price.DexScreenerURL, cfg.Price.ChainID),
		service.NewBinanceClient(cfg.Price.BinanceURL),
		cache,
		service.PriceSourceConfig{
			TTL:             cfg.Price.CacheTTL,
			BaseCurrency:    cfg.Price.BaseCurrency,
			DisplayCurrency: cfg.Price.DisplayCurrency,
		},
		logger,
	)
	return prices, closeFn
}

// NewSummarizer returns the OpenAI summarizer, or nil when no key is configured
func NewSummarizer(cfg *configs.Config, logger *zap.Logger) domain.SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OpenAI.APIKey == "" {
		logger.Info("OPENAI_API_KEY not set, portfolio summaries disabled")
		return nil
	}
	summarizer, err := adapter.NewOpenAISummarizer(adapter.OpenAIConfig{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
	})
	if err != nil {
		logger.Warn("Portfolio summaries disabled", zap.Error(err))
		return nil
	}
	return summarizer
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"papertrade/configs"
	"papertrade/internal/adapter/telegram"
	deliveryhttp "papertrade/internal/delivery/http"
	"papertrade/internal/infra"
	"papertrade/internal/middleware"
	"papertrade/internal/service"
	"papertrade/internal/usecase"
)

func main() {
	cfg, err := configs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := infra.NewLogger(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	store, err := infra.OpenLedgerStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open ledger store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer store.Close()

	prices, closePrices := infra.NewPriceSource(ctx, cfg, logger)
	defer closePrices()

	// Initialize services
	executor := usecase.NewTradeExecutor(store, logger)
	reports := service.NewPnLReportService(executor, infra.NewSummarizer(cfg, logger), logger)
	reconciler := service.NewReconciliationService(store, logger)

	scheduler := infra.NewScheduler(reconciler, cfg.Reconcile.Schedule, logger)
	alerts := telegram.NewNotificationService("", cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.Timezone)
	if alerts.Enabled() {
		scheduler.SetNotifier(alerts)
		logger.Info("[OK] Telegram drift alerts enabled")
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start reconciliation scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, using development secret")
	}
	sessions := middleware.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	// API server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	deliveryhttp.SetupRoutes(e, &deliveryhttp.RouterConfig{
		Sessions:      sessions,
		AuthHandler:   deliveryhttp.NewAuthHandler(sessions, cfg.Auth.SecureCookie, logger),
		LedgerHandler: deliveryhttp.NewLedgerHandler(executor, prices, cfg.Price.BaseCurrency, logger),
		PnLHandler:    deliveryhttp.NewPnLHandler(reports, cfg.Price.BaseCurrency),
		PriceHandler:  deliveryhttp.NewPriceHandler(prices),
	})

	apiAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	go func() {
		if err := e.Start(apiAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	// Ops server
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health", handleHealth(cfg.Store.Backend, scheduler))
	r.Post("/reconcile/trigger", handleTriggerReconcile(scheduler, logger))
	r.Get("/reconcile/last", handleLastReconcile(scheduler))

	ops := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.OpsPort),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start ops server", zap.Error(err))
		}
	}()

	logger.Info("PaperTrade starting",
		zap.String("api_addr", apiAddr),
		zap.String("ops_addr", ops.Addr),
		zap.String("env", cfg.Server.Env),
		zap.String("store", cfg.Store.Backend),
		zap.String("currency", cfg.Price.BaseCurrency),
		zap.String("display_currency", cfg.Price.DisplayCurrency),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server forced to shutdown", zap.Error(err))
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ops server forced to shutdown", zap.Error(err))
	}

	logger.Info("[OK] Server exited gracefully")
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func handleHealth(backend string, scheduler *infra.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":    "healthy",
			"service":   "papertrade-ops",
			"store":     backend,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if last := scheduler.LastReport(); last != nil {
			body["last_reconcile"] = last.Finished.Format(time.RFC3339)
			body["last_drifts"] = len(last.Drifts)
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func handleTriggerReconcile(scheduler *infra.Scheduler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Info("Manual reconciliation triggered via API")

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if _, err := scheduler.RunNow(ctx); err != nil {
				logger.Error("Manual reconciliation failed", zap.Error(err))
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"message": "Reconciliation triggered successfully",
			"status":  "processing",
		})
	}
}

func handleLastReconcile(scheduler *infra.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		last := scheduler.LastReport()
		if last == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no reconciliation has run yet"})
			return
		}
		writeJSON(w, http.StatusOK, last)
	}
}

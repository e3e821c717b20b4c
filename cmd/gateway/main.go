package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finbridge/binancepay-gateway/internal/binance"
	"github.com/finbridge/binancepay-gateway/internal/coingecko"
	"github.com/finbridge/binancepay-gateway/internal/config"
	"github.com/finbridge/binancepay-gateway/internal/postgres"
	"github.com/finbridge/binancepay-gateway/internal/rates"
	"github.com/finbridge/binancepay-gateway/internal/rest"
	"github.com/finbridge/binancepay-gateway/internal/rest/middleware"
	"github.com/finbridge/binancepay-gateway/internal/services"
	"github.com/finbridge/binancepay-gateway/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting binancepay gateway",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	orderStore := postgres.NewOrderStore(db.Pool)
	settingsStore := postgres.NewSettingsStore(db.Pool)

	httpClient := &http.Client{Timeout: cfg.Binance.ConnTimeout}
	payClient := binance.NewClient(binance.Config{
		BaseURL:   cfg.Binance.BaseURL,
		APIKey:    cfg.Binance.APIKey,
		APISecret: cfg.Binance.APISecret,
	}, httpClient)
	rateClient := coingecko.NewClient(cfg.Rates.ProviderURL, httpClient)

	rateCache := rates.NewCache(settingsStore, rateClient, cfg.Rates.TTL, logger)
	checkoutService := services.NewCheckoutService(orderStore, rateCache, payClient, cfg.Binance.SettlementCoin, logger)
	reconcileService := services.NewReconcileService(orderStore, payClient, logger)
	certManager := services.NewCertificateManager(settingsStore, payClient, logger)

	h := rest.NewHandlers(checkoutService, reconcileService, certManager, orderStore, logger)

	mux := http.NewServeMux()
	h.Routes(mux)

	handler := middleware.Recovery(logger)(mux)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	poller := worker.NewPoller(
		orderStore,
		reconcileService,
		cfg.Worker.Interval,
		cfg.Worker.OlderThan,
		cfg.Worker.BatchSize,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go poller.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

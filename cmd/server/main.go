package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"payhub/internal/config"
	"payhub/internal/infra"
	"payhub/internal/receipt"
	"payhub/internal/repository"
	"payhub/internal/router"
	"payhub/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// ── Payment providers ────────────────────────────────────────────────────
	yookassa, err := infra.NewYooKassaClient(cfg.YooKassaAPIURL, cfg.YooKassaTrustedNetworks)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid YooKassa configuration")
	}
	sber, err := infra.NewSberClient(cfg.SberAPIURL, cfg.SberTrustedNetworks, cfg.Merchants)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid Sber configuration")
	}
	providers := infra.NewProviders(yookassa, sber)

	// ── Receipts ─────────────────────────────────────────────────────────────
	receiptsCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	lifePay := infra.NewLifePayClient(cfg.LifePayAPIURL, strings.TrimRight(cfg.PaymentURL, "/")+"/webhooks/lifepay", cfg.Merchants)
	gateway := receipt.NewGateway(lifePay, receiptsCB, cfg.LifePayLogSuccess)

	transactionRepo := repository.NewTransactionRepository(db)
	attributionRepo := repository.NewAttributionRepository(db)
	factory := receipt.NewFactory(attributionRepo, transactionRepo, cfg.Merchants, cfg.DefaultMerchant)

	// ── Notifications ────────────────────────────────────────────────────────
	mailer := infra.NewMailer(cfg)
	publisher, err := infra.NewEventPublisher(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure settlement events")
	}
	var events worker.EventPublisher
	if publisher != nil {
		events = publisher
	}

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	dispatcher := worker.NewDispatcher(rdb)
	workerHandlers := worker.WorkerHandlers{
		Receipt: worker.NewReceiptWorker(transactionRepo, factory, gateway),
		Notify:  worker.NewNotifyWorker(transactionRepo, mailer, events, cfg.StatementStoragePath, cfg.NotifyEmail),
	}
	worker.StartWorkerPool(ctx, rdb, workerHandlers, cfg.WorkerPoolSize)
	worker.StartStaleEventsCron(ctx, worker.StaleEventsCronConfig{
		Events: repository.NewWebhookEventRepository(db),
	})

	r := router.New(cfg, db, rdb, router.Deps{
		Providers:  providers,
		Dispatcher: dispatcher,
		Factory:    factory,
		Gateway:    gateway,
		ReceiptsCB: receiptsCB,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("payhub listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

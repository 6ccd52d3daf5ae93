package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tieiiikw/Laampay/internal/adapter/gateway"
	"github.com/tieiiikw/Laampay/internal/adapter/handler"
	"github.com/tieiiikw/Laampay/internal/adapter/middleware"
	"github.com/tieiiikw/Laampay/internal/adapter/storage"
	"github.com/tieiiikw/Laampay/internal/adapter/storage/memory"
	"github.com/tieiiikw/Laampay/internal/adapter/storage/postgres"
	"github.com/tieiiikw/Laampay/internal/core/config"
	"github.com/tieiiikw/Laampay/internal/core/events"
	"github.com/tieiiikw/Laampay/internal/core/payments"
	"github.com/tieiiikw/Laampay/internal/core/security"
	"github.com/tieiiikw/Laampay/internal/core/worker"
	"github.com/tieiiikw/Laampay/internal/metrics"
)

func main() {
	// 1. Load config
	cfg := config.LoadConfig()

	// 2. Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 3. Pick the store: durable when a database is configured, otherwise
	// the in-process reference implementation.
	var (
		ledgerStore storage.LedgerStore
		keyStore    storage.KeyStore
		idemStore   storage.IdempotencyStore
	)
	var closePool func()
	if cfg.DatabaseURL != "" {
		pool, err := storage.ConnectDB(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		closePool = pool.Close
		pg := postgres.NewStore(pool)
		ledgerStore, keyStore, idemStore = pg, pg, pg
		slog.Info("using postgres ledger store")
	} else {
		mem := memory.NewStore()
		ledgerStore, keyStore, idemStore = mem, mem, mem
		slog.Info("using in-memory ledger store")
	}

	// 4. Callback verification and outbound signing
	providerKey, err := config.PEM(cfg.ProviderPublicKey)
	if err != nil {
		slog.Error("cannot load provider public key", "error", err)
		os.Exit(1)
	}
	verifier, err := security.NewVerifier(providerKey, cfg.VerifyMode)
	if err != nil {
		slog.Error("callback verifier setup failed", "error", err)
		os.Exit(1)
	}

	merchantKey, err := config.PEM(cfg.MerchantPrivateKey)
	if err != nil {
		slog.Error("cannot load merchant private key", "error", err)
		os.Exit(1)
	}
	signer, err := security.NewSigner(merchantKey)
	if err != nil {
		slog.Error("merchant signer setup failed", "error", err)
		os.Exit(1)
	}

	// 5. External collaborators
	if cfg.GatewayURL == "" {
		slog.Warn("GATEWAY_URL not set, deposits will fail at initiation")
	}
	provider := gateway.NewHTTPGateway(cfg.GatewayURL, signer)

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers)
		slog.Info("publishing events to kafka", "brokers", cfg.KafkaBrokers)
	}

	// 6. Core service
	scheduler := worker.NewScheduler()
	collector := metrics.NewPrometheusCollector()
	service := payments.NewService(ledgerStore, provider, verifier, scheduler, publisher, collector, payments.Config{
		WithdrawDelay: cfg.WithdrawDelay,
		WebhookURL:    cfg.WebhookURL,
		WebhookSecret: cfg.WebhookSecret,
	})

	// 7. HTTP wiring
	accountHandler := &handler.AccountHandler{Ledger: ledgerStore, Keys: keyStore}
	walletHandler := &handler.WalletHandler{Service: service}
	paymentHandler := &handler.PaymentHandler{Service: service}
	callbackHandler := &handler.CallbackHandler{Service: service}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/v1")

	// Public: key minting and the provider's callback (authenticated by
	// signature, not API key).
	api.Post("/accounts/:id/keys", accountHandler.GenerateKey)
	api.Post("/payments/callback", callbackHandler.ProviderCallback)

	// Protected client-facing operations
	private := api.Use(middleware.Protected(keyStore))
	private.Get("/wallet/:id", walletHandler.GetWallet)
	private.Post("/deposit", middleware.Idempotency(idemStore), paymentHandler.Deposit)
	private.Post("/withdraw", middleware.Idempotency(idemStore), paymentHandler.Withdraw)

	// 8. Run until interrupted
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "env", cfg.Env, "port", cfg.Port, "verify_mode", cfg.VerifyMode)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	<-stop
	slog.Info("shutting down")

	// Pending withdrawal completions drain before the store goes away.
	scheduler.Stop()

	if err := publisher.Close(); err != nil {
		slog.Error("event publisher close failed", "error", err)
	}

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	if closePool != nil {
		closePool()
		slog.Info("database connection closed")
	}

	slog.Info("server exited")
}

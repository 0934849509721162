package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibrahimkeyboad/maxen/internal/adapter/handler"
	"github.com/ibrahimkeyboad/maxen/internal/adapter/kv"
	"github.com/ibrahimkeyboad/maxen/internal/adapter/middleware"
	"github.com/ibrahimkeyboad/maxen/internal/adapter/payment"
	"github.com/ibrahimkeyboad/maxen/internal/adapter/storage"
	"github.com/ibrahimkeyboad/maxen/internal/core/cart"
	"github.com/ibrahimkeyboad/maxen/internal/core/catalog"
	"github.com/ibrahimkeyboad/maxen/internal/core/config"
	"github.com/ibrahimkeyboad/maxen/internal/core/observability"
	"github.com/ibrahimkeyboad/maxen/internal/core/order"
	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
	"github.com/ibrahimkeyboad/maxen/internal/core/security"
	"github.com/ibrahimkeyboad/maxen/internal/core/session"
	"github.com/ibrahimkeyboad/maxen/internal/core/wallet"
	"github.com/ibrahimkeyboad/maxen/internal/core/worker"
)

type persistence interface {
	ports.AccountStore
	ports.LedgerStore
	ports.OrderStore
}

func main() {
	// 1. Load Config
	cfg := config.LoadConfig()

	// 2. Setup Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetry, err := observability.New(ctx, observability.Config{
		ServiceName:  "maxen-api",
		Environment:  cfg.Env,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Insecure:     cfg.OTLPInsecure,
		SampleRate:   1.0,
	}, logger)
	if err != nil {
		slog.Error("Observability setup failed", "error", err)
		os.Exit(1)
	}

	// 3. Storage
	var (
		store  persistence
		outbox ports.Outbox
		dbPool *pgxpool.Pool
	)
	switch cfg.StoreDriver {
	case "postgres":
		dbPool, err = storage.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("Database connection failed", "error", err)
			os.Exit(1)
		}
		store = storage.NewPostgresStore(dbPool)
		outbox = storage.NewWebhookOutbox(dbPool)
	default:
		store = storage.NewMemoryStore()
		outbox = worker.NewMemoryOutbox()
	}

	sessionsKV, closeKV, err := openKV(ctx, cfg)
	if err != nil {
		slog.Error("Session store setup failed", "driver", cfg.KVDriver, "error", err)
		os.Exit(1)
	}

	products, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		slog.Error("Catalog load failed", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}

	// 4. Domain services
	var events ports.EventPublisher = ports.Discard
	if cfg.WebhookURL != "" {
		events = worker.NewPublisher(outbox, cfg.WebhookURL)
	}

	gateway := payment.NewMockGateway(ctx, cfg.GatewayDelay, cfg.GatewaySuccessRate, logger)
	ledger := wallet.NewLedger(store, gateway, events, logger, wallet.WithConfirmTimeout(cfg.TopUpConfirmTimeout))
	carts := cart.NewLedger(products)
	orders := order.NewProcessor(products, carts, ledger, store, events, logger)

	var identity session.IdentityVerifier
	if cfg.IdentitySecret != "" {
		identity = security.NewIdentityVerifier(cfg.IdentitySecret, cfg.IdentityIssuer, cfg.IdentityAudience)
	}
	sessions := session.NewManager(store, ledger, sessionsKV, security.BcryptHasher{}, identity, logger)
	sessions.OnChange(carts.Reset)

	if cfg.SeedDemo {
		if acc, err := sessions.SeedDemo(ctx); err != nil {
			slog.Error("Demo account seeding failed", "error", err)
		} else {
			slog.Info("Demo account ready", "email", acc.Email)
		}
	}

	// 5. Setup Fiber
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Cleanup(ctx)

	app := handler.NewApp(handler.Services{
		Catalog:     products,
		Sessions:    sessions,
		Carts:       carts,
		Wallet:      ledger,
		Orders:      orders,
		KV:          sessionsKV,
		RateLimiter: limiter,
		AdminKey:    cfg.AdminAPIKey,
	})

	// 6. Start Worker
	workerStopped := worker.NewWebhookWorker(outbox, cfg.WebhookSecret, logger).Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "env", cfg.Env, "port", cfg.Port, "store", cfg.StoreDriver, "kv", cfg.KVDriver)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	failed := false
	select {
	case <-stop:
		slog.Info("Shutting down server...")
	case err := <-listenErr:
		slog.Error("Server forced to shutdown", "error", err)
		failed = true
	}

	// Stop accepting requests first, then let background work settle.
	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	cancel()
	gateway.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := ledger.Wait(shutdownCtx); err != nil {
		slog.Warn("Pending top-ups did not settle", "error", err)
	}
	<-workerStopped

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.Error("Telemetry flush failed", "error", err)
	}
	closeKV()
	if dbPool != nil {
		dbPool.Close()
		slog.Info("Database connection closed")
	}

	if failed {
		os.Exit(1)
	}
	slog.Info("Server exited successfully")
}

func openKV(ctx context.Context, cfg *config.Config) (ports.KeyValueStore, func(), error) {
	switch cfg.KVDriver {
	case "sqlite":
		db, err := kv.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		s, err := kv.NewSQLiteStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, func() { _ = db.Close() }, nil
	case "redis":
		client := kv.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		s := kv.NewRedisStore(client, "maxen:", 7*24*time.Hour)
		if err := s.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return s, func() { _ = client.Close() }, nil
	default:
		return kv.NewMemoryStore(), func() {}, nil
	}
}

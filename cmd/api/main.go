package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/packfinderz-settlement/api/controllers"
	"github.com/angelmondragon/packfinderz-settlement/api/routes"
	"github.com/angelmondragon/packfinderz-settlement/internal/earnings"
	"github.com/angelmondragon/packfinderz-settlement/internal/orders"
	"github.com/angelmondragon/packfinderz-settlement/internal/payouts"
	"github.com/angelmondragon/packfinderz-settlement/internal/settlement"
	"github.com/angelmondragon/packfinderz-settlement/internal/stores"
	"github.com/angelmondragon/packfinderz-settlement/pkg/auth/session"
	"github.com/angelmondragon/packfinderz-settlement/pkg/bootstrap"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db"
	"github.com/angelmondragon/packfinderz-settlement/pkg/metrics"
	"github.com/angelmondragon/packfinderz-settlement/pkg/migrate"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox"
	"github.com/angelmondragon/packfinderz-settlement/pkg/redis"
	"github.com/angelmondragon/packfinderz-settlement/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, logg := bootstrap.Load("api")
	ctx := bootstrap.Tag(context.Background(), logg, cfg)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to bootstrap database", err)
	}
	defer bootstrap.Closer(logg, "database", dbClient.Close)()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		bootstrap.Fatal(ctx, logg, "failed to run dev migrations", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to bootstrap redis", err)
	}
	defer bootstrap.Closer(logg, "redis", redisClient.Close)()

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to bootstrap stripe", err)
	}

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	ledgerRepo := settlement.NewRepository(dbClient.DB())
	store, err := settlement.NewStore(settlement.StoreParams{Repo: ledgerRepo, DB: dbClient, Metrics: settlementMetrics})
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to create settlement store", err)
	}
	locker, err := settlement.NewRedisLocker(redisClient, cfg.Settlement.PayoutLockTTL)
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to create entry locker", err)
	}
	transfers, err := payouts.NewStripeTransferClient(stripeClient)
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to create transfer client", err)
	}

	// manual payouts and retries run in the API process under the same entry lock as the cron worker
	executor, err := payouts.NewExecutor(payouts.ExecutorParams{
		Store:     store,
		Sellers:   stores.NewRepository(dbClient.DB()),
		Orders:    orders.NewRepository(dbClient.DB()),
		Transfers: transfers,
		Locker:    locker,
		Outbox:    outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Logger:    logg,
		Metrics:   settlementMetrics,
	}.WithPolicy(cfg.Settlement))
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to create payout executor", err)
	}

	earningsService, err := earnings.NewService(earnings.NewRepository(dbClient.DB()), cfg.Settlement.PendingSalesLimit, nil)
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to create earnings service", err)
	}

	var sessions session.AccessSessionChecker
	if cfg.FeatureFlags.SessionCheck {
		checker, err := session.NewChecker(redisClient)
		if err != nil {
			bootstrap.Fatal(ctx, logg, "failed to create session checker", err)
		}
		sessions = checker
	}

	addr := listenAddr(cfg.App.Port)
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:      cfg,
			Logger:      logg,
			Sessions:    sessions,
			Idempotency: redisClient,
			Readiness: []controllers.Dependency{
				{Name: "database", Pinger: dbClient},
				{Name: "redis", Pinger: redisClient},
			},
			Earnings:    earningsService,
			Settlements: executor,
			Entries:     ledgerRepo,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx = logg.WithFields(ctx, map[string]any{"addr": addr, "instance": instanceID()})
	logg.Info(ctx, "starting api server")

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			bootstrap.Fatal(ctx, logg, "api server stopped unexpectedly", err)
		}
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server stopped")
	}
}

// listenAddr honors the platform-assigned PORT before the configured one.
func listenAddr(configured string) string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":" + configured
}

func instanceID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	return "local"
}

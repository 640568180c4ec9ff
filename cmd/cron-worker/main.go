package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/packfinderz-settlement/internal/cron"
	"github.com/angelmondragon/packfinderz-settlement/internal/orders"
	"github.com/angelmondragon/packfinderz-settlement/internal/payouts"
	"github.com/angelmondragon/packfinderz-settlement/internal/settlement"
	"github.com/angelmondragon/packfinderz-settlement/internal/stores"
	"github.com/angelmondragon/packfinderz-settlement/internal/sweeper"
	"github.com/angelmondragon/packfinderz-settlement/pkg/bootstrap"
	"github.com/angelmondragon/packfinderz-settlement/pkg/config"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
	"github.com/angelmondragon/packfinderz-settlement/pkg/metrics"
	"github.com/angelmondragon/packfinderz-settlement/pkg/migrate"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox"
	"github.com/angelmondragon/packfinderz-settlement/pkg/redis"
	"github.com/angelmondragon/packfinderz-settlement/pkg/stripe"
)

const lockScope = "cron-worker"

func main() {
	cfg, logg := bootstrap.Load("cron-worker")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = bootstrap.Tag(ctx, logg, cfg)

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

	registry, err := buildRegistry(ctx, cfg, logg, dbClient, redisClient)
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to build cron jobs", err)
	}
	logg.Info(logg.WithField(ctx, "jobs", registry.Names()), "cron jobs registered")

	// one lock per environment so staging and production workers never block each other
	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := redis.NewLock(redisClient, redisClient.LockKey(lockScope, env), cfg.Cron.LockTTL)
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to create cron lock", err)
	}

	var schedule cron.Schedule
	if cfg.Cron.Schedule != "" {
		if schedule, err = cron.ParseSchedule(cfg.Cron.Schedule); err != nil {
			bootstrap.Fatal(ctx, logg, "invalid cron schedule", err)
		}
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Schedule:   schedule,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to create cron service", err)
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		bootstrap.Fatal(ctx, logg, "cron worker stopped unexpectedly", err)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildRegistry wires the sweep, payout and retention jobs. The sweep runs
// before payouts so entries promoted this cycle are paid in the same cycle.
func buildRegistry(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Registry, error) {
	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	store, err := settlement.NewStore(settlement.StoreParams{
		Repo:    settlement.NewRepository(dbClient.DB()),
		DB:      dbClient,
		Metrics: settlementMetrics,
	})
	if err != nil {
		return nil, err
	}
	locker, err := settlement.NewRedisLocker(redisClient, cfg.Settlement.PayoutLockTTL)
	if err != nil {
		return nil, err
	}
	outboxRepo := outbox.NewRepository(dbClient.DB())
	emitter := outbox.NewService(outboxRepo, logg)

	registry := cron.NewRegistry()

	if cfg.Settlement.SweepEnabled {
		sweepService, err := sweeper.NewService(sweeper.ServiceParams{
			Store:     store,
			Orders:    orders.NewRepository(dbClient.DB()),
			Locker:    locker,
			Outbox:    emitter,
			Logger:    logg,
			BatchSize: cfg.Settlement.SweepBatchSize,
		})
		if err != nil {
			return nil, err
		}
		sweepJob, err := cron.NewSweepJob(cron.SweepJobParams{Sweeper: sweepService})
		if err != nil {
			return nil, err
		}
		if err := registry.Register(sweepJob); err != nil {
			return nil, err
		}
	}

	if cfg.Settlement.PayoutsEnabled {
		stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return nil, err
		}
		transfers, err := payouts.NewStripeTransferClient(stripeClient)
		if err != nil {
			return nil, err
		}
		executor, err := payouts.NewExecutor(payouts.ExecutorParams{
			Store:     store,
			Sellers:   stores.NewRepository(dbClient.DB()),
			Orders:    orders.NewRepository(dbClient.DB()),
			Transfers: transfers,
			Locker:    locker,
			Outbox:    emitter,
			Logger:    logg,
			Metrics:   settlementMetrics,
		}.WithPolicy(cfg.Settlement))
		if err != nil {
			return nil, err
		}
		payoutJob, err := cron.NewPayoutJob(cron.PayoutJobParams{Logger: logg, Executor: executor})
		if err != nil {
			return nil, err
		}
		if err := registry.Register(payoutJob); err != nil {
			return nil, err
		}
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		return nil, err
	}
	if err := registry.Register(retentionJob); err != nil {
		return nil, err
	}

	return registry, nil
}

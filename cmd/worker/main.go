package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/packfinderz-settlement/internal/ingestion"
	"github.com/angelmondragon/packfinderz-settlement/internal/settlement"
	"github.com/angelmondragon/packfinderz-settlement/internal/stores"
	"github.com/angelmondragon/packfinderz-settlement/pkg/bootstrap"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db"
	"github.com/angelmondragon/packfinderz-settlement/pkg/metrics"
	"github.com/angelmondragon/packfinderz-settlement/pkg/migrate"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox/idempotency"
	"github.com/angelmondragon/packfinderz-settlement/pkg/pubsub"
	"github.com/angelmondragon/packfinderz-settlement/pkg/redis"
)

func main() {
	cfg, logg := bootstrap.Load("worker")
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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.ConsumerNeeds(cfg.PubSub), logg)
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to bootstrap pubsub", err)
	}
	defer bootstrap.Closer(logg, "pubsub", pubsubClient.Close)()

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	store, err := settlement.NewStore(settlement.StoreParams{
		Repo:    settlement.NewRepository(dbClient.DB()),
		DB:      dbClient,
		Metrics: settlementMetrics,
	})
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to create settlement store", err)
	}

	ingestService, err := ingestion.NewService(ingestion.ServiceParams{
		Store:    store,
		Sellers:  stores.NewRepository(dbClient.DB()),
		Outbox:   outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Logger:   logg,
		Metrics:  settlementMetrics,
		HoldDays: cfg.Settlement.HoldDays,
		Currency: cfg.Settlement.Currency,
	})
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to create ingestion service", err)
	}

	processed, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to create idempotency manager", err)
	}

	consumer, err := ingestion.NewConsumer(ingestion.ConsumerParams{
		Service:      ingestService,
		Subscription: pubsubClient.SettlementSubscription(),
		Idempotency:  processed,
		Logger:       logg,
		Name:         cfg.Settlement.ConsumerName,
	})
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to create settlement consumer", err)
	}

	service, err := NewService(ServiceParams{
		Logger:   logg,
		Consumer: consumer,
		Dependencies: []dependency{
			{name: "database", ping: dbClient.Ping},
			{name: "redis", ping: redisClient.Ping},
			{name: "pubsub", ping: pubsubClient.Ping},
		},
	})
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to create worker service", err)
	}

	logg.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		bootstrap.Fatal(ctx, logg, "worker stopped unexpectedly", err)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/angelmondragon/packfinderz-settlement/pkg/bootstrap"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db"
	"github.com/angelmondragon/packfinderz-settlement/pkg/migrate"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox"
	"github.com/angelmondragon/packfinderz-settlement/pkg/outbox/registry"
	"github.com/angelmondragon/packfinderz-settlement/pkg/pubsub"
)

func main() {
	cfg, logg := bootstrap.Load("outbox-publisher")
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

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to build event registry", err)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.PublisherNeeds(eventRegistry.Topics()...), logg)
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to bootstrap pubsub", err)
	}
	defer bootstrap.Closer(logg, "pubsub", pubsubClient.Close)()

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
	})
	if err != nil {
		bootstrap.Fatal(ctx, logg, "failed to create outbox publisher", err)
	}

	logg.Info(ctx, "starting outbox publisher")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		bootstrap.Fatal(ctx, logg, "outbox publisher stopped unexpectedly", err)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

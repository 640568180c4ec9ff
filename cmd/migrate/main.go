package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/angelmondragon/packfinderz-settlement/pkg/bootstrap"
	"github.com/angelmondragon/packfinderz-settlement/pkg/config"
	"github.com/angelmondragon/packfinderz-settlement/pkg/db"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
	"github.com/angelmondragon/packfinderz-settlement/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cfg, logg := bootstrap.Load("migrate")
	ctx := logg.WithFields(bootstrap.Tag(context.Background(), logg, cfg), map[string]any{
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	if err := run(ctx, cfg, logg, opts); err != nil {
		bootstrap.Fatal(ctx, logg, fmt.Sprintf("migrate -cmd=%s failed", opts.cmd), err)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) error {
	// create and validate only touch the migrations directory
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer bootstrap.Closer(logg, "database", dbClient.Close)()

	// goose files are written for postgres; a sqlite ledger is built from the models
	if cfg.DB.IsSQLite() {
		if opts.cmd != "up" {
			return fmt.Errorf("-cmd=%s is not supported on sqlite", opts.cmd)
		}
		if err := dbClient.DB().WithContext(ctx).AutoMigrate(migrate.Models()...); err != nil {
			return fmt.Errorf("sqlite automigrate: %w", err)
		}
		logg.Info(ctx, "sqlite schema up to date")
		return nil
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}

	logg.Info(ctx, "migrate ready")
	switch opts.cmd {
	case "up", "down", "status":
		return migrate.Run(ctx, sqlDB, opts.dir, opts.cmd)
	case "version":
		if opts.version == "" {
			return errors.New("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
	default:
		return fmt.Errorf("unknown -cmd value: %s", opts.cmd)
	}
}

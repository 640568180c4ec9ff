// Package bootstrap holds the startup steps shared by every binary.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/packfinderz-settlement/pkg/config"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
)

// Load reads an optional .env file and the environment, then returns the
// config and a logger tagged with kind. Failures are logged and exit the process.
func Load(kind string) (*config.Config, *logger.Logger) {
	cfg, logg, err := load(kind, godotenv.Load, os.Stdout)
	if err != nil {
		Fatal(context.Background(), logg, "failed to load config", err)
	}
	return cfg, logg
}

func load(kind string, loadEnvFile func(...string) error, out io.Writer) (*config.Config, *logger.Logger, error) {
	early := logger.New(logger.Options{ServiceName: kind, Output: out})
	if err := loadEnvFile(); err != nil {
		early.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, early, err
	}
	cfg.Service.Kind = kind

	logg := logger.New(logger.Options{
		ServiceName: kind,
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Output:      out,
	})
	return cfg, logg, nil
}

// Tag adds the env and service kind every binary logs with.
func Tag(ctx context.Context, logg *logger.Logger, cfg *config.Config) context.Context {
	return logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
}

// Fatal logs err and exits with status 1. Deferred calls do not run.
func Fatal(ctx context.Context, logg *logger.Logger, msg string, err error) {
	logg.Error(ctx, msg, err)
	os.Exit(1)
}

// Closer returns a func for defer that closes a dependency and logs failures.
func Closer(logg *logger.Logger, name string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			logg.Error(context.Background(), fmt.Sprintf("error closing %s", name), err)
		}
	}
}

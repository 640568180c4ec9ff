package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/packfinderz-settlement/pkg/config"
	"github.com/angelmondragon/packfinderz-settlement/pkg/logger"
)

const (
	EnvTest = "test"
	EnvLive = "live"
)

var errAPIKeyRequired = errors.New("stripe api key is required")

// Client marks the process-wide Stripe configuration as done. Stripe's
// resource packages read the global key and backend, so there is one per process.
type Client struct {
	environment string
}

// NewClient validates the key against the environment, then installs the key
// and an API backend with the configured retries and timeout.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	key := strings.TrimSpace(cfg.APIKey)
	if err := checkKey(env, key); err != nil {
		return nil, err
	}

	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
	}
	if cfg.Timeout > 0 {
		backendCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logg != nil {
		backendCfg.LeveledLogger = &leveledLogger{logg: logg}
	}

	stripe.Key = key
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg))

	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe client initialized")
	}
	return &Client{environment: env}, nil
}

// Environment is "test" or "live".
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

func (c *Client) Live() bool {
	return c.Environment() == EnvLive
}

// checkKey rejects live keys in test mode and the reverse. Restricted keys
// (rk_) are accepted alongside secret keys (sk_).
func checkKey(env, key string) error {
	if key == "" {
		return errAPIKeyRequired
	}
	switch env {
	case EnvTest, EnvLive:
	default:
		return fmt.Errorf("stripe environment must be %q or %q, got %q", EnvTest, EnvLive, env)
	}
	for _, kind := range []string{"sk_", "rk_"} {
		if strings.HasPrefix(key, kind+env+"_") {
			return nil
		}
	}
	return fmt.Errorf("stripe environment %q requires an sk_%s or rk_%s key", env, env, env)
}

// leveledLogger sends stripe-go's request logs through the service logger.
// Info and debug chatter is demoted to debug.
type leveledLogger struct {
	logg *logger.Logger
}

func (l *leveledLogger) Debugf(format string, v ...interface{}) {
	l.logg.Debug(context.Background(), "stripe: "+fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Infof(format string, v ...interface{}) {
	l.logg.Debug(context.Background(), "stripe: "+fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Warnf(format string, v ...interface{}) {
	l.logg.Warn(context.Background(), "stripe: "+fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Errorf(format string, v ...interface{}) {
	l.logg.Error(context.Background(), "stripe: "+fmt.Sprintf(format, v...), nil)
}

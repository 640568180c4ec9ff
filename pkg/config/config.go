package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
	Settlement   SettlementConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PACKFINDERZ_APP_ENV" required:"true"`
	Port         string `envconfig:"PACKFINDERZ_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PACKFINDERZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PACKFINDERZ_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"PACKFINDERZ_LOG_FORMAT" default:"json"`

	// CORSOrigins is a comma separated allow list for browser dashboards.
	CORSOrigins []string `envconfig:"PACKFINDERZ_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PACKFINDERZ_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PACKFINDERZ_DB_DSN"`
	Driver string `envconfig:"PACKFINDERZ_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PACKFINDERZ_DB_HOST"`
	LegacyPort     int    `envconfig:"PACKFINDERZ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PACKFINDERZ_DB_USER"`
	LegacyPassword string `envconfig:"PACKFINDERZ_DB_PASSWORD"`
	LegacyName     string `envconfig:"PACKFINDERZ_DB_NAME"`
	LegacySSLMode  string `envconfig:"PACKFINDERZ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PACKFINDERZ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PACKFINDERZ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PACKFINDERZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PACKFINDERZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"PACKFINDERZ_DB_SLOW_QUERY" default:"500ms"`
}

// IsSQLite reports whether the connection targets the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"PACKFINDERZ_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PACKFINDERZ_REDIS_ADDR"`
	Password     string        `envconfig:"PACKFINDERZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"PACKFINDERZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PACKFINDERZ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PACKFINDERZ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PACKFINDERZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PACKFINDERZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PACKFINDERZ_REDIS_WRITE_TIMEOUT" default:"5s"`
	// KeyPrefix is shared with the marketplace API so session keys line up.
	KeyPrefix string `envconfig:"PACKFINDERZ_REDIS_KEY_PREFIX" default:"pf"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PACKFINDERZ_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PACKFINDERZ_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PACKFINDERZ_JWT_EXPIRATION_MINUTES" required:"true"`
	// Leeway absorbs clock skew against the marketplace API that mints tokens.
	Leeway time.Duration `envconfig:"PACKFINDERZ_JWT_LEEWAY" default:"30s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"PACKFINDERZ_AUTO_MIGRATE" default:"false"`
	SessionCheck  bool `envconfig:"PACKFINDERZ_FEATURE_SESSION_CHECK" default:"true"`
	ExposeMetrics bool `envconfig:"PACKFINDERZ_FEATURE_EXPOSE_METRICS" default:"true"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PACKFINDERZ_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PACKFINDERZ_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PACKFINDERZ_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PACKFINDERZ_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SettlementSubscription string `envconfig:"PACKFINDERZ_PUBSUB_SETTLEMENT_SUBSCRIPTION" default:"pf-settlement-order-paid"`
	NotificationTopic      string `envconfig:"PACKFINDERZ_PUBSUB_NOTIFICATION_TOPIC" default:"pf-notification-events"`
	OperationsTopic        string `envconfig:"PACKFINDERZ_PUBSUB_OPERATIONS_TOPIC" default:"pf-operations-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PACKFINDERZ_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PACKFINDERZ_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PACKFINDERZ_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"PACKFINDERZ_OUTBOX_RETENTION_DAYS" default:"30"`
}

type StripeConfig struct {
	APIKey string `envconfig:"PACKFINDERZ_STRIPE_API_KEY"`
	Env    string `envconfig:"PACKFINDERZ_STRIPE_ENV" default:"test"`

	MaxNetworkRetries int64         `envconfig:"PACKFINDERZ_STRIPE_MAX_NETWORK_RETRIES" default:"2"`
	Timeout           time.Duration `envconfig:"PACKFINDERZ_STRIPE_TIMEOUT" default:"30s"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// SettlementConfig holds the holding window and payout retry policy.
type SettlementConfig struct {
	HoldDays          int           `envconfig:"PACKFINDERZ_SETTLEMENT_HOLD_DAYS" default:"14"`
	Currency          string        `envconfig:"PACKFINDERZ_SETTLEMENT_CURRENCY" default:"usd"`
	SweepBatchSize    int           `envconfig:"PACKFINDERZ_SETTLEMENT_SWEEP_BATCH_SIZE" default:"200"`
	PayoutBatchSize   int           `envconfig:"PACKFINDERZ_SETTLEMENT_PAYOUT_BATCH_SIZE" default:"100"`
	MaxAttempts       int           `envconfig:"PACKFINDERZ_SETTLEMENT_PAYOUT_MAX_ATTEMPTS" default:"5"`
	RetryBaseDelay    time.Duration `envconfig:"PACKFINDERZ_SETTLEMENT_PAYOUT_RETRY_BASE" default:"15m"`
	RetryMaxDelay     time.Duration `envconfig:"PACKFINDERZ_SETTLEMENT_PAYOUT_RETRY_MAX" default:"24h"`
	PayoutLockTTL     time.Duration `envconfig:"PACKFINDERZ_SETTLEMENT_PAYOUT_LOCK_TTL" default:"2m"`
	TransferTimeout   time.Duration `envconfig:"PACKFINDERZ_SETTLEMENT_TRANSFER_TIMEOUT" default:"30s"`
	BatchTransfers    bool          `envconfig:"PACKFINDERZ_SETTLEMENT_BATCH_TRANSFERS" default:"false"`
	ConsumerName      string        `envconfig:"PACKFINDERZ_SETTLEMENT_CONSUMER_NAME" default:"settlement-ingestion"`
	PayoutsEnabled    bool          `envconfig:"PACKFINDERZ_SETTLEMENT_PAYOUTS_ENABLED" default:"true"`
	SweepEnabled      bool          `envconfig:"PACKFINDERZ_SETTLEMENT_SWEEP_ENABLED" default:"true"`
	PendingSalesLimit int           `envconfig:"PACKFINDERZ_SETTLEMENT_PENDING_SALES_LIMIT" default:"500"`
}

func (s SettlementConfig) validate() error {
	if s.HoldDays < 0 {
		return fmt.Errorf("%s must be non-negative", EnvSettlementHoldDays)
	}
	if s.MaxAttempts <= 0 {
		return fmt.Errorf("%s must be positive", EnvSettlementMaxAttempts)
	}
	if s.RetryMaxDelay > 0 && s.RetryBaseDelay > s.RetryMaxDelay {
		return fmt.Errorf("%s must not exceed %s", EnvSettlementRetryBase, EnvSettlementRetryMax)
	}
	if s.TransferTimeout > 0 && s.PayoutLockTTL > 0 && s.PayoutLockTTL <= s.TransferTimeout {
		return fmt.Errorf("%s must exceed %s", EnvSettlementPayoutLockTTL, EnvSettlementTransferTimeout)
	}
	return nil
}

// CronConfig drives the cron worker cadence. Schedule takes precedence over Interval.
type CronConfig struct {
	Schedule string        `envconfig:"PACKFINDERZ_CRON_SCHEDULE" default:"@every 1h"`
	Interval time.Duration `envconfig:"PACKFINDERZ_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"PACKFINDERZ_CRON_LOCK_TTL" default:"55m"`

	// JobTimeout bounds a single job inside a cycle.
	JobTimeout time.Duration `envconfig:"PACKFINDERZ_CRON_JOB_TIMEOUT" default:"20m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

package config

const EnvPrefix = "PACKFINDERZ"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:settlement.db?_foreign_keys=on"
)

const (
	EnvAppEnv   = "PACKFINDERZ_APP_ENV"
	EnvPort     = "PACKFINDERZ_APP_PORT"
	EnvLogLevel = "PACKFINDERZ_LOG_LEVEL"
	EnvLogFmt   = "PACKFINDERZ_LOG_FORMAT"

	EnvDBDSN    = "PACKFINDERZ_DB_DSN"
	EnvDBDriver = "PACKFINDERZ_DB_DRIVER"
	EnvDBHost   = "PACKFINDERZ_DB_HOST"
	EnvDBUser   = "PACKFINDERZ_DB_USER"
	EnvDBName   = "PACKFINDERZ_DB_NAME"

	EnvRedisURL = "PACKFINDERZ_REDIS_URL"

	EnvJWTSecret  = "PACKFINDERZ_JWT_SECRET"
	EnvJWTIssuer  = "PACKFINDERZ_JWT_ISSUER"
	EnvJWTExpMins = "PACKFINDERZ_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "PACKFINDERZ_GCP_PROJECT_ID"

	EnvPubSubSettlementSub = "PACKFINDERZ_PUBSUB_SETTLEMENT_SUBSCRIPTION"
	EnvPubSubNotification  = "PACKFINDERZ_PUBSUB_NOTIFICATION_TOPIC"

	EnvStripeAPIKey = "PACKFINDERZ_STRIPE_API_KEY"

	EnvSettlementHoldDays        = "PACKFINDERZ_SETTLEMENT_HOLD_DAYS"
	EnvSettlementMaxAttempts     = "PACKFINDERZ_SETTLEMENT_PAYOUT_MAX_ATTEMPTS"
	EnvSettlementRetryBase       = "PACKFINDERZ_SETTLEMENT_PAYOUT_RETRY_BASE"
	EnvSettlementRetryMax        = "PACKFINDERZ_SETTLEMENT_PAYOUT_RETRY_MAX"
	EnvSettlementPayoutLockTTL   = "PACKFINDERZ_SETTLEMENT_PAYOUT_LOCK_TTL"
	EnvSettlementTransferTimeout = "PACKFINDERZ_SETTLEMENT_TRANSFER_TIMEOUT"
	EnvSettlementBatchTransfers  = "PACKFINDERZ_SETTLEMENT_BATCH_TRANSFERS"

	EnvCronSchedule = "PACKFINDERZ_CRON_SCHEDULE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

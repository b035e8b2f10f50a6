package config

// EnvPrefix is passed to envconfig. Fields name their variables explicitly.
const EnvPrefix = "CARTSYNC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv         = "CARTSYNC_APP_ENV"
	EnvPort           = "CARTSYNC_APP_PORT"
	EnvLogLevel       = "CARTSYNC_LOG_LEVEL"
	EnvCartServiceURL = "CARTSYNC_CART_SERVICE_URL"
	EnvCartServiceTok = "CARTSYNC_CART_SERVICE_TOKEN"
	EnvDBDSN          = "CARTSYNC_DB_DSN"
	EnvDBDriver       = "CARTSYNC_DB_DRIVER"
	EnvRedisURL       = "CARTSYNC_REDIS_URL"
	EnvRedisAddr      = "CARTSYNC_REDIS_ADDR"
	EnvJWTSecret      = "CARTSYNC_JWT_SECRET"
	EnvJWTIssuer      = "CARTSYNC_JWT_ISSUER"
	EnvSnapshotDriver = "CARTSYNC_SNAPSHOT_DRIVER"
	EnvSnapshotTTL    = "CARTSYNC_SNAPSHOT_TTL"
	EnvSessionIdleTTL = "CARTSYNC_SESSION_IDLE_TTL"
	EnvSessionSweep   = "CARTSYNC_SESSION_SWEEP_INTERVAL"
	EnvNotifyDriver   = "CARTSYNC_NOTIFY_DRIVER"
	EnvNotifyChannel  = "CARTSYNC_NOTIFY_REDIS_CHANNEL"
	EnvNotifyTopic    = "CARTSYNC_NOTIFY_PUBSUB_TOPIC"
	EnvGCPProjectID   = "CARTSYNC_GCP_PROJECT_ID"
	EnvAutoMigrate    = "CARTSYNC_AUTO_MIGRATE"
	EnvCORSOrigins    = "CARTSYNC_CORS_ORIGINS"
)

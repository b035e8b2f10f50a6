package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/cartsync/pkg/enums"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	CartService   CartServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Snapshots     SnapshotConfig
	Sessions      SessionConfig
	Notifications NotificationConfig
	GCP           GCPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARTSYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"CARTSYNC_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CARTSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARTSYNC_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"CARTSYNC_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CartServiceConfig points at the remote cart REST service being mirrored.
type CartServiceConfig struct {
	BaseURL string        `envconfig:"CARTSYNC_CART_SERVICE_URL" required:"true"`
	Token   string        `envconfig:"CARTSYNC_CART_SERVICE_TOKEN"`
	Timeout time.Duration `envconfig:"CARTSYNC_CART_SERVICE_TIMEOUT" default:"10s"`
}

type DBConfig struct {
	DSN    string `envconfig:"CARTSYNC_DB_DSN"`
	Driver string `envconfig:"CARTSYNC_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"CARTSYNC_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"CARTSYNC_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CARTSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARTSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the snapshot database runs on the sqlite driver.
func (d DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(d.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTSYNC_REDIS_URL"`
	Address      string        `envconfig:"CARTSYNC_REDIS_ADDR"`
	Password     string        `envconfig:"CARTSYNC_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTSYNC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether any redis endpoint was supplied.
func (r RedisConfig) Configured() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"CARTSYNC_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CARTSYNC_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CARTSYNC_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CARTSYNC_AUTO_MIGRATE" default:"false"`
}

// SnapshotConfig controls where per-user cart mirrors are persisted between restarts.
type SnapshotConfig struct {
	Driver string        `envconfig:"CARTSYNC_SNAPSHOT_DRIVER" default:"none"`
	TTL    time.Duration `envconfig:"CARTSYNC_SNAPSHOT_TTL" default:"168h"`
}

// SessionConfig bounds how long an unused per-user mirror stays in memory.
// A zero IdleTTL keeps mirrors for the life of the process.
type SessionConfig struct {
	IdleTTL       time.Duration `envconfig:"CARTSYNC_SESSION_IDLE_TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"CARTSYNC_SESSION_SWEEP_INTERVAL" default:"1m"`
}

// DriverKind returns the parsed snapshot driver.
func (s SnapshotConfig) DriverKind() enums.SnapshotDriver {
	driver, err := enums.ParseSnapshotDriver(strings.ToLower(strings.TrimSpace(s.Driver)))
	if err != nil {
		return enums.SnapshotDriverNone
	}
	return driver
}

// NotificationConfig selects how user-visible cart notifications are delivered.
type NotificationConfig struct {
	Driver       string `envconfig:"CARTSYNC_NOTIFY_DRIVER" default:"log"`
	RedisChannel string `envconfig:"CARTSYNC_NOTIFY_REDIS_CHANNEL" default:"cartsync:notifications"`
	PubSubTopic  string `envconfig:"CARTSYNC_NOTIFY_PUBSUB_TOPIC" default:"cartsync-notifications"`
}

// DriverKind returns the parsed notification driver.
func (n NotificationConfig) DriverKind() enums.NotificationDriver {
	driver, err := enums.ParseNotificationDriver(strings.ToLower(strings.TrimSpace(n.Driver)))
	if err != nil {
		return enums.NotificationDriverLog
	}
	return driver
}

type GCPConfig struct {
	ProjectID string `envconfig:"CARTSYNC_GCP_PROJECT_ID"`
}

func (c *Config) validate() error {
	if _, err := url.ParseRequestURI(c.CartService.BaseURL); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvCartServiceURL, err)
	}

	snapshots, err := enums.ParseSnapshotDriver(strings.ToLower(strings.TrimSpace(c.Snapshots.Driver)))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", EnvSnapshotDriver, err)
	}
	notify, err := enums.ParseNotificationDriver(strings.ToLower(strings.TrimSpace(c.Notifications.Driver)))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", EnvNotifyDriver, err)
	}

	if c.Sessions.IdleTTL < 0 {
		return fmt.Errorf("%s must not be negative", EnvSessionIdleTTL)
	}
	if c.Sessions.IdleTTL > 0 && c.Sessions.SweepInterval <= 0 {
		return fmt.Errorf("%s must be positive when %s is set", EnvSessionSweep, EnvSessionIdleTTL)
	}

	needsRedis := snapshots == enums.SnapshotDriverRedis || notify == enums.NotificationDriverRedis
	if needsRedis && !c.Redis.Configured() {
		return fmt.Errorf("either %s or %s is required for the selected drivers", EnvRedisURL, EnvRedisAddr)
	}
	if snapshots == enums.SnapshotDriverDB && strings.TrimSpace(c.DB.DSN) == "" {
		return fmt.Errorf("%s is required when %s=db", EnvDBDSN, EnvSnapshotDriver)
	}
	if notify == enums.NotificationDriverPubSub && strings.TrimSpace(c.GCP.ProjectID) == "" {
		return fmt.Errorf("%s is required when %s=pubsub", EnvGCPProjectID, EnvNotifyDriver)
	}
	return nil
}

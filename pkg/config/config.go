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
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Integration  IntegrationConfig
	Loyalty      LoyaltyConfig
	Inventory    InventoryConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
	Tracing      TracingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DMS_APP_ENV" required:"true"`
	Port         string `envconfig:"DMS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DMS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DMS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"DMS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DMS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DMS_DB_DSN"`
	Driver string `envconfig:"DMS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DMS_DB_HOST"`
	LegacyPort     int    `envconfig:"DMS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DMS_DB_USER"`
	LegacyPassword string `envconfig:"DMS_DB_PASSWORD"`
	LegacyName     string `envconfig:"DMS_DB_NAME"`
	LegacySSLMode  string `envconfig:"DMS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DMS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DMS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DMS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DMS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DMS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DMS_REDIS_ADDR"`
	Password     string        `envconfig:"DMS_REDIS_PASSWORD"`
	DB           int           `envconfig:"DMS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DMS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DMS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DMS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DMS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DMS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DMS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DMS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DMS_JWT_EXPIRATION_MINUTES" default:"60"`
	// RequireSession makes the auth middleware check the token id against the Redis session store.
	RequireSession bool `envconfig:"DMS_JWT_REQUIRE_SESSION" default:"false"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DMS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"DMS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic    string `envconfig:"DMS_PUBSUB_DOMAIN_TOPIC" default:"dms-domain-events"`
	InventoryTopic string `envconfig:"DMS_PUBSUB_INVENTORY_TOPIC" default:"dms-inventory-events"`
	LoyaltyTopic   string `envconfig:"DMS_PUBSUB_LOYALTY_TOPIC" default:"dms-loyalty-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DMS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DMS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DMS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type IntegrationConfig struct {
	CRMBaseURL       string        `envconfig:"DMS_INTEGRATION_CRM_BASE_URL"`
	FinancialBaseURL string        `envconfig:"DMS_INTEGRATION_FINANCIAL_BASE_URL"`
	Timeout          time.Duration `envconfig:"DMS_INTEGRATION_TIMEOUT" default:"5s"`
	BreakerFailures  uint32        `envconfig:"DMS_INTEGRATION_BREAKER_FAILURES" default:"5"`
	BreakerOpenFor   time.Duration `envconfig:"DMS_INTEGRATION_BREAKER_OPEN_FOR" default:"30s"`
}

type LoyaltyConfig struct {
	TierFile         string `envconfig:"DMS_LOYALTY_TIER_FILE"`
	PointsExpiryDays int    `envconfig:"DMS_LOYALTY_POINTS_EXPIRY_DAYS" default:"365"`
}

type InventoryConfig struct {
	LowStockThreshold int `envconfig:"DMS_INVENTORY_LOW_STOCK_THRESHOLD" default:"5"`
}

// RateLimitConfig bounds write traffic under /api. A zero limit disables that dimension.
type RateLimitConfig struct {
	WriteWindow    time.Duration `envconfig:"DMS_RATE_LIMIT_WRITE_WINDOW" default:"1m"`
	WriteIPLimit   int           `envconfig:"DMS_RATE_LIMIT_WRITE_IP" default:"300"`
	WriteUserLimit int           `envconfig:"DMS_RATE_LIMIT_WRITE_USER" default:"120"`
}

// TracingConfig drives the OpenTelemetry SDK. Spans are exported over OTLP
// gRPC only when an endpoint is set; propagation works either way.
type TracingConfig struct {
	OTLPEndpoint string  `envconfig:"DMS_TRACING_OTLP_ENDPOINT"`
	SampleRatio  float64 `envconfig:"DMS_TRACING_SAMPLE_RATIO" default:"1"`
}

// CronConfig sets the worker cycle. Points expiry and outbox retention run
// on their own, longer cadence; the other jobs run every cycle.
type CronConfig struct {
	Interval             time.Duration `envconfig:"DMS_CRON_INTERVAL" default:"1h"`
	LockTTL              time.Duration `envconfig:"DMS_CRON_LOCK_TTL" default:"10m"`
	PointsExpiryEvery    time.Duration `envconfig:"DMS_CRON_POINTS_EXPIRY_EVERY" default:"24h"`
	OutboxRetentionEvery time.Duration `envconfig:"DMS_CRON_OUTBOX_RETENTION_EVERY" default:"24h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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

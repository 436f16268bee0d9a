package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
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
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Commerce     CommerceConfig
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
	if err := cfg.Commerce.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PENNYEKART_APP_ENV" required:"true"`
	Port         string `envconfig:"PENNYEKART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PENNYEKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PENNYEKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PENNYEKART_SERVICE_KIND" default:"api"`
	// MetricsAddr exposes /metrics from background workers, e.g. ":9090".
	MetricsAddr string `envconfig:"PENNYEKART_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"PENNYEKART_DB_DSN"`
	Driver string `envconfig:"PENNYEKART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PENNYEKART_DB_HOST"`
	Port     int    `envconfig:"PENNYEKART_DB_PORT" default:"5432"`
	User     string `envconfig:"PENNYEKART_DB_USER"`
	Password string `envconfig:"PENNYEKART_DB_PASSWORD"`
	Name     string `envconfig:"PENNYEKART_DB_NAME"`
	SSLMode  string `envconfig:"PENNYEKART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PENNYEKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PENNYEKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PENNYEKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PENNYEKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"PENNYEKART_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
	TxRetries          int           `envconfig:"PENNYEKART_DB_TX_RETRIES" default:"2"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PENNYEKART_REDIS_URL"`
	Address      string        `envconfig:"PENNYEKART_REDIS_ADDR"`
	Password     string        `envconfig:"PENNYEKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"PENNYEKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PENNYEKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PENNYEKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PENNYEKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PENNYEKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PENNYEKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig validates bearer tokens issued by the identity provider.
type JWTConfig struct {
	Secret            string        `envconfig:"PENNYEKART_JWT_SECRET" required:"true"`
	Issuer            string        `envconfig:"PENNYEKART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int           `envconfig:"PENNYEKART_JWT_EXPIRATION_MINUTES" default:"60"`
	Audience          string        `envconfig:"PENNYEKART_JWT_AUDIENCE"`
	Leeway            time.Duration `envconfig:"PENNYEKART_JWT_LEEWAY" default:"30s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PENNYEKART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PENNYEKART_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PENNYEKART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	ClaimLease           time.Duration `envconfig:"PENNYEKART_EVENTING_CLAIM_LEASE" default:"2m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PENNYEKART_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PENNYEKART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PENNYEKART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic           string `envconfig:"PENNYEKART_PUBSUB_DOMAIN_TOPIC" default:"pk-domain-events"`
	AnalyticsSubscription string `envconfig:"PENNYEKART_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"pk-analytics-sub"`
	// MaxOutstanding caps unacked messages held by the analytics worker.
	MaxOutstanding int `envconfig:"PENNYEKART_PUBSUB_MAX_OUTSTANDING" default:"100"`
}

type BigQueryConfig struct {
	Dataset           string `envconfig:"PENNYEKART_BIGQUERY_DATASET" default:"pennyekart"`
	FulfillmentTable  string `envconfig:"PENNYEKART_BIGQUERY_FULFILLMENT_TABLE" default:"fulfillment_events"`
	InsertMaxAttempts int    `envconfig:"PENNYEKART_BIGQUERY_INSERT_MAX_ATTEMPTS" default:"3"`
	AutoCreateTables  bool   `envconfig:"PENNYEKART_BIGQUERY_AUTO_CREATE_TABLES" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"PENNYEKART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"PENNYEKART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"PENNYEKART_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"PENNYEKART_OUTBOX_RETENTION" default:"336h"`
	DLQRetention   time.Duration `envconfig:"PENNYEKART_OUTBOX_DLQ_RETENTION" default:"720h"`
}

// CommerceConfig carries the storefront money rules.
type CommerceConfig struct {
	PlatformFee    string        `envconfig:"PENNYEKART_PLATFORM_FEE" default:"7"`
	DeliveryCredit string        `envconfig:"PENNYEKART_DELIVERY_CREDIT" default:"30"`
	DemandWindow   int           `envconfig:"PENNYEKART_DEMAND_WINDOW_ORDERS" default:"1000"`
	CartTTL        time.Duration `envconfig:"PENNYEKART_CART_TTL" default:"720h"`
}

// PlatformFeeAmount returns the flat fee charged on every non-empty checkout.
func (c CommerceConfig) PlatformFeeAmount() decimal.Decimal {
	fee, err := decimal.NewFromString(strings.TrimSpace(c.PlatformFee))
	if err != nil {
		return decimal.Zero
	}
	return fee
}

// DeliveryCreditAmount returns the wallet credit earned per delivered order.
func (c CommerceConfig) DeliveryCreditAmount() decimal.Decimal {
	credit, err := decimal.NewFromString(strings.TrimSpace(c.DeliveryCredit))
	if err != nil {
		return decimal.Zero
	}
	return credit
}

func (c CommerceConfig) validate() error {
	fee, err := decimal.NewFromString(strings.TrimSpace(c.PlatformFee))
	if err != nil {
		return fmt.Errorf("%s: %w", EnvPlatformFee, err)
	}
	if fee.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvPlatformFee)
	}
	credit, err := decimal.NewFromString(strings.TrimSpace(c.DeliveryCredit))
	if err != nil {
		return fmt.Errorf("%s: %w", EnvDeliveryCredit, err)
	}
	if credit.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvDeliveryCredit)
	}
	if c.DemandWindow <= 0 {
		return fmt.Errorf("%s must be positive", EnvDemandWindow)
	}
	return nil
}

type CronConfig struct {
	Interval  time.Duration `envconfig:"PENNYEKART_CRON_INTERVAL" default:"5m"`
	LockTTL   time.Duration `envconfig:"PENNYEKART_CRON_LOCK_TTL" default:"4m"`
	ReportTTL time.Duration `envconfig:"PENNYEKART_STOCK_REPORT_TTL" default:"15m"`
	// RetentionEvery spaces out outbox pruning independently of Interval.
	RetentionEvery time.Duration `envconfig:"PENNYEKART_CRON_RETENTION_EVERY" default:"24h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

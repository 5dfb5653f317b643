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
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	AdminAuth     AdminAuthConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Orders        OrdersConfig
	Lock          LockConfig
	Notifications NotificationsConfig
	SMTP          SMTPConfig
	CORS          CORSConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	Seed          SeedConfig
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
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"STOREFRONT_DB_DSN"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig covers customer bearer tokens issued by the sign-in service.
type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// AdminAuthConfig covers the admin-token cookie and its backing session.
type AdminAuthConfig struct {
	Secret       string        `envconfig:"STOREFRONT_ADMIN_JWT_SECRET" required:"true"`
	Issuer       string        `envconfig:"STOREFRONT_ADMIN_JWT_ISSUER" default:"abhiruchieats-admin"`
	TokenTTL     time.Duration `envconfig:"STOREFRONT_ADMIN_TOKEN_TTL" default:"24h"`
	CookieName   string        `envconfig:"STOREFRONT_ADMIN_COOKIE_NAME" default:"admin-token"`
	CookieSecure bool          `envconfig:"STOREFRONT_ADMIN_COOKIE_SECURE" default:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STOREFRONT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STOREFRONT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STOREFRONT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STOREFRONT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STOREFRONT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate   bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
	RedisLocking  bool `envconfig:"STOREFRONT_REDIS_LOCKING" default:"true"`
	DevTokenIssue bool `envconfig:"STOREFRONT_DEV_TOKEN_ISSUE" default:"false"`
}

type OrdersConfig struct {
	StrictTransitions bool   `envconfig:"STOREFRONT_ORDERS_STRICT_TRANSITIONS" default:"false"`
	GateCheckoutStock bool   `envconfig:"STOREFRONT_ORDERS_GATE_CHECKOUT_STOCK" default:"false"`
	TaxRate           string `envconfig:"STOREFRONT_ORDERS_TAX_RATE" default:"0.05"`
	NumberPrefix      string `envconfig:"STOREFRONT_ORDERS_NUMBER_PREFIX" default:"AE"`
}

// Tax parses the configured tax rate.
func (o OrdersConfig) Tax() (decimal.Decimal, error) {
	raw := strings.TrimSpace(o.TaxRate)
	if raw == "" {
		return decimal.Zero, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing tax rate %q: %w", raw, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("tax rate must be non-negative")
	}
	return rate, nil
}

type LockConfig struct {
	TTL            time.Duration `envconfig:"STOREFRONT_LOCK_TTL" default:"10s"`
	AcquireTimeout time.Duration `envconfig:"STOREFRONT_LOCK_ACQUIRE_TIMEOUT" default:"3s"`
	RetryInterval  time.Duration `envconfig:"STOREFRONT_LOCK_RETRY_INTERVAL" default:"25ms"`
}

type NotificationsConfig struct {
	Workers     int           `envconfig:"STOREFRONT_NOTIFICATIONS_WORKERS" default:"2"`
	QueueSize   int           `envconfig:"STOREFRONT_NOTIFICATIONS_QUEUE_SIZE" default:"100"`
	SendTimeout time.Duration `envconfig:"STOREFRONT_NOTIFICATIONS_SEND_TIMEOUT" default:"15s"`
}

type SMTPConfig struct {
	Host     string `envconfig:"STOREFRONT_SMTP_HOST" default:"smtp.gmail.com"`
	Port     int    `envconfig:"STOREFRONT_SMTP_PORT" default:"587"`
	User     string `envconfig:"STOREFRONT_SMTP_USER"`
	Password string `envconfig:"STOREFRONT_SMTP_PASS"`
	From     string `envconfig:"STOREFRONT_SMTP_FROM"`
	FromName string `envconfig:"STOREFRONT_SMTP_FROM_NAME" default:"AbhiruchiEats"`
}

// Enabled reports whether enough SMTP settings exist to send mail.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != "" && strings.TrimSpace(s.User) != "" && s.Password != ""
}

// Sender returns the envelope sender, defaulting to the SMTP user.
func (s SMTPConfig) Sender() string {
	if from := strings.TrimSpace(s.From); from != "" {
		return from
	}
	return strings.TrimSpace(s.User)
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"storefront-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	// MetricsAddr exposes /metrics for the publisher when set, e.g. ":9091".
	MetricsAddr string `envconfig:"STOREFRONT_OUTBOX_METRICS_ADDR"`
}

// CronConfig drives the maintenance worker.
type CronConfig struct {
	Interval                 time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"1h"`
	LockTTL                  time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"55m"`
	OutboxRetentionDays      int           `envconfig:"STOREFRONT_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	SessionCartRetentionDays int           `envconfig:"STOREFRONT_CRON_SESSION_CART_RETENTION_DAYS" default:"14"`
	MetricsAddr              string        `envconfig:"STOREFRONT_CRON_METRICS_ADDR"`
}

type SeedConfig struct {
	AdminEmail    string `envconfig:"STOREFRONT_SEED_ADMIN_EMAIL" default:"admin@abhiruchieats.com"`
	AdminName     string `envconfig:"STOREFRONT_SEED_ADMIN_NAME" default:"AbhiruchiEats Admin"`
	AdminPassword string `envconfig:"STOREFRONT_SEED_ADMIN_PASSWORD"`
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

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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Checkout      CheckoutConfig
	Orders        OrdersConfig
	Outbox        OutboxConfig
	Kafka         KafkaConfig
	Telemetry     TelemetryConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MARKETPLACE_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETPLACE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MARKETPLACE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETPLACE_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"MARKETPLACE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"MARKETPLACE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MARKETPLACE_DB_DSN"`
	Driver string `envconfig:"MARKETPLACE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MARKETPLACE_DB_HOST"`
	Port     int    `envconfig:"MARKETPLACE_DB_PORT" default:"5432"`
	User     string `envconfig:"MARKETPLACE_DB_USER"`
	Password string `envconfig:"MARKETPLACE_DB_PASSWORD"`
	Name     string `envconfig:"MARKETPLACE_DB_NAME"`
	SSLMode  string `envconfig:"MARKETPLACE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKETPLACE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETPLACE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETPLACE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETPLACE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETPLACE_REDIS_URL"`
	Address      string        `envconfig:"MARKETPLACE_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETPLACE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETPLACE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETPLACE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETPLACE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETPLACE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETPLACE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETPLACE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"MARKETPLACE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MARKETPLACE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MARKETPLACE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the configured lifetime of access tokens.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MARKETPLACE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MARKETPLACE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MARKETPLACE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MARKETPLACE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MARKETPLACE_ARGON_KEY_LEN" default:"32"`
}

// AuthRateLimitConfig bounds login and register attempts per client IP and per email.
// A zero window or zero limits disable the corresponding throttle.
type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"MARKETPLACE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit       int           `envconfig:"MARKETPLACE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit    int           `envconfig:"MARKETPLACE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	RegisterWindow     time.Duration `envconfig:"MARKETPLACE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterIPLimit    int           `envconfig:"MARKETPLACE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"10"`
	RegisterEmailLimit int           `envconfig:"MARKETPLACE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MARKETPLACE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MARKETPLACE_AUTO_MIGRATE" default:"false"`
}

type CheckoutConfig struct {
	MaxItems       int    `envconfig:"MARKETPLACE_CHECKOUT_MAX_ITEMS" default:"100"`
	PriceTolerance string `envconfig:"MARKETPLACE_CHECKOUT_PRICE_TOLERANCE" default:"0.01"`
}

// Tolerance returns the accepted difference between a client price and the live price.
func (c CheckoutConfig) Tolerance() decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(c.PriceTolerance))
	if err != nil || value.IsNegative() {
		return decimal.New(1, -2)
	}
	return value
}

func (c CheckoutConfig) validate() error {
	if c.MaxItems <= 0 {
		return fmt.Errorf("%s must be positive", EnvCheckoutMaxItems)
	}
	if strings.TrimSpace(c.PriceTolerance) == "" {
		return nil
	}
	value, err := decimal.NewFromString(strings.TrimSpace(c.PriceTolerance))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvCheckoutPriceTolerance, err)
	}
	if value.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvCheckoutPriceTolerance)
	}
	return nil
}

type OrdersConfig struct {
	PendingTTL      time.Duration `envconfig:"MARKETPLACE_ORDERS_PENDING_TTL" default:"72h"`
	ExpiryBatchSize int           `envconfig:"MARKETPLACE_ORDERS_EXPIRY_BATCH_SIZE" default:"100"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"MARKETPLACE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"MARKETPLACE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"MARKETPLACE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	SentMarkerTTL  time.Duration `envconfig:"MARKETPLACE_OUTBOX_SENT_MARKER_TTL" default:"24h"`
}

type KafkaConfig struct {
	Brokers      []string `envconfig:"MARKETPLACE_KAFKA_BROKERS" default:"localhost:9092"`
	OrdersTopic  string   `envconfig:"MARKETPLACE_KAFKA_ORDERS_TOPIC" default:"marketplace.orders"`
	CatalogTopic string   `envconfig:"MARKETPLACE_KAFKA_CATALOG_TOPIC" default:"marketplace.catalog"`
}

type TelemetryConfig struct {
	OTLPEndpoint   string `envconfig:"MARKETPLACE_OTLP_ENDPOINT"`
	ServiceVersion string `envconfig:"MARKETPLACE_SERVICE_VERSION" default:"dev"`
}

// TracingEnabled reports whether spans should be exported.
func (t TelemetryConfig) TracingEnabled() bool {
	return strings.TrimSpace(t.OTLPEndpoint) != ""
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"MARKETPLACE_CRON_INTERVAL" default:"5m"`
	LockTTL         time.Duration `envconfig:"MARKETPLACE_CRON_LOCK_TTL" default:"4m"`
	OutboxRetention time.Duration `envconfig:"MARKETPLACE_CRON_OUTBOX_RETENTION" default:"720h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = defaultSQLiteDSN
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range hostDBEnvVars {
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

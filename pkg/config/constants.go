package config

// EnvPrefix is handed to envconfig; every field carries an explicit MARKETPLACE_* tag.
const EnvPrefix = "MARKETPLACE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:marketplace.db?_foreign_keys=on"
)

const (
	EnvAppEnv    = "MARKETPLACE_APP_ENV"
	EnvPort      = "MARKETPLACE_APP_PORT"
	EnvLogLevel  = "MARKETPLACE_LOG_LEVEL"
	EnvDBDSN     = "MARKETPLACE_DB_DSN"
	EnvDBDriver  = "MARKETPLACE_DB_DRIVER"
	EnvDBHost    = "MARKETPLACE_DB_HOST"
	EnvDBUser    = "MARKETPLACE_DB_USER"
	EnvDBName    = "MARKETPLACE_DB_NAME"
	EnvRedisURL  = "MARKETPLACE_REDIS_URL"
	EnvJWTSecret = "MARKETPLACE_JWT_SECRET"
	EnvJWTIssuer = "MARKETPLACE_JWT_ISSUER"
	EnvJWTExpMin = "MARKETPLACE_JWT_EXPIRATION_MINUTES"
	EnvUseSQLite = "MARKETPLACE_USE_SQLITE"

	EnvCheckoutMaxItems       = "MARKETPLACE_CHECKOUT_MAX_ITEMS"
	EnvCheckoutPriceTolerance = "MARKETPLACE_CHECKOUT_PRICE_TOLERANCE"
	EnvOrdersPendingTTL       = "MARKETPLACE_ORDERS_PENDING_TTL"
	EnvKafkaBrokers           = "MARKETPLACE_KAFKA_BROKERS"
)

var hostDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

package config

// EnvPrefix is passed to envconfig; explicit envconfig tags on every field
// mean it rarely matters, but it keeps Process consistent.
const EnvPrefix = "BOOKLEND"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "BOOKLEND_APP_ENV"
	EnvPort     = "BOOKLEND_APP_PORT"
	EnvLogLevel = "BOOKLEND_LOG_LEVEL"

	EnvDBDSN      = "BOOKLEND_DB_DSN"
	EnvDBHost     = "BOOKLEND_DB_HOST"
	EnvDBPort     = "BOOKLEND_DB_PORT"
	EnvDBUser     = "BOOKLEND_DB_USER"
	EnvDBPassword = "BOOKLEND_DB_PASSWORD"
	EnvDBName     = "BOOKLEND_DB_NAME"
	EnvDBSSLMode  = "BOOKLEND_DB_SSLMODE"

	EnvRedisURL = "BOOKLEND_REDIS_URL"

	EnvJWTSecret               = "BOOKLEND_JWT_SECRET"
	EnvJWTIssuer               = "BOOKLEND_JWT_ISSUER"
	EnvJWTExpMins              = "BOOKLEND_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "BOOKLEND_REFRESH_TOKEN_TTL_MINUTES"
)

// legacyDBEnvVars are the discrete connection variables accepted when
// EnvDBDSN is unset. Port, password and sslmode have defaults.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

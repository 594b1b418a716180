package config

// EnvPrefix is handed to envconfig; every field carries its full env name.
const EnvPrefix = "LEADIA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "LEADIA_APP_ENV"
	EnvPort     = "LEADIA_APP_PORT"
	EnvLogLevel = "LEADIA_LOG_LEVEL"

	EnvDBDSN    = "LEADIA_DB_DSN"
	EnvDBDriver = "LEADIA_DB_DRIVER"
	EnvDBHost   = "LEADIA_DB_HOST"
	EnvDBUser   = "LEADIA_DB_USER"
	EnvDBName   = "LEADIA_DB_NAME"

	EnvRedisURL = "LEADIA_REDIS_URL"

	EnvJWTSecret              = "LEADIA_JWT_SECRET"
	EnvJWTIssuer              = "LEADIA_JWT_ISSUER"
	EnvJWTExpMins             = "LEADIA_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "LEADIA_REFRESH_TOKEN_TTL_MINUTES"

	EnvSearchProviderTimeout = "LEADIA_SEARCH_PROVIDER_TIMEOUT"
	EnvSearchAsync           = "LEADIA_SEARCH_ASYNC"
	EnvSearchMaxPerPage      = "LEADIA_SEARCH_MAX_PER_PAGE"
	EnvSearchStaleAfter      = "LEADIA_SEARCH_STALE_AFTER"

	EnvGCPProjectID      = "LEADIA_GCP_PROJECT_ID"
	EnvPubSubSearchTopic = "LEADIA_PUBSUB_SEARCH_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

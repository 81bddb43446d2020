package config

const (
	EnvPrefix = "OBC"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv  = "OBC_APP_ENV"
	EnvPort    = "OBC_APP_PORT"
	EnvLogLvl  = "OBC_LOG_LEVEL"
	EnvStorage = "OBC_STORAGE_BACKEND"

	EnvDBDSN      = "OBC_DB_DSN"
	EnvDBHost     = "OBC_DB_HOST"
	EnvDBPort     = "OBC_DB_PORT"
	EnvDBUser     = "OBC_DB_USER"
	EnvDBPassword = "OBC_DB_PASSWORD"
	EnvDBName     = "OBC_DB_NAME"
	EnvDBSSLMode  = "OBC_DB_SSLMODE"

	EnvRedisURL  = "OBC_REDIS_URL"
	EnvRedisAddr = "OBC_REDIS_ADDR"

	EnvRootUsername = "OBC_ROOT_USERNAME"
	EnvRootPassword = "OBC_ROOT_PASSWORD"
	EnvRootToken    = "OBC_ROOT_TOKEN"

	EnvDirectoryVisibility = "OBC_DIRECTORY_VISIBILITY"
	EnvRepairInterval      = "OBC_REPAIR_INTERVAL"
	EnvMailAPIKey          = "OBC_MAIL_API_KEY"
)

const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"

	VisibilityDeferred  = "deferred"
	VisibilityImmediate = "immediate"
)

var legacyDBEnvVars = []string{
	EnvDBHost,
	EnvDBUser,
	EnvDBName,
}

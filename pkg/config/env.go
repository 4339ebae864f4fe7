package config

const (
	EnvPrefix = "GRMC"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "GRMC_APP_ENV"
	EnvPort         = "GRMC_APP_PORT"
	EnvDBDSN        = "GRMC_DB_DSN"
	EnvDBHost       = "GRMC_DB_HOST"
	EnvDBUser       = "GRMC_DB_USER"
	EnvDBName       = "GRMC_DB_NAME"
	EnvDBPassword   = "GRMC_DB_PASSWORD"
	EnvRedisURL     = "GRMC_REDIS_URL"
	EnvJWTSecret    = "GRMC_JWT_SECRET"
	EnvJWTIssuer    = "GRMC_JWT_ISSUER"
	EnvJWTExpMins   = "GRMC_JWT_EXPIRATION_MINUTES"
	EnvLegacyTotal  = "GRMC_CHECKOUT_LEGACY_TOTAL_COLUMN"
	EnvCORSOrigins  = "GRMC_CORS_ALLOWED_ORIGINS"
	EnvEmailConfirm = "GRMC_AUTH_REQUIRE_EMAIL_CONFIRMATION"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

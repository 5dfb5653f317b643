package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv         = "STOREFRONT_APP_ENV"
	EnvPort           = "STOREFRONT_APP_PORT"
	EnvDBDSN          = "STOREFRONT_DB_DSN"
	EnvDBHost         = "STOREFRONT_DB_HOST"
	EnvDBUser         = "STOREFRONT_DB_USER"
	EnvDBName         = "STOREFRONT_DB_NAME"
	EnvRedisURL       = "STOREFRONT_REDIS_URL"
	EnvJWTSecret      = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer      = "STOREFRONT_JWT_ISSUER"
	EnvAdminJWTSecret = "STOREFRONT_ADMIN_JWT_SECRET"
	EnvStrictStatus   = "STOREFRONT_ORDERS_STRICT_TRANSITIONS"
	EnvTaxRate        = "STOREFRONT_ORDERS_TAX_RATE"
	EnvCORSOrigins    = "STOREFRONT_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

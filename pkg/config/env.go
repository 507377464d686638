package config

const (
	EnvPrefix = "GROUPCART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                 = "GROUPCART_APP_ENV"
	EnvPort                   = "GROUPCART_APP_PORT"
	EnvDBDSN                  = "GROUPCART_DB_DSN"
	EnvDBHost                 = "GROUPCART_DB_HOST"
	EnvDBUser                 = "GROUPCART_DB_USER"
	EnvDBName                 = "GROUPCART_DB_NAME"
	EnvDBPassword             = "GROUPCART_DB_PASSWORD"
	EnvRedisURL               = "GROUPCART_REDIS_URL"
	EnvJWTSecret              = "GROUPCART_JWT_SECRET"
	EnvJWTIssuer              = "GROUPCART_JWT_ISSUER"
	EnvJWTExpMins             = "GROUPCART_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "GROUPCART_REFRESH_TOKEN_TTL_MINUTES"
	EnvCartTTL                = "GROUPCART_CART_TTL"
	EnvGCPProjectID           = "GROUPCART_GCP_PROJECT_ID"
	EnvPubSubDomainTopic      = "GROUPCART_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSub        = "GROUPCART_PUBSUB_DOMAIN_SUBSCRIPTION"
	EnvCORSAllowedOrigins     = "GROUPCART_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

package config

const EnvPrefix = "PENNYEKART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "PENNYEKART_APP_ENV"
	EnvPort     = "PENNYEKART_APP_PORT"
	EnvLogLevel = "PENNYEKART_LOG_LEVEL"

	EnvDBDSN  = "PENNYEKART_DB_DSN"
	EnvDBHost = "PENNYEKART_DB_HOST"
	EnvDBPort = "PENNYEKART_DB_PORT"
	EnvDBUser = "PENNYEKART_DB_USER"
	EnvDBPass = "PENNYEKART_DB_PASSWORD"
	EnvDBName = "PENNYEKART_DB_NAME"

	EnvRedisURL = "PENNYEKART_REDIS_URL"

	EnvJWTSecret = "PENNYEKART_JWT_SECRET"
	EnvJWTIssuer = "PENNYEKART_JWT_ISSUER"

	EnvGCPProjectID = "PENNYEKART_GCP_PROJECT_ID"

	EnvPubSubDomainTopic  = "PENNYEKART_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubAnalyticsSub = "PENNYEKART_PUBSUB_ANALYTICS_SUBSCRIPTION"

	EnvPlatformFee    = "PENNYEKART_PLATFORM_FEE"
	EnvDeliveryCredit = "PENNYEKART_DELIVERY_CREDIT"
	EnvDemandWindow   = "PENNYEKART_DEMAND_WINDOW_ORDERS"
)

// dbPartEnvVars must all be present when no DSN is given.
var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

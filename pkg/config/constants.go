package config

const EnvPrefix = "DMS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "DMS_APP_ENV"
	EnvPort     = "DMS_APP_PORT"
	EnvLogLevel = "DMS_LOG_LEVEL"

	EnvDBDSN  = "DMS_DB_DSN"
	EnvDBHost = "DMS_DB_HOST"
	EnvDBUser = "DMS_DB_USER"
	EnvDBName = "DMS_DB_NAME"

	EnvRedisURL = "DMS_REDIS_URL"

	EnvJWTSecret = "DMS_JWT_SECRET"
	EnvJWTIssuer = "DMS_JWT_ISSUER"

	EnvGCPProjectID      = "DMS_GCP_PROJECT_ID"
	EnvPubSubDomainTopic = "DMS_PUBSUB_DOMAIN_TOPIC"

	EnvIntegrationCRMURL       = "DMS_INTEGRATION_CRM_BASE_URL"
	EnvIntegrationFinancialURL = "DMS_INTEGRATION_FINANCIAL_BASE_URL"

	EnvLoyaltyTierFile = "DMS_LOYALTY_TIER_FILE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv  = "STOREFRONT_APP_ENV"
	EnvPort    = "STOREFRONT_APP_PORT"
	EnvDBDSN   = "STOREFRONT_DB_DSN"
	EnvDBHost  = "STOREFRONT_DB_HOST"
	EnvDBUser  = "STOREFRONT_DB_USER"
	EnvDBName  = "STOREFRONT_DB_NAME"
	EnvDBDrv   = "STOREFRONT_DB_DRIVER"
	EnvUseSQL  = "STOREFRONT_USE_SQLITE"
	EnvJWTKey  = "STOREFRONT_JWT_SECRET"
	EnvJWTExp  = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvShipFee = "STOREFRONT_CHECKOUT_DEFAULT_SHIPPING_FEE"
	EnvMPToken = "STOREFRONT_MERCADOPAGO_ACCESS_TOKEN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

package config

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = "ZOCALO"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ZOCALO_DB_DSN"
	EnvDBHost = "ZOCALO_DB_HOST"
	EnvDBUser = "ZOCALO_DB_USER"
	EnvDBName = "ZOCALO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

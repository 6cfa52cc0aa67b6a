package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "promptmart"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "PROMPTMART_DB_DSN"
	EnvDBHost = "PROMPTMART_DB_HOST"
	EnvDBUser = "PROMPTMART_DB_USER"
	EnvDBName = "PROMPTMART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

package config

const (
	// EnvPrefix is the envconfig prefix shared by every variable.
	EnvPrefix = "DESHIKART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "DESHIKART_DB_DSN"
	EnvDBHost = "DESHIKART_DB_HOST"
	EnvDBUser = "DESHIKART_DB_USER"
	EnvDBName = "DESHIKART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

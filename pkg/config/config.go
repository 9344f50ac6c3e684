package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Admin         AdminConfig
	Password      PasswordConfig
	Steadfast     SteadfastConfig
	Meta          MetaConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DESHIKART_APP_ENV" required:"true"`
	Port         string `envconfig:"DESHIKART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DESHIKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DESHIKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"DESHIKART_DB_DSN"`
	Driver string `envconfig:"DESHIKART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DESHIKART_DB_HOST"`
	LegacyPort     int    `envconfig:"DESHIKART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DESHIKART_DB_USER"`
	LegacyPassword string `envconfig:"DESHIKART_DB_PASSWORD"`
	LegacyName     string `envconfig:"DESHIKART_DB_NAME"`
	LegacySSLMode  string `envconfig:"DESHIKART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DESHIKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DESHIKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DESHIKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DESHIKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DESHIKART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DESHIKART_REDIS_ADDR"`
	Password     string        `envconfig:"DESHIKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"DESHIKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DESHIKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DESHIKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DESHIKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DESHIKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DESHIKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DESHIKART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DESHIKART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DESHIKART_JWT_EXPIRATION_MINUTES" default:"720"`
}

// AdminConfig holds the single operator credential pair. The password is
// stored as an Argon2id hash, never in the clear.
type AdminConfig struct {
	Username     string `envconfig:"DESHIKART_ADMIN_USERNAME"`
	PasswordHash string `envconfig:"DESHIKART_ADMIN_PASSWORD_HASH"`
}

func (a AdminConfig) Enabled() bool {
	return strings.TrimSpace(a.Username) != "" && strings.TrimSpace(a.PasswordHash) != ""
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"DESHIKART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"DESHIKART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"DESHIKART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"DESHIKART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"DESHIKART_ARGON_KEY_LEN" default:"32"`
}

// SteadfastConfig configures the courier integration. Missing keys disable
// dispatch rather than failing boot.
type SteadfastConfig struct {
	APIKey    string        `envconfig:"DESHIKART_STEADFAST_API_KEY"`
	SecretKey string        `envconfig:"DESHIKART_STEADFAST_SECRET_KEY"`
	BaseURL   string        `envconfig:"DESHIKART_STEADFAST_BASE_URL" default:"https://portal.packzy.com/api/v1"`
	Timeout   time.Duration `envconfig:"DESHIKART_STEADFAST_TIMEOUT" default:"30s"`
}

func (s SteadfastConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != "" && strings.TrimSpace(s.SecretKey) != ""
}

// MetaConfig configures the server-side Meta Conversions API sender.
type MetaConfig struct {
	PixelID       string        `envconfig:"DESHIKART_META_PIXEL_ID"`
	AccessToken   string        `envconfig:"DESHIKART_META_ACCESS_TOKEN"`
	APIVersion    string        `envconfig:"DESHIKART_META_API_VERSION" default:"v21.0"`
	TestEventCode string        `envconfig:"DESHIKART_META_TEST_EVENT_CODE"`
	Timeout       time.Duration `envconfig:"DESHIKART_META_TIMEOUT" default:"10s"`
}

func (m MetaConfig) Enabled() bool {
	return strings.TrimSpace(m.PixelID) != "" && strings.TrimSpace(m.AccessToken) != ""
}

// AuthRateLimitConfig throttles the admin login endpoint. Zero window or
// limits disable the check.
type AuthRateLimitConfig struct {
	LoginWindow    time.Duration `envconfig:"DESHIKART_LOGIN_RATE_WINDOW" default:"10m"`
	LoginIPLimit   int           `envconfig:"DESHIKART_LOGIN_RATE_IP_LIMIT" default:"30"`
	LoginUserLimit int           `envconfig:"DESHIKART_LOGIN_RATE_USER_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DESHIKART_AUTO_MIGRATE" default:"false"`
	// DispatchOnCreate forwards orders to the courier right after commit.
	// When false, dispatch happens only through the operator endpoint.
	DispatchOnCreate bool `envconfig:"DESHIKART_DISPATCH_ON_CREATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"ZOCALO_APP_ENV" required:"true"`
	Port         string `envconfig:"ZOCALO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ZOCALO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ZOCALO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ZOCALO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ZOCALO_DB_DSN"`
	Driver string `envconfig:"ZOCALO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ZOCALO_DB_HOST"`
	LegacyPort     int    `envconfig:"ZOCALO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ZOCALO_DB_USER"`
	LegacyPassword string `envconfig:"ZOCALO_DB_PASSWORD"`
	LegacyName     string `envconfig:"ZOCALO_DB_NAME"`
	LegacySSLMode  string `envconfig:"ZOCALO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ZOCALO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ZOCALO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ZOCALO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ZOCALO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ZOCALO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ZOCALO_REDIS_ADDR"`
	Password     string        `envconfig:"ZOCALO_REDIS_PASSWORD"`
	DB           int           `envconfig:"ZOCALO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ZOCALO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ZOCALO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ZOCALO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ZOCALO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ZOCALO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ZOCALO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ZOCALO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ZOCALO_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CheckoutConfig holds the shipping policy applied while pricing orders.
type CheckoutConfig struct {
	FlatShippingFeeCents       int64 `envconfig:"ZOCALO_CHECKOUT_FLAT_SHIPPING_FEE_CENTS" default:"500"`
	FreeShippingThresholdCents int64 `envconfig:"ZOCALO_CHECKOUT_FREE_SHIPPING_THRESHOLD_CENTS" default:"5000000"`
}

type RateLimitConfig struct {
	Window       time.Duration `envconfig:"ZOCALO_RATE_LIMIT_WINDOW" default:"1m"`
	RequestLimit int64         `envconfig:"ZOCALO_RATE_LIMIT_REQUESTS" default:"120"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ZOCALO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ZOCALO_AUTO_MIGRATE" default:"false"`
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

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix  = ""
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "RESTYLE_DB_DSN"
	EnvDBHost = "RESTYLE_DB_HOST"
	EnvDBUser = "RESTYLE_DB_USER"
	EnvDBName = "RESTYLE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Storage      StorageConfig
	Model        ModelConfig
	LemonSqueezy LemonSqueezyConfig
	Generation   GenerationConfig
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
	Env          string `envconfig:"RESTYLE_APP_ENV" required:"true"`
	Port         string `envconfig:"RESTYLE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RESTYLE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RESTYLE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"RESTYLE_DB_DSN"`
	Driver string `envconfig:"RESTYLE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RESTYLE_DB_HOST"`
	LegacyPort     int    `envconfig:"RESTYLE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RESTYLE_DB_USER"`
	LegacyPassword string `envconfig:"RESTYLE_DB_PASSWORD"`
	LegacyName     string `envconfig:"RESTYLE_DB_NAME"`
	LegacySSLMode  string `envconfig:"RESTYLE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RESTYLE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RESTYLE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RESTYLE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RESTYLE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RESTYLE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RESTYLE_REDIS_ADDR"`
	Password     string        `envconfig:"RESTYLE_REDIS_PASSWORD"`
	DB           int           `envconfig:"RESTYLE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RESTYLE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RESTYLE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RESTYLE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RESTYLE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RESTYLE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AuthConfig holds what is needed to verify tokens minted by the hosted auth provider.
type AuthConfig struct {
	JWTSecret string `envconfig:"RESTYLE_AUTH_JWT_SECRET" required:"true"`
	Issuer    string `envconfig:"RESTYLE_AUTH_ISSUER"`
}

type StorageConfig struct {
	ProjectURL string        `envconfig:"RESTYLE_STORAGE_PROJECT_URL" required:"true"`
	Bucket     string        `envconfig:"RESTYLE_STORAGE_BUCKET" default:"generations"`
	ServiceKey string        `envconfig:"RESTYLE_STORAGE_SERVICE_KEY" required:"true"`
	Timeout    time.Duration `envconfig:"RESTYLE_STORAGE_TIMEOUT" default:"30s"`
}

type ModelConfig struct {
	BaseURL string        `envconfig:"RESTYLE_MODEL_BASE_URL" default:"https://api.replicate.com/v1"`
	Token   string        `envconfig:"RESTYLE_MODEL_TOKEN" required:"true"`
	Model   string        `envconfig:"RESTYLE_MODEL_NAME" default:"black-forest-labs/flux-kontext-pro"`
	Timeout time.Duration `envconfig:"RESTYLE_MODEL_TIMEOUT" default:"60s"`
}

type LemonSqueezyConfig struct {
	APIKey        string `envconfig:"RESTYLE_LEMONSQUEEZY_API_KEY"`
	StoreID       string `envconfig:"RESTYLE_LEMONSQUEEZY_STORE_ID"`
	VariantID     string `envconfig:"RESTYLE_LEMONSQUEEZY_VARIANT_ID"`
	SigningSecret string `envconfig:"RESTYLE_LEMONSQUEEZY_SIGNING_SECRET" required:"true"`
}

type GenerationConfig struct {
	DailyFreeLimit    int           `envconfig:"RESTYLE_GENERATION_DAILY_FREE_LIMIT" default:"50"`
	SubscriberCredits int           `envconfig:"RESTYLE_GENERATION_SUBSCRIBER_CREDITS" default:"100000"`
	MaxVariations     int           `envconfig:"RESTYLE_GENERATION_MAX_VARIATIONS" default:"4"`
	WebhookEventTTL   time.Duration `envconfig:"RESTYLE_WEBHOOK_EVENT_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RESTYLE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RESTYLE_AUTO_MIGRATE" default:"false"`
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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Lock backends.
const (
	LockMemory = "memory"
	LockRedis  = "redis"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App         AppConfig
	Storage     StorageConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Logger      LoggerConfig
	Auth        AuthConfig
	Entitlement EntitlementConfig
	Lock        LockConfig
	Stripe      StripeConfig
	Bitcoin     BitcoinConfig
	RateLimit   RateLimitConfig
	Broker      BrokerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// StorageConfig selects the persistence driver.
type StorageConfig struct {
	Driver string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	Issuer                string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// EntitlementConfig holds the free-tier allowance.
type EntitlementConfig struct {
	FreeDailyPosts int
}

// LockConfig selects how per-user work is serialized.
type LockConfig struct {
	Backend     string
	TTL         time.Duration
	RetryPeriod time.Duration
}

// StripeConfig carries card processor credentials.
type StripeConfig struct {
	SecretKey     string
	PriceID       string
	WebhookSecret string
	AppURL        string
}

// BitcoinConfig holds the static payment instructions and the reference policy.
type BitcoinConfig struct {
	Address            string
	Price              float64
	MinReferenceLength int
}

// RateLimitConfig throttles anonymous account endpoints per client IP.
type RateLimitConfig struct {
	AuthPerSecond float64
	AuthBurst     int
}

// BrokerConfig enables event forwarding to AMQP when URL is set.
type BrokerConfig struct {
	URL      string
	Exchange string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	dsn := os.Getenv("POSTGRES_DSN")
	defaultDriver := StorageRedis
	if dsn != "" {
		defaultDriver = StoragePostgres
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "blog-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", defaultDriver)),
		},
		Postgres: PostgresConfig{
			DSN:            dsn,
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:                getEnv("AUTH_JWT_ISSUER", "blog-service"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 30),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Entitlement: EntitlementConfig{
			FreeDailyPosts: getEnvAsInt("FREE_DAILY_POSTS", 1),
		},
		Lock: LockConfig{
			Backend:     strings.ToLower(getEnv("LOCK_BACKEND", LockMemory)),
			TTL:         time.Duration(getEnvAsInt("LOCK_TTL_MS", 10000)) * time.Millisecond,
			RetryPeriod: time.Duration(getEnvAsInt("LOCK_RETRY_MS", 25)) * time.Millisecond,
		},
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			PriceID:       os.Getenv("STRIPE_PRICE_ID"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			AppURL:        getEnv("APP_URL", "http://localhost:3000"),
		},
		Bitcoin: BitcoinConfig{
			Address:            getEnv("BITCOIN_ADDRESS", "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"),
			Price:              getEnvAsFloat("BITCOIN_PRICE", 0.001),
			MinReferenceLength: getEnvAsInt("BITCOIN_MIN_REFERENCE_LENGTH", 10),
		},
		RateLimit: RateLimitConfig{
			AuthPerSecond: getEnvAsFloat("AUTH_RATE_PER_SECOND", 5),
			AuthBurst:     getEnvAsInt("AUTH_RATE_BURST", 10),
		},
		Broker: BrokerConfig{
			URL:      os.Getenv("AMQP_URL"),
			Exchange: getEnv("AMQP_EXCHANGE", "blog.events"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StoragePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("STORAGE_DRIVER=postgres requires POSTGRES_DSN")
		}
	case StorageRedis:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	switch c.Lock.Backend {
	case LockMemory, LockRedis:
	default:
		return fmt.Errorf("unsupported LOCK_BACKEND %q", c.Lock.Backend)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the JWT lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

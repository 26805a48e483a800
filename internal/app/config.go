package app

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage backends accepted by APP_STORAGE.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	Storage           string        `envconfig:"APP_STORAGE" default:"postgres"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	ReportCacheTTL time.Duration `envconfig:"REPORT_CACHE_TTL" default:"10m"`

	JWTSecret          string   `envconfig:"JWT_SECRET" required:"true"`
	AdminAPIKeyHashes  []string `envconfig:"ADMIN_API_KEY_HASHES"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	RateLimitPerMinute int      `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	AllowNegativeStock bool   `envconfig:"ALLOW_NEGATIVE_STOCK" default:"true"`
	SeedChart          bool   `envconfig:"SEED_CHART" default:"true"`
	CompanyName        string `envconfig:"COMPANY_NAME" default:"Odyssey Books"`
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt secret must be provided")
	}
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.PGDSN == "" {
			return errors.New("PG_DSN must be provided for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("rate limit must not be negative")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// CacheEnabled reports whether a Redis address was configured.
func (c *Config) CacheEnabled() bool {
	return c != nil && c.RedisAddr != ""
}

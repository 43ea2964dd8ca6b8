package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET, required"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Auth     AuthConfig
	SMTP     SMTPConfig
	Products ProductsConfig

	NotifyWorkers int `env:"NOTIFY_WORKERS, default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=storefront"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type AuthConfig struct {
	OTPTTL         time.Duration `env:"AUTH_OTP_TTL,          default=5m"`
	ResetTTL       time.Duration `env:"AUTH_RESET_TTL,        default=30m"`
	ExposeOTP      bool          `env:"AUTH_EXPOSE_OTP,       default=true"`
	MaxOTPAttempts int           `env:"AUTH_MAX_OTP_ATTEMPTS, default=5"`
	RateLimit      int           `env:"AUTH_RATE_LIMIT,       default=5"`
	RateWindow     time.Duration `env:"AUTH_RATE_WINDOW,      default=1m"`
	ResetURL       string        `env:"AUTH_RESET_URL"`
	BcryptCost     int           `env:"AUTH_BCRYPT_COST,      default=10"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT,      default=587"`
	Username string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASS"`
	From     string `env:"SMTP_FROM"`
	FromName string `env:"SMTP_FROM_NAME"`
	UseTLS   bool   `env:"SMTP_USE_TLS,   default=false"`
}

// Enabled reports whether outgoing mail is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

type ProductsConfig struct {
	RequireAuth bool `env:"PRODUCTS_REQUIRE_AUTH, default=false"`
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from the given lookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Auth.MaxOTPAttempts <= 0 {
		return nil, fmt.Errorf("config: AUTH_MAX_OTP_ATTEMPTS must be positive")
	}
	if cfg.Auth.OTPTTL <= 0 || cfg.Auth.ResetTTL <= 0 || cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("config: ttl values must be positive")
	}
	return &cfg, nil
}

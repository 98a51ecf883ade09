package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// devSecret is the fallback signing secret used outside production so the
// server can start without any configuration. Validate() rejects it for
// production deployments.
const devSecret = "dev-insecure-secret-change-me"

type Config struct {
	Port               string   `mapstructure:"PORT"`
	Env                string   `mapstructure:"ENV"`
	DatabaseURL        string   `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecretKey       string   `mapstructure:"JWT_SECRET_KEY"`
	JWTAlgorithm       string   `mapstructure:"JWT_ALGORITHM"`
	AccessTokenExpire  int      `mapstructure:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	RefreshTokenExpire int      `mapstructure:"REFRESH_TOKEN_EXPIRE_DAYS"`
	PBKDF2Iterations   int      `mapstructure:"PBKDF2_ITERATIONS"`
	PublicPaths        []string `mapstructure:"PUBLIC_PATHS"`
	CORSOrigins        []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS       float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int      `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_SECRET_KEY", devSecret)
	v.SetDefault("JWT_ALGORITHM", "HS256")
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 30)
	v.SetDefault("REFRESH_TOKEN_EXPIRE_DAYS", 7)
	v.SetDefault("PBKDF2_ITERATIONS", 390000)
	v.SetDefault("PUBLIC_PATHS", "/health,/auth/login,/auth/refresh,/auth/logout,/docs/*")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET_KEY")
	v.BindEnv("JWT_ALGORITHM")
	v.BindEnv("ACCESS_TOKEN_EXPIRE_MINUTES")
	v.BindEnv("REFRESH_TOKEN_EXPIRE_DAYS")
	v.BindEnv("PBKDF2_ITERATIONS")
	v.BindEnv("PUBLIC_PATHS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// List values arrive as comma-separated strings; split and trim here
	// rather than trusting the decoder's hook, which keeps stray spaces.
	cfg.PublicPaths = splitList(v.GetString("PUBLIC_PATHS"))
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSecretKey == devSecret {
		log.Println("WARNING: running with the built-in development JWT secret.")
		log.Println("WARNING: set JWT_SECRET_KEY before exposing this server.")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AccessTokenTTL returns the access token lifetime as a duration.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpire) * time.Minute
}

// RefreshTokenTTL returns the refresh token lifetime as a duration.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpire) * 24 * time.Hour
}

// Validate checks that the configuration is safe to run. Production refuses
// to start with the development secret or an unsupported signing algorithm.
func (c *Config) Validate() error {
	if c.IsProduction() && (c.JWTSecretKey == "" || c.JWTSecretKey == devSecret) {
		return fmt.Errorf("JWT_SECRET_KEY must be set in production")
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("JWT_ALGORITHM must be HS256, HS384 or HS512, got %q", c.JWTAlgorithm)
	}
	if c.AccessTokenExpire <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", c.AccessTokenExpire)
	}
	if c.RefreshTokenExpire <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_EXPIRE_DAYS must be positive, got %d", c.RefreshTokenExpire)
	}
	if c.PBKDF2Iterations < 10000 {
		return fmt.Errorf("PBKDF2_ITERATIONS must be at least 10000, got %d", c.PBKDF2Iterations)
	}
	return nil
}

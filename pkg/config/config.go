// Package config loads service settings from an optional .env file, an
// optional YAML file and the environment, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"library_catalog/pkg/database"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Config struct {
	Port           string  `yaml:"port"`
	DBDriver       string  `yaml:"dbDriver"`
	DatabaseURL    string  `yaml:"databaseURL"`
	RedisAddr      string  `yaml:"redisAddr"`
	RedisPassword  string  `yaml:"redisPassword"`
	JWTSecret      string  `yaml:"jwtSecret"`
	LogLevel       string  `yaml:"logLevel"`
	RateLimitRPS   float64 `yaml:"rateLimitRPS"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`
	SeedDemoData   bool    `yaml:"seedDemoData"`
}

func defaults() Config {
	return Config{
		Port:           "8080",
		DBDriver:       database.DriverPostgres,
		LogLevel:       "info",
		RateLimitRPS:   20,
		RateLimitBurst: 40,
	}
}

// Load reads .env (if present), then path (or CATALOG_CONFIG, or
// config.yaml) if it exists, then environment overrides.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path == "" {
		path = getEnv("CATALOG_CONFIG", DefaultPath)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	} else if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DatabaseURL = database.PostgresDSN(
			host,
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "program"),
			getEnv("DB_PASSWORD", "test"),
			getEnv("DB_NAME", "library"),
		)
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimitRPS = n
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimitBurst = n
	}
	if v := os.Getenv("SEED_DEMO_DATA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: SEED_DEMO_DATA: %w", err)
		}
		cfg.SeedDemoData = b
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("config: port is required")
	}
	if c.DBDriver != database.DriverPostgres && c.DBDriver != database.DriverSQLite {
		return fmt.Errorf("config: unknown dbDriver %q", c.DBDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set DATABASE_URL or DB_HOST)")
	}
	if c.JWTSecret == "" {
		return errors.New("config: jwtSecret is required (set JWT_SECRET)")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return errors.New("config: rateLimitBurst must be positive when rate limiting is on")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

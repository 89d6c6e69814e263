package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Database     DatabaseConfig
	JWT          JWTConfig
	App          AppConfig
	Payroll      PayrollConfig
	Redis        RedisConfig
	Disbursement DisbursementConfig
	StoreDriver  string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// PayrollConfig holds release scheduling and contribution settings
type PayrollConfig struct {
	ReleaseInterval    time.Duration
	Timezone           string
	EmployeeShareRatio decimal.Decimal
	SeedHolidays       bool // load the default national calendar on startup
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// DisbursementConfig points at the payment webhook. An empty URL logs orders instead.
type DisbursementConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

func Load() (*Config, error) {
	// .env is optional; the environment wins either way
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "payroll"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Redis configuration
	redisPort, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	redisEnabled, err := strconv.ParseBool(getEnv("REDIS_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_ENABLED: %w", err)
	}

	config.Redis = RedisConfig{
		Enabled:  redisEnabled,
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     redisPort,
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS"),
	}
	if len(config.App.AllowedOrigins) == 0 {
		config.App.AllowedOrigins = []string{"http://localhost:3000"}
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Payroll configuration
	releaseInterval, err := time.ParseDuration(getEnv("PAYROLL_RELEASE_INTERVAL", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_RELEASE_INTERVAL: %w", err)
	}

	shareRatio, err := decimal.NewFromString(getEnv("PAYROLL_EMPLOYEE_SHARE_RATIO", "0.5"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_EMPLOYEE_SHARE_RATIO: %w", err)
	}

	seedHolidays, err := strconv.ParseBool(getEnv("HOLIDAY_SEED_DEFAULTS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid HOLIDAY_SEED_DEFAULTS: %w", err)
	}

	config.Payroll = PayrollConfig{
		ReleaseInterval:    releaseInterval,
		Timezone:           getEnv("PAYROLL_TIMEZONE", "Asia/Manila"),
		EmployeeShareRatio: shareRatio,
		SeedHolidays:       seedHolidays,
	}

	// Disbursement configuration
	disbursementTimeout, err := time.ParseDuration(getEnv("DISBURSEMENT_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISBURSEMENT_TIMEOUT: %w", err)
	}

	config.Disbursement = DisbursementConfig{
		URL:     getEnv("DISBURSEMENT_URL", ""),
		Secret:  getEnv("DISBURSEMENT_SECRET", ""),
		Timeout: disbursementTimeout,
	}

	config.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres))

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Payroll.ReleaseInterval <= 0 {
		return fmt.Errorf("PAYROLL_RELEASE_INTERVAL must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid PAYROLL_TIMEZONE: %w", err)
	}
	if !c.Payroll.EmployeeShareRatio.IsPositive() || c.Payroll.EmployeeShareRatio.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("PAYROLL_EMPLOYEE_SHARE_RATIO must be in (0, 1]")
	}
	return nil
}

// Location returns the payroll timezone used for semi-monthly release dates
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Payroll.Timezone)
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// RedisAddr returns host:port for the redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/pkg/validator"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Database  DatabaseConfig
	Storage   StorageConfig
	JWT       JWTConfig
	App       AppConfig
	Policy    PolicyConfig
	Statutory StatutoryConfig
	Worker    WorkerConfig
	Cron      CronConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// StorageConfig selects the store backend: "postgres" or "sqlite"
type StorageConfig struct {
	Driver     string
	SQLitePath string
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

// PolicyConfig holds the payroll policy used when a company has no settings row
type PolicyConfig struct {
	ExpectedMonthlyHours decimal.Decimal
	ExpectedDailyHours   decimal.Decimal
	BreakThreshold       time.Duration
	BreakDuration        time.Duration
	Tolerance            time.Duration
	OvertimePaid         bool
	Timezone             string
}

// StatutoryConfig holds SSNIT rates (percent) and the PAYE bracket table
type StatutoryConfig struct {
	SSNITEmployeeRate decimal.Decimal
	SSNITEmployerRate decimal.Decimal
	Tier1Rate         decimal.Decimal
	Tier2Rate         decimal.Decimal
	PAYEBrackets      string
}

// WorkerConfig holds the recompute worker's SQS settings
type WorkerConfig struct {
	AWSRegion   string
	AWSEndpoint string
	QueueURL    string
	Concurrency int
}

// CronConfig holds the stale payslip sweep schedule
type CronConfig struct {
	StaleSweepInterval time.Duration
	StaleSweepLookback time.Duration
}

func Load() (*Config, error) {
	// .env is optional; deployed environments inject variables directly
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
		Name:     getEnv("DB_NAME", "payslip_engine"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	config.Storage = StorageConfig{
		Driver:     getEnv("STORAGE_DRIVER", "postgres"),
		SQLitePath: getEnv("SQLITE_PATH", "./data/payslip.db"),
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
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", "http://localhost:3000"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Payroll policy defaults
	if config.Policy, err = loadPolicy(); err != nil {
		return nil, err
	}

	// Statutory rates
	if config.Statutory, err = loadStatutory(); err != nil {
		return nil, err
	}

	// Recompute worker
	concurrency, err := strconv.Atoi(getEnv("WORKER_CONCURRENCY", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}
	config.Worker = WorkerConfig{
		AWSRegion:   getEnv("AWS_REGION", "eu-west-1"),
		AWSEndpoint: getEnv("AWS_ENDPOINT", ""),
		QueueURL:    getEnv("RECOMPUTE_QUEUE_URL", ""),
		Concurrency: concurrency,
	}

	// Cron
	sweepInterval, err := time.ParseDuration(getEnv("STALE_SWEEP_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid STALE_SWEEP_INTERVAL: %w", err)
	}
	sweepLookback, err := time.ParseDuration(getEnv("STALE_SWEEP_LOOKBACK", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid STALE_SWEEP_LOOKBACK: %w", err)
	}
	config.Cron = CronConfig{
		StaleSweepInterval: sweepInterval,
		StaleSweepLookback: sweepLookback,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadPolicy() (PolicyConfig, error) {
	monthly, err := decimal.NewFromString(getEnv("EXPECTED_MONTHLY_HOURS", "176"))
	if err != nil {
		return PolicyConfig{}, fmt.Errorf("invalid EXPECTED_MONTHLY_HOURS: %w", err)
	}
	daily, err := decimal.NewFromString(getEnv("EXPECTED_DAILY_HOURS", "8"))
	if err != nil {
		return PolicyConfig{}, fmt.Errorf("invalid EXPECTED_DAILY_HOURS: %w", err)
	}
	threshold, err := time.ParseDuration(getEnv("BREAK_THRESHOLD", "7h"))
	if err != nil {
		return PolicyConfig{}, fmt.Errorf("invalid BREAK_THRESHOLD: %w", err)
	}
	breakDuration, err := time.ParseDuration(getEnv("BREAK_DURATION", "60m"))
	if err != nil {
		return PolicyConfig{}, fmt.Errorf("invalid BREAK_DURATION: %w", err)
	}
	tolerance, err := time.ParseDuration(getEnv("TOLERANCE", "10m"))
	if err != nil {
		return PolicyConfig{}, fmt.Errorf("invalid TOLERANCE: %w", err)
	}
	overtimePaid, err := strconv.ParseBool(getEnv("OVERTIME_PAID", "false"))
	if err != nil {
		return PolicyConfig{}, fmt.Errorf("invalid OVERTIME_PAID: %w", err)
	}

	return PolicyConfig{
		ExpectedMonthlyHours: monthly,
		ExpectedDailyHours:   daily,
		BreakThreshold:       threshold,
		BreakDuration:        breakDuration,
		Tolerance:            tolerance,
		OvertimePaid:         overtimePaid,
		Timezone:             getEnv("PAYROLL_TIMEZONE", "Africa/Accra"),
	}, nil
}

func loadStatutory() (StatutoryConfig, error) {
	rates := map[string]string{
		"SSNIT_EMPLOYEE_RATE": "5.5",
		"SSNIT_EMPLOYER_RATE": "13",
		"SSNIT_TIER1_RATE":    "13.5",
		"SSNIT_TIER2_RATE":    "5",
	}
	parsed := make(map[string]decimal.Decimal, len(rates))
	for key, fallback := range rates {
		v, err := decimal.NewFromString(getEnv(key, fallback))
		if err != nil {
			return StatutoryConfig{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		parsed[key] = v
	}

	return StatutoryConfig{
		SSNITEmployeeRate: parsed["SSNIT_EMPLOYEE_RATE"],
		SSNITEmployerRate: parsed["SSNIT_EMPLOYER_RATE"],
		Tier1Rate:         parsed["SSNIT_TIER1_RATE"],
		Tier2Rate:         parsed["SSNIT_TIER2_RATE"],
		PAYEBrackets:      getEnv("PAYE_BRACKETS", "490:0,110:5,130:10,3166.67:17.5,16000:25,30520:30,:35"),
	}, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if !c.Policy.ExpectedMonthlyHours.IsPositive() {
		return fmt.Errorf("EXPECTED_MONTHLY_HOURS must be positive")
	}
	if !c.Policy.ExpectedDailyHours.IsPositive() {
		return fmt.Errorf("EXPECTED_DAILY_HOURS must be positive")
	}
	if !validator.IsValidTimezone(c.Policy.Timezone) {
		return fmt.Errorf("invalid PAYROLL_TIMEZONE %q", c.Policy.Timezone)
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}
	return nil
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

// IsDevelopment reports whether APP_ENV is development.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsLocalDev reports whether AWS calls go to a local emulator.
func (c *Config) IsLocalDev() bool {
	return c.Worker.AWSEndpoint != ""
}

// SlogLevel maps LOG_LEVEL to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string, fallback string) []string {
	value := getEnv(env, fallback)
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

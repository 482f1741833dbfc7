package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Database  DatabaseConfig  `envconfig:"DB"`
	JWT       JWTConfig       `envconfig:"JWT"`
	App       AppConfig       `envconfig:"APP"`
	Redis     RedisConfig     `envconfig:"REDIS"`
	Queue     QueueConfig     `envconfig:"QUEUE"`
	Timesheet TimesheetConfig `envconfig:"TIMESHEET"`
	Cron      CronConfig      `envconfig:"CRON"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     int    `envconfig:"PORT" default:"5432"`
	User     string `envconfig:"USER" default:"postgres"`
	Password string `envconfig:"PASSWORD"`
	Name     string `envconfig:"NAME" default:"cmlabs-timesheet"`
	SSLMode  string `envconfig:"SSL_MODE" default:"disable"`
	MaxConns int32  `envconfig:"MAX_CONNS" default:"25"`
	MinConns int32  `envconfig:"MIN_CONNS" default:"5"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string        `envconfig:"SECRET_KEY"`
	AccessExpiration time.Duration `envconfig:"ACCESS_EXPIRATION_TIME" default:"1h"`
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int           `envconfig:"PORT" default:"8080"`
	Env            string        `envconfig:"ENV" default:"development"`
	Version        string        `envconfig:"VERSION" default:"v1.0.0"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string        `envconfig:"LOG_FORMAT" default:"json"`
	Timezone       string        `envconfig:"TIMEZONE" default:"UTC"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ReadTimeout    time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	// LocationRateLimit is requests per minute per client on the location endpoints
	LocationRateLimit int `envconfig:"LOCATION_RATE_LIMIT" default:"30"`
}

type RedisConfig struct {
	Addr         string        `envconfig:"ADDR" default:"127.0.0.1:6379"`
	Password     string        `envconfig:"PASSWORD"`
	DB           int           `envconfig:"DB" default:"0"`
	ZoneCacheTTL time.Duration `envconfig:"ZONE_CACHE_TTL" default:"15m"`
}

// QueueConfig configures the asynq worker; it shares the Redis connection settings.
type QueueConfig struct {
	Concurrency int    `envconfig:"CONCURRENCY" default:"5"`
	AlertQueue  string `envconfig:"ALERT_QUEUE" default:"geofence"`
	MaxRetry    int    `envconfig:"MAX_RETRY" default:"5"`
}

type TimesheetConfig struct {
	WeeklyHoursLimit     int `envconfig:"WEEKLY_HOURS_LIMIT" default:"60"`
	MonthlyOvertimeLimit int `envconfig:"MONTHLY_OVERTIME_LIMIT" default:"40"`
}

type CronConfig struct {
	ZoneCacheWarmInterval time.Duration `envconfig:"ZONE_CACHE_WARM_INTERVAL" default:"10m"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.JWT.AccessExpiration <= 0 {
		return fmt.Errorf("JWT_ACCESS_EXPIRATION_TIME must be positive")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	if c.Timesheet.WeeklyHoursLimit <= 0 {
		return fmt.Errorf("TIMESHEET_WEEKLY_HOURS_LIMIT must be positive")
	}
	if c.Timesheet.MonthlyOvertimeLimit < 0 {
		return fmt.Errorf("TIMESHEET_MONTHLY_OVERTIME_LIMIT must not be negative")
	}
	if c.Cron.ZoneCacheWarmInterval <= 0 {
		return fmt.Errorf("CRON_ZONE_CACHE_WARM_INTERVAL must be positive")
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

// Location returns the worksite timezone used to evaluate zone activity windows.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) IsProduction() bool {
	return c != nil && c.App.Env == "production"
}

package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for chart-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"4019"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional, used for the hand-off cache)
	Redis RedisConfig `yaml:"redis"`

	// Result cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Scheduler configuration
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Credential encryption key for connection secrets (database passwords, API keys).
	// Must be a 32-byte key, base64 encoded. Generate with: openssl rand -base64 32
	// Server will fail to start if this is not set.
	ConnectionCredentialsKey string `yaml:"-" env:"CONNECTION_CREDENTIALS_KEY"` // Secret - not in YAML
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"chartengine"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"chart_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// RedisConfig holds Redis configuration for the hand-off cache.
// If Host is empty the hand-off cache falls back to PostgreSQL.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	// Dir is the directory where cached payload files are written.
	Dir string `yaml:"dir" env:"CACHE_DIR" env-default:".cache"`
}

// SchedulerConfig holds refresh scheduler settings.
type SchedulerConfig struct {
	// Enabled turns the background refresh loops on or off.
	Enabled bool `yaml:"enabled" env:"SCHEDULER_ENABLED" env-default:"true"`
	// TickSeconds is the interval between due-check sweeps.
	TickSeconds int `yaml:"tick_seconds" env:"SCHEDULER_TICK_SECONDS" env-default:"60"`
	// MaxConcurrentJobs bounds simultaneously active refresh jobs per queue.
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs" env:"SCHEDULER_MAX_CONCURRENT_JOBS" env-default:"5"`
	// StuckJobMinutes is how long a job may stay active before the sweep fails it.
	StuckJobMinutes int `yaml:"stuck_job_minutes" env:"SCHEDULER_STUCK_JOB_MINUTES" env-default:"5"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Environment variables override YAML values. Secrets (PGPASSWORD,
// CONNECTION_CREDENTIALS_KEY) must come from environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate rejects configuration that would misbehave silently at runtime.
func (c *Config) validate() error {
	if c.Scheduler.TickSeconds <= 0 {
		return fmt.Errorf("scheduler tick_seconds must be positive, got %d", c.Scheduler.TickSeconds)
	}
	if c.Scheduler.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("scheduler max_concurrent_jobs must be positive, got %d", c.Scheduler.MaxConcurrentJobs)
	}
	if c.Scheduler.StuckJobMinutes <= 0 {
		return fmt.Errorf("scheduler stuck_job_minutes must be positive, got %d", c.Scheduler.StuckJobMinutes)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

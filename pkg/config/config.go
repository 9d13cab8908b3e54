package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Encryption EncryptionConfig
	RateLimit  RateLimitConfig
	Cache      CacheConfig
	Scheduler  SchedulerConfig
	Slack      SlackConfig
	Admin      AdminConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type EncryptionConfig struct {
	Key string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

type CacheConfig struct {
	TTLSeconds int
	Prefix     string
}

// SchedulerConfig controls when the daily reminder fires. Timezone is the
// trigger's zone only; each workspace's date is computed in its own zone.
type SchedulerConfig struct {
	Enabled           bool
	Hour              int
	Minute            int
	Timezone          string
	JobTimeoutMinutes int
}

type SlackConfig struct {
	MaxAttempts       int
	BaseBackoffMillis int
	TimeoutSeconds    int
}

// AdminConfig seeds the first superuser on boot when Email is set.
type AdminConfig struct {
	Email       string
	Password    string
	DateOfBirth string
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

func (s *SchedulerConfig) JobTimeout() time.Duration {
	return time.Duration(s.JobTimeoutMinutes) * time.Minute
}

func (s *SlackConfig) BaseBackoff() time.Duration {
	return time.Duration(s.BaseBackoffMillis) * time.Millisecond
}

func (s *SlackConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "birthday")
	v.SetDefault("DATABASE_PASSWORD", "birthday_secret")
	v.SetDefault("DATABASE_NAME", "birthday_buddy")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("CACHE_TTL_SECONDS", 300)
	v.SetDefault("CACHE_PREFIX", "bb:")
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_HOUR", 9)
	v.SetDefault("SCHEDULER_MINUTE", 0)
	v.SetDefault("SCHEDULER_TIMEZONE", "America/New_York")
	v.SetDefault("SCHEDULER_JOB_TIMEOUT_MINUTES", 10)
	v.SetDefault("SLACK_MAX_ATTEMPTS", 3)
	v.SetDefault("SLACK_BASE_BACKOFF_MILLIS", 1000)
	v.SetDefault("SLACK_TIMEOUT_SECONDS", 10)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(v.GetString("SERVER_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Encryption: EncryptionConfig{
			Key: v.GetString("ENCRYPTION_KEY"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Cache: CacheConfig{
			TTLSeconds: v.GetInt("CACHE_TTL_SECONDS"),
			Prefix:     v.GetString("CACHE_PREFIX"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("SCHEDULER_ENABLED"),
			Hour:              v.GetInt("SCHEDULER_HOUR"),
			Minute:            v.GetInt("SCHEDULER_MINUTE"),
			Timezone:          v.GetString("SCHEDULER_TIMEZONE"),
			JobTimeoutMinutes: v.GetInt("SCHEDULER_JOB_TIMEOUT_MINUTES"),
		},
		Slack: SlackConfig{
			MaxAttempts:       v.GetInt("SLACK_MAX_ATTEMPTS"),
			BaseBackoffMillis: v.GetInt("SLACK_BASE_BACKOFF_MILLIS"),
			TimeoutSeconds:    v.GetInt("SLACK_TIMEOUT_SECONDS"),
		},
		Admin: AdminConfig{
			Email:       v.GetString("ADMIN_EMAIL"),
			Password:    v.GetString("ADMIN_PASSWORD"),
			DateOfBirth: v.GetString("ADMIN_DOB"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Scheduler.Hour < 0 || c.Scheduler.Hour > 23 {
		return fmt.Errorf("SCHEDULER_HOUR must be between 0 and 23, got %d", c.Scheduler.Hour)
	}
	if c.Scheduler.Minute < 0 || c.Scheduler.Minute > 59 {
		return fmt.Errorf("SCHEDULER_MINUTE must be between 0 and 59, got %d", c.Scheduler.Minute)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE: %w", err)
	}
	if c.Admin.Email != "" && c.Admin.Password == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	Port              string
	DatabaseURL       string
	HabitStore        string
	JWTSecret         string
	UploadsDir        string
	MaxUploadMB       int
	CORSOrigins       string
	FCMServiceAccount string
	ReminderInterval  time.Duration
	ShutdownTimeout   time.Duration
	LogLevel          string
	LogFormat         string
	LogFile           string

	// values that were set but could not be parsed
	parseErrs []error
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		Port:              getEnv("PORT", "5000"),
		DatabaseURL:       getEnv("DATABASE_URL", "productivityhub.db"),
		HabitStore:        strings.ToLower(getEnv("HABIT_STORE", "database")),
		JWTSecret:         getEnv("JWT_SECRET", defaultJWTSecret),
		UploadsDir:        getEnv("UPLOADS_DIR", "uploads"),
		CORSOrigins:       getEnv("CORS_ORIGINS", "*"),
		FCMServiceAccount: getEnv("FCM_SERVICE_ACCOUNT", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		LogFile:           getEnv("LOG_FILE", ""),
	}
	c.MaxUploadMB = c.getEnvInt("MAX_UPLOAD_MB", 10)
	c.ReminderInterval = c.getEnvDuration("REMINDER_INTERVAL", time.Minute)
	c.ShutdownTimeout = c.getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	return c
}

func (c *Config) Validate() error {
	if len(c.parseErrs) > 0 {
		return errors.Join(c.parseErrs...)
	}
	switch c.HabitStore {
	case "database", "memory":
	default:
		return fmt.Errorf("HABIT_STORE must be \"database\" or \"memory\", got %q", c.HabitStore)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	if c.ReminderInterval <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL must be positive, got %s", c.ReminderInterval)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}

// UsesDefaultSecret reports whether JWT_SECRET was left at the development value.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func (c *Config) getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s must be an integer, got %q", key, value))
		return fallback
	}
	return n
}

func (c *Config) getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s must be a duration such as 30s or 1m, got %q", key, value))
		return fallback
	}
	return d
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"gestion/internal/core"
)

// Mirror backends.
const (
	MirrorNone   = "none"
	MirrorMemory = "memory"
	MirrorSheets = "sheets"
)

const minSecretLength = 16

type Config struct {
	// HTTP Server
	Port               string
	CORSOrigins        []string
	RateLimitPerMinute int

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Auth
	AuthEnabled   bool
	JWTSecret     string
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string

	// Business
	BusinessName string
	Timezone     string
	DefaultRate  string
	RateCacheTTL time.Duration
	StatsTTL     time.Duration

	// Spreadsheet mirror
	MirrorBackend         string
	GoogleSpreadsheetID   string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration
	ReportsDir    string
	ReportCron    string
	StockCron     string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		CORSOrigins:        getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/gestion.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gestion"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_mirror"),

		AuthEnabled:   getEnvBool("AUTH_ENABLED", true),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		TokenTTL:      getEnvDuration("TOKEN_TTL", 12*time.Hour),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		BusinessName: getEnv("BUSINESS_NAME", "Mi Negocio"),
		Timezone:     getEnv("TIMEZONE", "America/Caracas"),
		DefaultRate:  getEnv("DEFAULT_RATE", ""),
		RateCacheTTL: getEnvDuration("RATE_CACHE_TTL", 5*time.Minute),
		StatsTTL:     getEnvDuration("STATS_CACHE_TTL", time.Minute),

		MirrorBackend:         getEnv("MIRROR_BACKEND", MirrorNone),
		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 50),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", time.Minute),
		ReportsDir:    getEnv("REPORTS_DIR", "./data/reportes"),
		ReportCron:    getEnv("REPORT_CRON", "55 23 * * *"),
		StockCron:     getEnv("STOCK_CRON", "0 8 * * *"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Location loads the business time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// FallbackRate parses DEFAULT_RATE. An empty value yields the zero rate.
func (c *Config) FallbackRate() (core.Rate, error) {
	if strings.TrimSpace(c.DefaultRate) == "" {
		return core.Rate{}, nil
	}
	return core.ParseRate(c.DefaultRate)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else if err := ensureDir(filepath.Dir(c.SQLiteDBPath)); err != nil {
		errors = append(errors, fmt.Sprintf("cannot create SQLite database directory: %v", err))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.AuthEnabled {
		if len(c.JWTSecret) < minSecretLength {
			errors = append(errors, fmt.Sprintf("JWT_SECRET must be at least %d characters when auth is enabled", minSecretLength))
		}
		if c.TokenTTL < time.Minute || c.TokenTTL > 30*24*time.Hour {
			errors = append(errors, fmt.Sprintf("invalid token TTL %v: must be between 1 minute and 30 days", c.TokenTTL))
		}
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if _, err := c.FallbackRate(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default rate '%s': must be a positive number", c.DefaultRate))
	}
	if c.RateCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid rate cache TTL %v: must be at least 1 second", c.RateCacheTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	// Validate mirror configuration
	switch c.MirrorBackend {
	case MirrorNone, MirrorMemory:
	case MirrorSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets mirror")
		}
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			errors = append(errors, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for sheets mirror")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be one of [none memory sheets]", c.MirrorBackend))
	}

	// Validate worker configuration
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	for name, expr := range map[string]string{"REPORT_CRON": c.ReportCron, "STOCK_CRON": c.StockCron} {
		if expr == "" {
			continue
		}
		if _, err := cron.ParseStandard(expr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': %v", name, expr, err))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

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

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Auth      AuthConfig
	Bookings  BookingsConfig
	Log       LogConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	WhatsApp  WhatsAppConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// BackendConfig points at the upstream REST backend that owns all factory data.
type BackendConfig struct {
	BaseURL      string
	LoginURL     string
	Timeout      time.Duration
	LoginTimeout time.Duration
}

// AuthConfig controls gateway sessions.
type AuthConfig struct {
	Secret     string
	PublicURL  string
	SessionTTL time.Duration
	// KVURL selects the Redis session store when set.
	KVURL string
}

// BookingsConfig toggles the in-process booking cache.
type BookingsConfig struct {
	CacheEnabled bool
}

// LogConfig holds the zap level.
type LogConfig struct {
	Level string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Enabled reports whether daily reports are persisted to MongoDB.
func (c MongoDBConfig) Enabled() bool { return c.URI != "" }

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether daily reports are appended to a spreadsheet.
func (c SheetsConfig) Enabled() bool { return c.CredentialsPath != "" && c.SpreadsheetID != "" }

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
	// ServiceEmail and ServicePassword log the scheduled report into the upstream.
	ServiceEmail    string
	ServicePassword string
}

// WhatsAppConfig contains credentials for the Meta WhatsApp Cloud API used for report notifications.
type WhatsAppConfig struct {
	AccessToken     string
	PhoneNumberID   string
	BaseURL         string
	APIVersion      string
	ReportRecipient string
}

// Enabled reports whether report notifications can be sent.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != "" && c.ReportRecipient != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	backendURL := firstEnv("BACKEND_API", "NEXT_PUBLIC_BACKEND_URL", "API_BASE_URL", "NEXT_PUBLIC_API_BASE_URL")

	backendTimeout, err := durationEnv("BACKEND_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	loginTimeout, err := durationEnv("LOGIN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := durationEnv("AUTH_SESSION_TTL", 12*time.Hour)
	if err != nil {
		return nil, err
	}
	cacheEnabled, err := boolEnv("BOOKING_CACHE_ENABLED", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Backend: BackendConfig{
			BaseURL:      strings.TrimSuffix(backendURL, "/"),
			LoginURL:     strings.TrimSuffix(firstEnvWithDefault(backendURL, "API_PROXY_TARGET", "API_DIRECT"), "/"),
			Timeout:      backendTimeout,
			LoginTimeout: loginTimeout,
		},
		Auth: AuthConfig{
			Secret:     os.Getenv("AUTH_SECRET"),
			PublicURL:  os.Getenv("AUTH_URL"),
			SessionTTL: sessionTTL,
			KVURL:      firstEnv("KV_URL", "REDIS_URL"),
		},
		Bookings: BookingsConfig{
			CacheEnabled: cacheEnabled,
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "factory"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "Asia/Bangkok"),

			ServiceEmail:    os.Getenv("REPORT_SERVICE_EMAIL"),
			ServicePassword: os.Getenv("REPORT_SERVICE_PASSWORD"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:     os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID:   os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:         getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:      getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			ReportRecipient: os.Getenv("WHATSAPP_REPORT_RECIPIENT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.Backend.BaseURL == "":
		return errors.New("BACKEND_API must be provided")
	case c.Backend.LoginURL == "":
		return errors.New("API_PROXY_TARGET must not be empty")
	case c.Backend.Timeout <= 0:
		return errors.New("BACKEND_TIMEOUT must be positive")
	case c.Backend.LoginTimeout <= 0:
		return errors.New("LOGIN_TIMEOUT must be positive")
	}

	if c.Auth.Secret == "" {
		return errors.New("AUTH_SECRET must be provided")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("AUTH_SESSION_TTL must be positive")
	}

	if c.Sheets.CredentialsPath != "" && c.Sheets.SpreadsheetID == "" {
		return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided with GOOGLE_SHEETS_CREDENTIALS_PATH")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if (c.Reporting.ServiceEmail == "") != (c.Reporting.ServicePassword == "") {
		return errors.New("REPORT_SERVICE_EMAIL and REPORT_SERVICE_PASSWORD must be provided together")
	}

	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func firstEnv(keys ...string) string {
	return firstEnvWithDefault("", keys...)
}

func firstEnvWithDefault(fallback string, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s is not a valid duration: %w", key, err)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s is not a valid boolean: %w", key, err)
	}
	return b, nil
}

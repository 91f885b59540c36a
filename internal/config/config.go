package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// YouTube Data API credentials
	YouTubeAPIKey string

	// Fetch budgets applied server-side before each analysis
	FetchTimeoutSeconds int
	MaxPages            int
	MaxCommentsCap      int

	// Cache configuration
	CacheTTLHours int

	// Output configuration
	OutputDir    string
	EnableCharts bool

	// Azure Storage configuration (optional; local files when unset)
	StorageAccount   string
	StorageContainer string

	// Notification configuration (optional)
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	WebhookURL        string

	// Admin endpoints require this key when set
	AdminAPIKey string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		YouTubeAPIKey: getEnv("YOUTUBE_API_KEY", ""),

		FetchTimeoutSeconds: getIntEnv("FETCH_TIMEOUT_SECONDS", 25),
		MaxPages:            getIntEnv("MAX_PAGES", 3),
		MaxCommentsCap:      getIntEnv("MAX_COMMENTS_CAP", 250),

		CacheTTLHours: getIntEnv("CACHE_TTL_HOURS", 24),

		OutputDir:    getEnv("OUTPUT_DIR", "."),
		EnableCharts: getBoolEnv("ENABLE_CHARTS", true),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "analyses"),

		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		WebhookURL:        getEnv("WEBHOOK_URL", ""),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.YouTubeAPIKey) == "" {
		return fmt.Errorf("YOUTUBE_API_KEY is required")
	}

	if c.FetchTimeoutSeconds < 1 {
		return fmt.Errorf("FETCH_TIMEOUT_SECONDS must be positive")
	}

	if c.MaxPages < 1 || c.MaxCommentsCap < 1 {
		return fmt.Errorf("MAX_PAGES and MAX_COMMENTS_CAP must be positive")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

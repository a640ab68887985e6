package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendRemote = "remote"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port         string
	RateLimit    string
	CookieSecure bool

	// Ledger
	DataBackend string
	APIBaseURL  string
	APITimeout  time.Duration
	DataDir     string

	// Sessions
	SessionDBPath string
	SessionTTL    time.Duration
	PageCacheSize int
	PageIdleTTL   time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Presentation
	LogLevel string
	LogJSON  bool
	Timezone string
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8081")
	v.SetDefault("RATE_LIMIT", "60-M")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("DATA_BACKEND", BackendRemote)
	v.SetDefault("API_BASE_URL", "http://localhost:5000/api")
	v.SetDefault("API_TIMEOUT", "10s")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("SESSION_DB_PATH", "./data/sessions.db")
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("PAGE_CACHE_SIZE", 500)
	v.SetDefault("PAGE_IDLE_TTL", "30m")
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "moneymanager")
	v.SetDefault("AMQP_QUEUE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", false)
	v.SetDefault("TIMEZONE", "Local")
}

// Load reads .env when present, then the environment, then defaults.
func Load() *Config {
	_ = godotenv.Load()
	return FromViper(viper.New())
}

// FromViper builds the config from v with defaults applied.
func FromViper(v *viper.Viper) *Config {
	defaults(v)
	v.AutomaticEnv()

	return &Config{
		Port:         v.GetString("PORT"),
		RateLimit:    v.GetString("RATE_LIMIT"),
		CookieSecure: v.GetBool("COOKIE_SECURE"),

		DataBackend: strings.ToLower(strings.TrimSpace(v.GetString("DATA_BACKEND"))),
		APIBaseURL:  strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		APITimeout:  v.GetDuration("API_TIMEOUT"),
		DataDir:     v.GetString("DATA_DIR"),

		SessionDBPath: v.GetString("SESSION_DB_PATH"),
		SessionTTL:    v.GetDuration("SESSION_TTL"),
		PageCacheSize: v.GetInt("PAGE_CACHE_SIZE"),
		PageIdleTTL:   v.GetDuration("PAGE_IDLE_TTL"),

		AMQPURL:      v.GetString("AMQP_URL"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),
		AMQPQueue:    v.GetString("AMQP_QUEUE"),

		LogLevel: v.GetString("LOG_LEVEL"),
		LogJSON:  v.GetBool("LOG_JSON"),
		Timezone: v.GetString("TIMEZONE"),
	}
}

// Location resolves Timezone. "Local" and empty mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendRemote:
		if u, err := url.Parse(c.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s': must be an absolute http(s) URL", c.APIBaseURL))
		}
	case BackendMemory:
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendRemote, BackendMemory))
	}

	if c.APITimeout < time.Second || c.APITimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be between 1s and 2m", c.APITimeout))
	}

	if c.SessionDBPath == "" {
		errors = append(errors, "session database path cannot be empty")
	} else if dir := filepath.Dir(c.SessionDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create session database directory '%s': %v", dir, err))
			}
		}
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.PageCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid page cache size %d: must be at least 1", c.PageCacheSize))
	}
	if c.PageIdleTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid page idle TTL %v: must be at least 1 minute", c.PageIdleTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

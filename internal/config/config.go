package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	envfile "github.com/osa911/enquiryd/internal/config/env"
)

// Mail failure policies
const (
	FailClosed = "fail-closed"
	FailOpen   = "fail-open"
)

// Fallback log formats
const (
	FallbackFormatJSONL = "jsonl"
	FallbackFormatText  = "text"
)

// Config holds all configuration for the application
type Config struct {
	// Server Configuration
	Environment    string   `env:"ENV" envDefault:"development"`
	Port           string   `env:"PORT" envDefault:"3000"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
	MaxBodyBytes   int64    `env:"MAX_BODY_BYTES" envDefault:"10240"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFile        string   `env:"LOG_FILE" envDefault:"./logs/enquiryd.log"`
	LogRequests    bool     `env:"LOG_REQUESTS" envDefault:"false"`

	// CORS Configuration
	FrontendOrigins []string `env:"FRONTEND_ORIGIN" envSeparator:"," envDefault:"*"`

	Mail       MailConfig
	RateLimit  RateLimitConfig
	Fallback   FallbackConfig
	Validation ValidationConfig

	// Telemetry Configuration
	MetricsAddr  string `env:"METRICS_ADDR"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// MailConfig configures the transactional email dispatch
type MailConfig struct {
	APIKey        string        `env:"RESEND_API_KEY"`
	From          string        `env:"MAIL_FROM" envDefault:"no-reply@example.com"`
	To            string        `env:"MAIL_TO" envDefault:"you@example.com"`
	Required      bool          `env:"MAIL_REQUIRED" envDefault:"false"`
	FailurePolicy string        `env:"MAIL_FAILURE_POLICY" envDefault:"fail-closed"`
	Timeout       time.Duration `env:"MAIL_TIMEOUT" envDefault:"0s"`
}

// Enabled reports whether an API key was supplied.
func (m MailConfig) Enabled() bool {
	return m.APIKey != ""
}

// FailOpen reports whether dispatch errors should be swallowed.
func (m MailConfig) FailOpen() bool {
	return m.FailurePolicy == FailOpen
}

// RateLimitConfig configures per-client limiting of submissions and the global throttle
type RateLimitConfig struct {
	Enabled     bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Window      time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	Max         int           `env:"RATE_LIMIT_MAX" envDefault:"6"`
	RedisURL    string        `env:"REDIS_URL"`
	BurstRPS    int           `env:"RATE_LIMIT_BURST_RPS" envDefault:"10"`
	BurstSize   int           `env:"RATE_LIMIT_BURST_SIZE" envDefault:"20"`
}

// FallbackConfig configures the append-only submission log
type FallbackConfig struct {
	Enabled       bool   `env:"FALLBACK_LOG_ENABLED" envDefault:"true"`
	File          string `env:"FALLBACK_LOG_FILE" envDefault:"./data/enquiries.jsonl"`
	Format        string `env:"FALLBACK_LOG_FORMAT" envDefault:"jsonl"`
	MaxSizeMB     int    `env:"FALLBACK_LOG_MAX_SIZE_MB" envDefault:"100"`
	DefaultSource string `env:"DEFAULT_SOURCE"`
}

// ValidationConfig holds submission field bounds
type ValidationConfig struct {
	NameMaxLength    int  `env:"NAME_MAX_LENGTH" envDefault:"100"`
	MessageMaxLength int  `env:"MESSAGE_MAX_LENGTH" envDefault:"5000"`
	StrictEmail      bool `env:"VALIDATION_STRICT_EMAIL" envDefault:"true"`
}

// Load loads the configuration from environment variables and .env files.
// envFile, when not empty, is loaded instead of the per-environment default.
func Load(envFile string) (*Config, error) {
	if _, err := envfile.LoadEnv(envFile); err != nil {
		return nil, err
	}
	return Parse()
}

// Parse builds the configuration from the current process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Mail.FailurePolicy = strings.ToLower(strings.TrimSpace(cfg.Mail.FailurePolicy))
	cfg.Fallback.Format = strings.ToLower(strings.TrimSpace(cfg.Fallback.Format))
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Mail.FailurePolicy {
	case FailClosed, FailOpen:
	default:
		return fmt.Errorf("invalid MAIL_FAILURE_POLICY %q: want %s or %s", c.Mail.FailurePolicy, FailClosed, FailOpen)
	}

	switch c.Fallback.Format {
	case FallbackFormatJSONL, FallbackFormatText:
	default:
		return fmt.Errorf("invalid FALLBACK_LOG_FORMAT %q: want %s or %s", c.Fallback.Format, FallbackFormatJSONL, FallbackFormatText)
	}

	if c.Fallback.Enabled && c.Fallback.File == "" {
		return fmt.Errorf("FALLBACK_LOG_FILE must be set when the fallback log is enabled")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
		if c.RateLimit.Max <= 0 {
			return fmt.Errorf("RATE_LIMIT_MAX must be positive")
		}
	}

	if c.RateLimit.BurstRPS < 0 || c.RateLimit.BurstSize < 0 {
		return fmt.Errorf("burst rate limit values must be non-negative")
	}

	if c.Validation.NameMaxLength <= 0 {
		return fmt.Errorf("NAME_MAX_LENGTH must be positive")
	}
	if c.Validation.MessageMaxLength < 0 {
		return fmt.Errorf("MESSAGE_MAX_LENGTH must be non-negative")
	}

	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}

	for _, origin := range c.FrontendOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" || origin == "*" || strings.HasPrefix(origin, "http://") || strings.HasPrefix(origin, "https://") {
			continue
		}
		return fmt.Errorf("invalid FRONTEND_ORIGIN %q: want * or an http(s) origin", origin)
	}

	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Package config provides configuration for the API server. Values come
// from built-in defaults, then an optional TOML file named by CONFIG_FILE,
// then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Env                string        `toml:"env"`
	ServerPort         string        `toml:"port"`
	ServerReadTimeout  time.Duration `toml:"read_timeout"`
	ServerWriteTimeout time.Duration `toml:"write_timeout"`
	AllowedOrigins     []string      `toml:"allowed_origins"`

	// NATS settings. NATS is optional; notifications only go to the log
	// when NATSURL is empty.
	NATSURL            string        `toml:"nats_url"`
	NATSCAFile         string        `toml:"nats_ca_file"`
	NATSCertFile       string        `toml:"nats_cert_file"`
	NATSKeyFile        string        `toml:"nats_key_file"`
	NATSToken          string        `toml:"nats_token"`
	NotificationMaxAge time.Duration `toml:"notification_max_age"`

	// JWT settings
	JWTSecret string `toml:"jwt_secret"`

	// LLM settings
	AnthropicAPIKey string        `toml:"anthropic_api_key"`
	OpenAIAPIKey    string        `toml:"openai_api_key"`
	LLMProvider     string        `toml:"llm_provider"`
	LLMModel        string        `toml:"llm_model"`
	LLMMaxTokens    int           `toml:"llm_max_tokens"`
	ReplyTimeout    time.Duration `toml:"reply_timeout"`

	// Chat session settings
	StreamTokenDelay  time.Duration `toml:"stream_token_delay"`
	TitleMaxLength    int           `toml:"title_max_length"`
	HeartbeatInterval time.Duration `toml:"heartbeat_interval"`

	// Scans
	QuickScanDelay time.Duration `toml:"quick_scan_delay"`
	FullScanDelay  time.Duration `toml:"full_scan_delay"`
	PhishingDelay  time.Duration `toml:"phishing_delay"`

	// Rate limiting
	RateLimitRequests int           `toml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `toml:"rate_limit_window"`

	// Logging
	LogLevel string `toml:"log_level"`

	// Tracing
	TracingEndpoint string `toml:"tracing_endpoint"`
	TracingEnabled  bool   `toml:"tracing_enabled"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Env:                "production",
		ServerPort:         "8080",
		ServerReadTimeout:  30 * time.Second,
		ServerWriteTimeout: 0,
		AllowedOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},

		NotificationMaxAge: 24 * time.Hour,

		JWTSecret: "development-secret-change-in-production",

		LLMProvider:  "canned",
		LLMMaxTokens: 1024,
		ReplyTimeout: 60 * time.Second,

		StreamTokenDelay:  30 * time.Millisecond,
		TitleMaxLength:    30,
		HeartbeatInterval: 15 * time.Second,

		QuickScanDelay: time.Second,
		FullScanDelay:  3 * time.Second,
		PhishingDelay:  2 * time.Second,

		RateLimitRequests: 60,
		RateLimitWindow:   time.Minute,

		LogLevel: "info",

		TracingEndpoint: "localhost:4318",
	}
}

// Load builds the configuration from defaults, the CONFIG_FILE TOML file
// when set, and the environment.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the TOML file at path onto cfg.
func LoadFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys in config file %s: %v", path, undecoded)
	}
	return nil
}

// Validate checks values that would make the server misbehave.
func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("port is required")
	}
	if c.StreamTokenDelay < 0 {
		return fmt.Errorf("stream_token_delay must not be negative")
	}
	if c.TitleMaxLength <= 0 {
		return fmt.Errorf("title_max_length must be positive")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	switch c.LLMProvider {
	case "canned", "anthropic", "openai":
	default:
		return fmt.Errorf("unknown llm_provider %q", c.LLMProvider)
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// NATSEnabled reports whether notifications are published to NATS.
func (c *Config) NATSEnabled() bool {
	return c.NATSURL != ""
}

func (c *Config) applyEnv() {
	// Server
	c.Env = getEnv("ENV", c.Env)
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.ServerReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", c.ServerReadTimeout)
	c.ServerWriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", c.ServerWriteTimeout)

	// NATS
	c.NATSURL = getEnv("NATS_URL", c.NATSURL)
	c.NATSCAFile = getEnv("NATS_CA_FILE", c.NATSCAFile)
	c.NATSCertFile = getEnv("NATS_CERT_FILE", c.NATSCertFile)
	c.NATSKeyFile = getEnv("NATS_KEY_FILE", c.NATSKeyFile)
	c.NATSToken = getEnv("NATS_TOKEN", c.NATSToken)
	c.NotificationMaxAge = getDurationEnv("NOTIFICATION_MAX_AGE", c.NotificationMaxAge)

	// JWT
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)

	// LLM
	c.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.LLMProvider = getEnv("LLM_PROVIDER", c.LLMProvider)
	c.LLMModel = getEnv("LLM_MODEL", c.LLMModel)
	c.LLMMaxTokens = getIntEnv("LLM_MAX_TOKENS", c.LLMMaxTokens)
	c.ReplyTimeout = getDurationEnv("REPLY_TIMEOUT", c.ReplyTimeout)

	// Chat
	c.StreamTokenDelay = getDurationEnv("STREAM_TOKEN_DELAY", c.StreamTokenDelay)
	c.TitleMaxLength = getIntEnv("TITLE_MAX_LENGTH", c.TitleMaxLength)
	c.HeartbeatInterval = getDurationEnv("HEARTBEAT_INTERVAL", c.HeartbeatInterval)

	// Scans
	c.QuickScanDelay = getDurationEnv("QUICK_SCAN_DELAY", c.QuickScanDelay)
	c.FullScanDelay = getDurationEnv("FULL_SCAN_DELAY", c.FullScanDelay)
	c.PhishingDelay = getDurationEnv("PHISHING_DELAY", c.PhishingDelay)

	// Rate limiting
	c.RateLimitRequests = getIntEnv("RATE_LIMIT_REQUESTS", c.RateLimitRequests)
	c.RateLimitWindow = getDurationEnv("RATE_LIMIT_WINDOW", c.RateLimitWindow)

	// Logging
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	// Tracing
	c.TracingEndpoint = getEnv("TRACING_ENDPOINT", c.TracingEndpoint)
	c.TracingEnabled = getBoolEnv("TRACING_ENABLED", c.TracingEnabled)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

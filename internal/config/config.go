package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice assistant gateway
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// ElevenLabs TTS API configuration
	ElevenLabsAPIKey  string `envconfig:"ELEVENLABS_API_KEY" required:"true"`
	ElevenLabsVoiceID string `envconfig:"ELEVENLABS_VOICE_ID" default:"1Z7Y8o9cvUeWq8oLKgMY"`
	ElevenLabsModelID string `envconfig:"ELEVENLABS_MODEL_ID" default:"eleven_turbo_v2"`
	SSMLEnabled       bool   `envconfig:"SSML_ENABLED" default:"false"` // Pass markup tags through to the provider

	// Text aggregation configuration
	BufferFlushTimeout int `envconfig:"BUFFER_FLUSH_TIMEOUT" default:"500"` // Idle flush debounce in milliseconds
	MaxBufferLength    int `envconfig:"MAX_BUFFER_LENGTH" default:"500"`    // Max buffered characters before forced flush
	SpokenHistorySize  int `envconfig:"SPOKEN_HISTORY_SIZE" default:"10"`   // Recently spoken utterances kept for dedup

	// Speech delivery configuration
	RetryAttempts       int  `envconfig:"RETRY_ATTEMPTS" default:"3"`           // Synthesis attempts before fallback
	RetryInitialBackoff int  `envconfig:"RETRY_INITIAL_BACKOFF" default:"1000"` // First backoff in milliseconds
	PlaybackEnabled     bool `envconfig:"PLAYBACK_ENABLED" default:"true"`      // Disable for headless deployments

	// DeliverIt commerce API configuration
	ShopBaseURL       string `envconfig:"SHOP_BASE_URL" default:"http://localhost:8042"`
	ShopAdminToken    string `envconfig:"SHOP_ADMIN_TOKEN" required:"true"`
	ShopCustomerToken string `envconfig:"SHOP_CUSTOMER_TOKEN" required:"true"`
	ShopWarehouseID   string `envconfig:"SHOP_WAREHOUSE_ID" default:"5"`
	CartWarehouseID   string `envconfig:"CART_WAREHOUSE_ID" default:"1"`
	CartOutletID      string `envconfig:"CART_OUTLET_ID" default:"11512"`
	CartCustomerOrgID string `envconfig:"CART_CUSTOMER_ORG_ID" default:"4"`
	DefaultLatitude   string `envconfig:"DEFAULT_LATITUDE" default:"28.6016406"`
	DefaultLongitude  string `envconfig:"DEFAULT_LONGITUDE" default:"77.3896809"`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// FlushTimeout returns the aggregation debounce as a duration
func (c *Config) FlushTimeout() time.Duration {
	return time.Duration(c.BufferFlushTimeout) * time.Millisecond
}

// InitialBackoff returns the first synthesis retry backoff as a duration
func (c *Config) InitialBackoff() time.Duration {
	return time.Duration(c.RetryInitialBackoff) * time.Millisecond
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Validate required fields
	if cfg.ElevenLabsAPIKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY is required")
	}
	if cfg.ShopAdminToken == "" || cfg.ShopCustomerToken == "" {
		return nil, fmt.Errorf("SHOP_ADMIN_TOKEN and SHOP_CUSTOMER_TOKEN are required")
	}
	if cfg.RetryAttempts < 1 {
		return nil, fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	if cfg.SpokenHistorySize < 1 {
		return nil, fmt.Errorf("SPOKEN_HISTORY_SIZE must be at least 1")
	}

	return &cfg, nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

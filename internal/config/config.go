package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Campaign   CampaignConfig   `yaml:"campaign"`
	Queue      QueueConfig      `yaml:"queue"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Import     ImportConfig     `yaml:"import"`
	GDPR       GDPRConfig       `yaml:"gdpr"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string        `yaml:"port"`
	Env            string        `yaml:"env"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

// DatabaseConfig holds SurrealDB connection settings
type DatabaseConfig struct {
	Host      string `yaml:"host"`
	Port      string `yaml:"port"`
	Namespace string `yaml:"namespace"`
	Database  string `yaml:"database"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`

	SlowQuery time.Duration `yaml:"slow_query"`
}

// JWTConfig holds JWT signing settings. PEM text wins over key paths.
type JWTConfig struct {
	PrivateKeyPath  string        `yaml:"private_key_path"`
	PublicKeyPath   string        `yaml:"public_key_path"`
	PrivateKeyPEM   string        `yaml:"private_key_pem"`
	PublicKeyPEM    string        `yaml:"public_key_pem"`
	ExpirationMins  int           `yaml:"expiration_mins"`
	RefreshDuration time.Duration `yaml:"refresh_duration"`
	Issuer          string        `yaml:"issuer"`
}

// RateLimitConfig holds the per-client token bucket settings
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// CampaignConfig controls the outreach engine
type CampaignConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Tick        time.Duration `yaml:"tick"`
	BatchSize   int           `yaml:"batch_size"`
	Concurrency int           `yaml:"concurrency"`
}

// QueueConfig holds the AMQP broker settings. An empty URL selects the logging dispatcher.
type QueueConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// ClassifierConfig holds OpenAI settings for resume classification
type ClassifierConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Enabled reports whether an API key is configured
func (c ClassifierConfig) Enabled() bool {
	return c.APIKey != ""
}

// ImportConfig bounds bulk imports
type ImportConfig struct {
	MaxRows      int   `yaml:"max_rows"`
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// GDPRConfig holds settings for GDPR tooling
type GDPRConfig struct {
	// ExportDir is where opsctl writes export documents; empty means stdout
	ExportDir string `yaml:"export_dir"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SlogLevel maps Level onto a slog level, defaulting to info
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the built-in configuration used before any file or environment overlay
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			Env:            "development",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   30 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
			IdempotencyTTL: 24 * time.Hour,
		},
		Database: DatabaseConfig{
			Host:      "localhost",
			Port:      "8000",
			Namespace: "staffhub",
			Database:  "main",
			User:      "root",
			Password:  "root",
			SlowQuery: 500 * time.Millisecond,
		},
		JWT: JWTConfig{
			PrivateKeyPath:  "./keys/private.pem",
			PublicKeyPath:   "./keys/public.pem",
			ExpirationMins:  15,
			RefreshDuration: 30 * 24 * time.Hour,
			Issuer:          "staffhub.forgo.software",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     10,
			Burst:   30,
		},
		Campaign: CampaignConfig{
			Enabled:     true,
			Tick:        time.Minute,
			BatchSize:   100,
			Concurrency: 8,
		},
		Queue: QueueConfig{
			Name: "staffhub.outreach",
		},
		Classifier: ClassifierConfig{
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
		Import: ImportConfig{
			MaxRows:      5000,
			MaxBodyBytes: 10 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE, and finally environment variables
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

// LoadFile overlays the YAML document at path onto cfg. Keys absent from the
// file keep their current values.
func LoadFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.Env = getEnv("SERVER_ENV", c.Server.Env)
	c.Server.ReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.AllowedOrigins = getSliceEnv("CORS_ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.IdempotencyTTL = getDurationEnv("IDEMPOTENCY_TTL", c.Server.IdempotencyTTL)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.Namespace = getEnv("DB_NAMESPACE", c.Database.Namespace)
	c.Database.Database = getEnv("DB_DATABASE", c.Database.Database)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.SlowQuery = getDurationEnv("DB_SLOW_QUERY", c.Database.SlowQuery)

	c.JWT.PrivateKeyPath = getEnv("JWT_PRIVATE_KEY_PATH", c.JWT.PrivateKeyPath)
	c.JWT.PublicKeyPath = getEnv("JWT_PUBLIC_KEY_PATH", c.JWT.PublicKeyPath)
	c.JWT.PrivateKeyPEM = getEnv("JWT_PRIVATE_KEY", c.JWT.PrivateKeyPEM)
	c.JWT.PublicKeyPEM = getEnv("JWT_PUBLIC_KEY", c.JWT.PublicKeyPEM)
	c.JWT.ExpirationMins = getIntEnv("JWT_EXPIRATION_MINS", c.JWT.ExpirationMins)
	c.JWT.RefreshDuration = getDurationEnv("JWT_REFRESH_DURATION", c.JWT.RefreshDuration)
	c.JWT.Issuer = getEnv("JWT_ISSUER", c.JWT.Issuer)

	c.RateLimit.Enabled = getBoolEnv("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RPS = getFloatEnv("RATE_LIMIT_RPS", c.RateLimit.RPS)
	c.RateLimit.Burst = getIntEnv("RATE_LIMIT_BURST", c.RateLimit.Burst)

	c.Campaign.Enabled = getBoolEnv("CAMPAIGN_ENABLED", c.Campaign.Enabled)
	c.Campaign.Tick = getDurationEnv("CAMPAIGN_TICK", c.Campaign.Tick)
	c.Campaign.BatchSize = getIntEnv("CAMPAIGN_BATCH_SIZE", c.Campaign.BatchSize)
	c.Campaign.Concurrency = getIntEnv("CAMPAIGN_CONCURRENCY", c.Campaign.Concurrency)

	c.Queue.URL = getEnv("AMQP_URL", c.Queue.URL)
	c.Queue.Name = getEnv("AMQP_QUEUE", c.Queue.Name)

	c.Classifier.APIKey = getEnv("OPENAI_API_KEY", c.Classifier.APIKey)
	c.Classifier.Model = getEnv("OPENAI_MODEL", c.Classifier.Model)
	c.Classifier.BaseURL = getEnv("OPENAI_BASE_URL", c.Classifier.BaseURL)
	c.Classifier.Timeout = getDurationEnv("OPENAI_TIMEOUT", c.Classifier.Timeout)

	c.Import.MaxRows = getIntEnv("IMPORT_MAX_ROWS", c.Import.MaxRows)
	c.Import.MaxBodyBytes = int64(getIntEnv("IMPORT_MAX_BODY_BYTES", int(c.Import.MaxBodyBytes)))

	c.GDPR.ExportDir = getEnv("GDPR_EXPORT_DIR", c.GDPR.ExportDir)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}
	if c.Server.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL must be positive"))
	}

	// Database validation
	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Database.Port == "" {
		errs = append(errs, errors.New("DB_PORT is required"))
	}
	if c.Database.Namespace == "" {
		errs = append(errs, errors.New("DB_NAMESPACE is required"))
	}
	if c.Database.Database == "" {
		errs = append(errs, errors.New("DB_DATABASE is required"))
	}

	// JWT validation - critical for production
	if c.IsProduction() {
		if c.JWT.PrivateKeyPath == "" && c.JWT.PrivateKeyPEM == "" {
			errs = append(errs, errors.New("JWT_PRIVATE_KEY_PATH or JWT_PRIVATE_KEY is required in production"))
		}
		if c.Database.Password == "root" {
			errs = append(errs, errors.New("DB_PASSWORD must not be the default in production"))
		}
	}
	if c.JWT.ExpirationMins <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MINS must be positive"))
	}
	if c.JWT.RefreshDuration <= 0 {
		errs = append(errs, errors.New("JWT_REFRESH_DURATION must be positive"))
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RPS <= 0 {
			errs = append(errs, errors.New("RATE_LIMIT_RPS must be positive"))
		}
		if c.RateLimit.Burst < 1 {
			errs = append(errs, errors.New("RATE_LIMIT_BURST must be at least 1"))
		}
	}

	if c.Campaign.Enabled && c.Campaign.Tick <= 0 {
		errs = append(errs, errors.New("CAMPAIGN_TICK must be positive"))
	}
	if c.Campaign.BatchSize < 1 {
		errs = append(errs, errors.New("CAMPAIGN_BATCH_SIZE must be at least 1"))
	}
	if c.Campaign.Concurrency < 1 {
		errs = append(errs, errors.New("CAMPAIGN_CONCURRENCY must be at least 1"))
	}

	if c.Queue.URL != "" && c.Queue.Name == "" {
		errs = append(errs, errors.New("AMQP_QUEUE is required when AMQP_URL is set"))
	}

	if c.Classifier.Enabled() && c.Classifier.Model == "" {
		errs = append(errs, errors.New("OPENAI_MODEL is required when OPENAI_API_KEY is set"))
	}

	if c.Import.MaxRows < 1 {
		errs = append(errs, errors.New("IMPORT_MAX_ROWS must be at least 1"))
	}
	if c.Import.MaxBodyBytes < 1 {
		errs = append(errs, errors.New("IMPORT_MAX_BODY_BYTES must be at least 1"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be 'json' or 'text', got '%s'", c.Log.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Helper functions for reading environment variables

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

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
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

// Package config manages application configuration for the StaffHub API.
//
// Configuration is resolved in three layers: built-in defaults, an optional
// YAML file named by CONFIG_FILE, then environment variables.
//
//	cfg, err := config.Load()
//	if err == nil {
//	    err = cfg.Validate()
//	}
//
// # Configuration Groups
//
//   - ServerConfig: HTTP server settings (port, timeouts, CORS, idempotency TTL)
//   - DatabaseConfig: SurrealDB connection settings
//   - JWTConfig: RS256 signing keys and token lifetimes
//   - RateLimitConfig: per-client token bucket
//   - CampaignConfig: outreach engine tick, batch size and concurrency
//   - QueueConfig: AMQP broker for outbound messages
//   - ClassifierConfig: OpenAI resume classification
//   - ImportConfig, GDPRConfig, LogConfig
//
// # Environment Variables
//
// Key environment variables:
//
//	SERVER_PORT          - HTTP server port (default: 8080)
//	DB_HOST, DB_PORT     - SurrealDB address
//	JWT_PRIVATE_KEY_PATH - RS256 private key (or JWT_PRIVATE_KEY with PEM text)
//	RATE_LIMIT_RPS       - sustained requests per second per client
//	CAMPAIGN_TICK        - outreach engine interval (default: 1m)
//	AMQP_URL             - broker URL; empty logs outbound messages instead
//	OPENAI_API_KEY       - enables candidate classification
//	IMPORT_MAX_ROWS      - bulk import row limit (default: 5000)
//	LOG_LEVEL            - debug, info, warn or error
package config
